// 包 index：可选的商家全文索引
// 背景：聚合层每次成功搜索后把商家写入索引，Places 不可用时文本搜索可退到这里；
// 未配置 ES_URL 时整个索引为 nil，调用方全部判空跳过。
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"place-api/internal/logger"
	"place-api/internal/model"

	"github.com/elastic/go-elasticsearch/v8"
)

const defaultIndexName = "businesses"

type Index struct {
	client *elasticsearch.Client
	name   string
}

// OpenFromEnv：从 ES_URL / ES_INDEX 构建；未设置地址时返回 nil, nil
func OpenFromEnv() (*Index, error) {
	addr := os.Getenv("ES_URL")
	if addr == "" {
		return nil, nil
	}
	name := os.Getenv("ES_INDEX")
	if name == "" {
		name = defaultIndexName
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{addr}})
	if err != nil {
		return nil, err
	}
	return &Index{client: client, name: name}, nil
}

// Put：逐条写入（按商家 ID 幂等覆盖）
// 约束：写索引是旁路增强，单条失败记录日志并继续，不影响主查询返回
func (ix *Index) Put(ctx context.Context, bs []model.Business) {
	for _, b := range bs {
		body, err := json.Marshal(b)
		if err != nil {
			continue
		}
		resp, err := ix.client.Index(
			ix.name,
			bytes.NewReader(body),
			ix.client.Index.WithContext(ctx),
			ix.client.Index.WithDocumentID(b.ID),
		)
		if err != nil {
			logger.L().Debug("es_index_error", "id", b.ID, "err", err)
			continue
		}
		if resp.IsError() {
			logger.L().Debug("es_index_status", "id", b.ID, "status", resp.Status())
		}
		resp.Body.Close()
	}
}

// Search：按名称与分类标题做 multi_match
func (ix *Index) Search(ctx context.Context, query string, size int) ([]model.Business, error) {
	if size <= 0 {
		size = 20
	}
	q := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"name^2", "categories.title", "location.city"},
			},
		},
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	resp, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(ix.name),
		ix.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("es search error: %s", resp.Status())
	}
	var result struct {
		Hits struct {
			Hits []struct {
				Source model.Business `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	out := make([]model.Business, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
