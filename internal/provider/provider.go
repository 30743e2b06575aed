// 包 provider：数据源适配器统一契约
// 背景：三个上游（Yelp REST / Places REST / Overpass）各自实现同构操作，
// 聚合层只面向该接口做选路与兜底；原始状态码不越过适配器边界。
package provider

import (
	"context"
	"errors"
	"fmt"

	"place-api/internal/model"
)

// ErrNotConfigured：必要凭据或地址缺失；不重试，立即失败
// 约束：与上游错误严格区分，聚合层据此跳过而非兜底
var ErrNotConfigured = errors.New("provider not configured")

// UpstreamError：上游返回非成功状态；携带状态供上层记录
type UpstreamError struct {
	Provider string
	Code     int
	Status   string
}

func (e *UpstreamError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s upstream error: %s", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s upstream error: status %d", e.Provider, e.Code)
}

// Provider：数据源四操作契约
// 约束：零结果返回空切片与 nil 错误；单条记录映射失败丢弃该条并记录，不失败整批
type Provider interface {
	Name() string
	SearchNearby(ctx context.Context, center model.Coordinates, radiusMeters float64, categoryHint string, limit int) ([]model.Business, error)
	SearchByText(ctx context.Context, query string, center model.Coordinates, radiusMeters float64, categoryHint string) ([]model.Business, error)
	GetDetails(ctx context.Context, id string) (*model.Business, error)
	GetReviews(ctx context.Context, id string) ([]model.Review, error)
}
