// 包 markers：展示层辅助；图标缓存与按缩放级别的标记数上限
// 背景：上限只影响可见标记数，控制器仍返回完整去重列表；截断属展示关切。
package markers

import (
	"strconv"
	"sync"
)

// MaxForZoom：缩放级别越低（视野越大）标记越少
func MaxForZoom(zoom int) int {
	switch {
	case zoom >= 16:
		return 60
	case zoom >= 14:
		return 40
	case zoom >= 12:
		return 25
	case zoom >= 10:
		return 15
	}
	return 8
}

// Icon：标记图标描述；按 glyph+size 生成一次后复用
type Icon struct {
	Glyph string `json:"glyph"`
	Size  int    `json:"size"`
}

// IconCache：进程内共享的图标缓存
// 约束：跨请求 goroutine 共享访问，读写均加锁
type IconCache struct {
	mu sync.Mutex
	m  map[string]*Icon
}

func NewIconCache() *IconCache {
	return &IconCache{m: make(map[string]*Icon)}
}

func key(glyph string, size int) string {
	return glyph + "@" + strconv.Itoa(size)
}

// Get：命中返回缓存实例，未命中构建并缓存
func (c *IconCache) Get(glyph string, size int) *Icon {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(glyph, size)
	if ic, ok := c.m[k]; ok {
		return ic
	}
	ic := &Icon{Glyph: glyph, Size: size}
	c.m[k] = ic
	return ic
}

// Len：当前缓存条目数
func (c *IconCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
