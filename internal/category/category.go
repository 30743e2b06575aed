// 包 category：分类关键词映射表；UI 分类到各数据源词汇的转换
// 背景：匹配规则为有序表、大小写不敏感的子串匹配，自上而下首个命中生效；
// 顺序即优先级，含多个关键词的分类落在先出现的规则上。
package category

import "strings"

type placesRule struct {
	keyword   string
	placeType string
}

// 规则顺序是对外契约的一部分，调整顺序会改变歧义分类的归属
var placesRules = []placesRule{
	{"food", "restaurant"},
	{"hotel", "lodging"},
	{"leisure", "tourist_attraction"},
	{"travel", "travel_agency"},
	{"cafe", "cafe"},
	{"bar", "bar"},
	{"museum", "museum"},
	{"park", "park"},
	{"shopping", "shopping_mall"},
}

// ToPlacesType：UI 分类转 Places 类型；"all"/空串/未命中返回 false（表示不限类型查询）
func ToPlacesType(cat string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(cat))
	if key == "" || key == "all" {
		return "", false
	}
	for _, r := range placesRules {
		if strings.Contains(key, r.keyword) {
			return r.placeType, true
		}
	}
	return "", false
}

// ToYelpCategories：UI 分类转 Yelp 固定词汇
// 约束："all"/空串返回 restaurants+hotels（兜底查询使用同一组合）；未命中默认 restaurants
func ToYelpCategories(cat string) []string {
	key := strings.ToLower(strings.TrimSpace(cat))
	if key == "" || key == "all" {
		return []string{"restaurants", "hotels"}
	}
	switch {
	case strings.Contains(key, "food"), strings.Contains(key, "f&b"):
		return []string{"restaurants"}
	case strings.Contains(key, "hotel"):
		return []string{"hotels"}
	case strings.Contains(key, "bar"):
		return []string{"bars"}
	case strings.Contains(key, "cafe"):
		return []string{"coffee"}
	}
	return []string{"restaurants"}
}
