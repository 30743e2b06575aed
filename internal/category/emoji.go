package category

import (
	"strings"

	"place-api/internal/model"
)

// DefaultEmoji：无任何命中时的兜底图钉
const DefaultEmoji = "📍"

// 内置类型表（Places 类型词汇）
var baseEmoji = map[string]string{
	"restaurant":             "🍽️",
	"cafe":                   "☕",
	"bar":                    "🍺",
	"lodging":                "🏨",
	"hotel":                  "🏨",
	"shopping_mall":          "🛍️",
	"mall":                   "🛍️",
	"store":                  "🛍️",
	"hospital":               "🏥",
	"clinic":                 "🏥",
	"school":                 "🏫",
	"university":             "🏫",
	"gas_station":            "⛽",
	"park":                   "🌳",
	"museum":                 "🏛️",
	"bank":                   "🏦",
	"pharmacy":               "💊",
	"gym":                    "🏋️",
	"library":                "📚",
	"supermarket":            "🛒",
	"grocery_or_supermarket": "🛒",
	"bakery":                 "🥐",
	"bookstore":              "📖",
	"movie_theater":          "🎬",
	"stadium":                "🏟️",
	"zoo":                    "🦁",
	"aquarium":               "🐠",
	"church":                 "⛪",
	"mosque":                 "🕌",
	"hindu_temple":           "🛕",
	"tourist_attraction":     "🎡",
	"travel_agency":          "🧳",
	"art_gallery":            "🖼️",
	"amusement_park":         "🎢",
	"night_club":             "🍸",
	"post_office":            "📮",
	"police":                 "👮",
	"fire_station":           "🚒",
	"bus_station":            "🚌",
	"subway_station":         "🚇",
	"train_station":          "🚆",
	"airport":                "✈️",
	"parking":                "🅿️",
	"car_rental":             "🚘",
	"car_repair":             "🔧",
	"hardware_store":         "🔩",
}

// Yelp 分类别名表
var yelpEmoji = map[string]string{
	"restaurants": "🍽️",
	"bars":        "🍺",
	"coffee":      "☕",
	"hotels":      "🏨",
	"shopping":    "🛍️",
}

type emojiScan struct {
	contains []string
	key      string
	glyph    string
}

// 关键词扫描优先级表；先于内置表求值，顺序固定
var emojiScans = []emojiScan{
	{[]string{"store", "shop"}, "store", "🛍️"},
	{[]string{"travel"}, "travel_agency", "🧳"},
	{[]string{"attraction"}, "tourist_attraction", "🎡"},
	{[]string{"food"}, "restaurant", "🍽️"},
	{[]string{"school"}, "school", "🏫"},
	{[]string{"university"}, "university", "🏫"},
	{[]string{"church"}, "church", "⛪"},
	{[]string{"mosque"}, "mosque", "🕌"},
	{[]string{"temple"}, "hindu_temple", "🛕"},
	{[]string{"clinic"}, "clinic", "🏥"},
	{[]string{"hospital"}, "hospital", "🏥"},
	{[]string{"bank"}, "bank", "🏦"},
	{[]string{"pharmacy"}, "pharmacy", "💊"},
	{[]string{"supermarket", "grocery"}, "supermarket", "🛒"},
	{[]string{"bakery"}, "bakery", "🥐"},
	{[]string{"book"}, "bookstore", "📖"},
	{[]string{"movie", "cinema"}, "movie_theater", "🎬"},
	{[]string{"stadium"}, "stadium", "🏟️"},
	{[]string{"zoo"}, "zoo", "🦁"},
	{[]string{"aquarium"}, "aquarium", "🐠"},
	{[]string{"night"}, "night_club", "🍸"},
	{[]string{"park"}, "park", "🌳"},
	{[]string{"museum"}, "museum", "🏛️"},
	{[]string{"gas"}, "gas_station", "⛽"},
}

// EmojiForType：类型到图标
// 查找顺序：覆盖表精确命中 → 关键词扫描（命中项先查覆盖表）→ 内置表 → Yelp 别名表 → 默认
func EmojiForType(t string, overrides map[string]string) string {
	key := strings.ToLower(strings.TrimSpace(t))
	if key == "" {
		if v, ok := overrides["default"]; ok {
			return v
		}
		return DefaultEmoji
	}
	if v, ok := overrides[key]; ok {
		return v
	}
	for _, s := range emojiScans {
		for _, c := range s.contains {
			if strings.Contains(key, c) {
				if v, ok := overrides[s.key]; ok {
					return v
				}
				return s.glyph
			}
		}
	}
	if v, ok := baseEmoji[key]; ok {
		return v
	}
	if v, ok := yelpEmoji[key]; ok {
		return v
	}
	if v, ok := overrides["default"]; ok {
		return v
	}
	return DefaultEmoji
}

// EmojiForBusiness：按分类顺序取首个非默认图标；alias 优先于 title
func EmojiForBusiness(b *model.Business, overrides map[string]string) string {
	if b == nil {
		if v, ok := overrides["default"]; ok {
			return v
		}
		return DefaultEmoji
	}
	for _, c := range b.Categories {
		if e := EmojiForType(c.Alias, overrides); e != DefaultEmoji {
			return e
		}
		if e := EmojiForType(c.Title, overrides); e != DefaultEmoji {
			return e
		}
	}
	if v, ok := overrides["default"]; ok {
		return v
	}
	return DefaultEmoji
}
