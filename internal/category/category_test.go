package category

import (
	"reflect"
	"testing"

	"place-api/internal/model"
)

func TestToPlacesType(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Food & Drinks", "restaurant", true},
		{"Hotels", "lodging", true},
		{"Leisure", "tourist_attraction", true},
		{"Travel", "travel_agency", true},
		{"Cafe", "cafe", true},
		{"Bars", "bar", true},
		{"Museum", "museum", true},
		{"Parks", "park", true},
		{"Shopping", "shopping_mall", true},
		{"all", "", false},
		{"", "", false},
		{"  All  ", "", false},
		{"karaoke", "", false},
	}
	for _, c := range cases {
		got, ok := ToPlacesType(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ToPlacesType(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

// 含多个关键词时首条规则生效
func TestToPlacesTypeOrderedRules(t *testing.T) {
	if got, _ := ToPlacesType("food and travel"); got != "restaurant" {
		t.Fatalf("ambiguous category resolved to %q, want restaurant", got)
	}
	if got, _ := ToPlacesType("hotel bar"); got != "lodging" {
		t.Fatalf("ambiguous category resolved to %q, want lodging", got)
	}
}

func TestToYelpCategories(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"all", []string{"restaurants", "hotels"}},
		{"", []string{"restaurants", "hotels"}},
		{"Food & Drinks", []string{"restaurants"}},
		{"Hotels", []string{"hotels"}},
		{"Bars", []string{"bars"}},
		{"Cafe", []string{"coffee"}},
		{"Museum", []string{"restaurants"}},
	}
	for _, c := range cases {
		if got := ToYelpCategories(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("ToYelpCategories(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestEmojiForType(t *testing.T) {
	if got := EmojiForType("restaurant", nil); got != "🍽️" {
		t.Fatalf("restaurant = %q", got)
	}
	if got := EmojiForType("coffee", nil); got != "☕" {
		t.Fatalf("yelp alias coffee = %q", got)
	}
	if got := EmojiForType("unknown_type", nil); got != DefaultEmoji {
		t.Fatalf("unknown = %q, want default", got)
	}
	// 关键词扫描先于内置表
	if got := EmojiForType("pet_store", nil); got != "🛍️" {
		t.Fatalf("scan store = %q", got)
	}
}

func TestEmojiOverridePrecedence(t *testing.T) {
	ov := map[string]string{"restaurant": "🥇", "default": "✳️"}
	if got := EmojiForType("restaurant", ov); got != "🥇" {
		t.Fatalf("override direct = %q", got)
	}
	// 扫描命中项也先查覆盖表
	if got := EmojiForType("fast_food", ov); got != "🥇" {
		t.Fatalf("override via scan = %q", got)
	}
	if got := EmojiForType("unknown_type", ov); got != "✳️" {
		t.Fatalf("override default = %q", got)
	}
}

func TestEmojiForBusiness(t *testing.T) {
	b := &model.Business{Categories: []model.Category{
		{Alias: "nonsense", Title: "Nonsense"},
		{Alias: "coffee", Title: "Coffee & Tea"},
	}}
	if got := EmojiForBusiness(b, nil); got != "☕" {
		t.Fatalf("business emoji = %q, want coffee", got)
	}
	if got := EmojiForBusiness(nil, nil); got != DefaultEmoji {
		t.Fatalf("nil business = %q, want default", got)
	}
	empty := &model.Business{}
	if got := EmojiForBusiness(empty, nil); got != DefaultEmoji {
		t.Fatalf("no categories = %q, want default", got)
	}
}
