// 包 model：规范化商家数据模型；三个上游数据源（Yelp/Places/Overpass）统一映射到此结构后再对外返回
package model

import "time"

// Category：商家分类（别名 + 展示名），首个元素视为主分类
type Category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// Coordinates：WGS84 十进制度坐标
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address：邮政地址字段；未知字段保持空字符串而非省略
type Address struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

// OpenSlot：每周营业时段；Start/End 为 4 位 24 小时制字符串（如 "0900"）
type OpenSlot struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Business：规范化商家记录
// 约束：ID 在同一结果集内唯一（数据源命名空间化）；Rating 缺省为 0；Categories 可为空但序列化时不为 null；
// Price 为 0~4 个 '$'；字段缺失时映射为零值，不得因可选字段缺失而失败。
type Business struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ImageURL    string      `json:"image_url"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"review_count"`
	Categories  []Category  `json:"categories"`
	Coordinates Coordinates `json:"coordinates"`
	Location    Address     `json:"location"`
	Phone       string      `json:"phone"`
	Price       string      `json:"price"`
	Hours       []OpenSlot  `json:"hours,omitempty"`
	Photos      []string    `json:"photos,omitempty"`
	Website     string      `json:"website,omitempty"`
}

// ReviewUser：评论作者信息；头像可能为空或需要限尺寸代理
type ReviewUser struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// Review：商家评论；TimeCreated 为数据源定义的时间标签，不保证 ISO-8601
type Review struct {
	ID          string     `json:"id"`
	Rating      int        `json:"rating"`
	Text        string     `json:"text"`
	TimeCreated string     `json:"time_created"`
	User        ReviewUser `json:"user"`
}

// Favorite：收藏行，唯一持久化实体；(UserID, BusinessID) 组合唯一
type Favorite struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	BusinessID string    `json:"business_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Bounds：地图可视范围（度）
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Viewport：当前可视区域，中心点 + 近似半径
type Viewport struct {
	Center       Coordinates
	RadiusMeters float64
}
