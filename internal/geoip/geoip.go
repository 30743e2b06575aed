// 包 geoip：来访 IP 的粗定位，用于给未授权定位的客户端一个初始地图中心
// 背景：读取本地 mmdb（City 库），不依赖任何在线定位服务；解析失败按不可定位处理。
package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

type Resolver struct {
	db *geoip2.Reader
}

func Open(path string) (*Resolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Resolver{db: db}, nil
}

func (r *Resolver) Close() error { return r.db.Close() }

// Locate：返回坐标与城市名；库中无记录或坐标为零值时 ok=false
func (r *Resolver) Locate(ip net.IP) (lat, lng float64, city string, ok bool) {
	rec, err := r.db.City(ip)
	if err != nil || rec == nil {
		return 0, 0, "", false
	}
	lat = rec.Location.Latitude
	lng = rec.Location.Longitude
	if lat == 0 && lng == 0 {
		return 0, 0, "", false
	}
	if name, found := rec.City.Names["en"]; found {
		city = name
	}
	return lat, lng, city, true
}
