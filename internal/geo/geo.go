// 包 geo：纯函数地理工具；大圆距离、距离格式化与可视半径估算
package geo

import (
	"math"
	"strconv"

	"place-api/internal/model"
)

const earthRadiusKm = 6371.0

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm：haversine 大圆距离（千米）
// 约束：全函数，任意有限度数输入均有定义；对称且 DistanceKm(a,a)==0
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// FormatDistance：小于 1km 按米取整，否则保留 1 位小数；无本地化
func FormatDistance(km float64) string {
	if km < 1 {
		return strconv.Itoa(int(math.Round(km*1000))) + "m"
	}
	v := math.Round(km*10) / 10
	return strconv.FormatFloat(v, 'f', -1, 64) + "km"
}

// ApproxRadiusMeters：由中心点到东北角的大圆距离估算可视半径（米）
// 背景：与前端视口半径推导保持一致；bounds 不可用时返回 5000
func ApproxRadiusMeters(center model.Coordinates, northEast model.Coordinates) float64 {
	if center == northEast {
		return 5000
	}
	return DistanceKm(center.Latitude, center.Longitude, northEast.Latitude, northEast.Longitude) * 1000
}

// ClampRadius：把半径夹到数据源接受的区间
func ClampRadius(m, lo, hi float64) float64 {
	if m < lo {
		return lo
	}
	if m > hi {
		return hi
	}
	return m
}
