package geo

import "math"

// EarthRadiusKm は地球の平均半径（km）
const EarthRadiusKm = 6371.0

// Point は緯度経度（度）で表される地点
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm はハバーサイン公式で2点間の大圏距離（km）を返す
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// DistanceTo は p から q までの距離（km）を返す
func (p Point) DistanceTo(q Point) float64 {
	return DistanceKm(p.Lat, p.Lon, q.Lat, q.Lon)
}

// Box は緯度経度の矩形範囲。
// 日付変更線をまたぐ場合は MinLon > MaxLon となり、経度は MinLon 以上または MaxLon 以下を表す。
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// LonRange は経度の閉区間
type LonRange struct {
	Min, Max float64
}

// BoundingBox は中心から半径 radiusKm の円を包含する矩形を返す。
// SQLでの粗い絞り込み用で、正確な判定は DistanceKm で行う。
func BoundingBox(center Point, radiusKm float64) Box {
	angular := radiusKm / EarthRadiusKm
	dLat := angular * 180 / math.Pi
	box := Box{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
		MinLon: -180,
		MaxLon: 180,
	}
	// 円が極を含む場合は全経度が範囲内
	if center.Lat+dLat >= 90 || center.Lat-dLat <= -90 {
		return box
	}
	// 円に接する経線までの経度差。高緯度では dLat/cos(lat) より広がる
	ratio := math.Sin(angular) / math.Cos(toRadians(center.Lat))
	if ratio >= 1 {
		return box
	}
	dLon := math.Asin(ratio) * 180 / math.Pi
	box.MinLon = wrapLon(center.Lon - dLon)
	box.MaxLon = wrapLon(center.Lon + dLon)
	return box
}

// CrossesAntimeridian は経度範囲が ±180 度をまたぐかを返す
func (b Box) CrossesAntimeridian() bool {
	return b.MinLon > b.MaxLon
}

// LonRanges は経度範囲を折り返しのない区間に分けて返す
func (b Box) LonRanges() []LonRange {
	if b.CrossesAntimeridian() {
		return []LonRange{{Min: b.MinLon, Max: 180}, {Min: -180, Max: b.MaxLon}}
	}
	return []LonRange{{Min: b.MinLon, Max: b.MaxLon}}
}

// Contains は点が矩形に含まれるかを返す
func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	for _, r := range b.LonRanges() {
		if p.Lon >= r.Min && p.Lon <= r.Max {
			return true
		}
	}
	return false
}

func wrapLon(lon float64) float64 {
	switch {
	case lon > 180:
		return lon - 360
	case lon < -180:
		return lon + 360
	}
	return lon
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
