package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm_SamePoint(t *testing.T) {
	points := []Point{
		{Lat: 35.6812, Lon: 139.7671},
		{Lat: 0, Lon: 0},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 89.9, Lon: -179.9},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, DistanceKm(p.Lat, p.Lon, p.Lat, p.Lon))
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	tokyo := Point{Lat: 35.6812, Lon: 139.7671}
	osaka := Point{Lat: 34.7025, Lon: 135.4959}
	sydney := Point{Lat: -33.8688, Lon: 151.2093}

	assert.InDelta(t, tokyo.DistanceTo(osaka), osaka.DistanceTo(tokyo), 1e-9)
	assert.InDelta(t, tokyo.DistanceTo(sydney), sydney.DistanceTo(tokyo), 1e-9)
}

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{
			name:     "東京駅から大阪駅",
			a:        Point{Lat: 35.6812, Lon: 139.7671},
			b:        Point{Lat: 34.7025, Lon: 135.4959},
			expected: 403,
			delta:    5,
		},
		{
			name:     "赤道上の経度1度",
			a:        Point{Lat: 0, Lon: 0},
			b:        Point{Lat: 0, Lon: 1},
			expected: 111.19,
			delta:    0.1,
		},
		{
			name:     "対蹠点",
			a:        Point{Lat: 0, Lon: 0},
			b:        Point{Lat: 0, Lon: 180},
			expected: 20015.09,
			delta:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.a.DistanceTo(tt.b), tt.delta)
		})
	}
}

func TestBoundingBox_ContainsCircle(t *testing.T) {
	center := Point{Lat: 35.6812, Lon: 139.7671}
	box := BoundingBox(center, 10)

	assert.True(t, box.Contains(center))
	// 真北・真東に約9.9km離れた地点は矩形内
	assert.True(t, box.Contains(Point{Lat: center.Lat + 0.089, Lon: center.Lon}))
	assert.True(t, box.Contains(Point{Lat: center.Lat, Lon: center.Lon + 0.109}))
	// 約50km離れた地点は矩形外
	assert.False(t, box.Contains(Point{Lat: center.Lat + 0.45, Lon: center.Lon}))
}

func TestBoundingBox_NearPole(t *testing.T) {
	box := BoundingBox(Point{Lat: 90, Lon: 0}, 100)
	assert.Equal(t, -180.0, box.MinLon)
	assert.Equal(t, 180.0, box.MaxLon)
	assert.Equal(t, 90.0, box.MaxLat)
}

func TestBoundingBox_Antimeridian(t *testing.T) {
	tests := []struct {
		name   string
		center Point
		point  Point
	}{
		{name: "東側の中心から西側の地点", center: Point{Lat: -17.7, Lon: 179.9}, point: Point{Lat: -17.7, Lon: -179.9}},
		{name: "西側の中心から東側の地点", center: Point{Lat: 65.0, Lon: -179.8}, point: Point{Lat: 65.0, Lon: 179.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Less(t, tt.center.DistanceTo(tt.point), 50.0)

			box := BoundingBox(tt.center, 50)

			assert.True(t, box.CrossesAntimeridian())
			assert.True(t, box.Contains(tt.center))
			assert.True(t, box.Contains(tt.point))
			assert.Len(t, box.LonRanges(), 2)
			for _, r := range box.LonRanges() {
				assert.GreaterOrEqual(t, r.Min, -180.0)
				assert.LessOrEqual(t, r.Max, 180.0)
			}
			// 反対側の経度0付近は含まない
			assert.False(t, box.Contains(Point{Lat: tt.center.Lat, Lon: 0}))
		})
	}
}

func TestBoundingBox_CircleCrossesPole(t *testing.T) {
	tests := []struct {
		name   string
		center Point
		point  Point
	}{
		{name: "北極をまたぐ", center: Point{Lat: 89.5, Lon: 0}, point: Point{Lat: 89.8, Lon: 180}},
		{name: "南極をまたぐ", center: Point{Lat: -89.5, Lon: 90}, point: Point{Lat: -89.7, Lon: -90}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Less(t, tt.center.DistanceTo(tt.point), 100.0)

			box := BoundingBox(tt.center, 100)

			assert.Equal(t, -180.0, box.MinLon)
			assert.Equal(t, 180.0, box.MaxLon)
			assert.False(t, box.CrossesAntimeridian())
			assert.True(t, box.Contains(tt.point))
		})
	}
}

func TestBoundingBox_HighLatitude(t *testing.T) {
	center := Point{Lat: 89, Lon: 0}
	box := BoundingBox(center, 100)

	// 円に接する経線上の地点は半径内
	edge := Point{Lat: 89.35, Lon: 60}
	require.Less(t, center.DistanceTo(edge), 100.0)
	assert.True(t, box.Contains(edge))
	assert.InDelta(t, 64.0, box.MaxLon, 0.5)
}

func TestBoundingBox_NoWrapAwayFromAntimeridian(t *testing.T) {
	box := BoundingBox(Point{Lat: 35.6812, Lon: 139.7671}, 10)

	assert.False(t, box.CrossesAntimeridian())
	assert.Equal(t, []LonRange{{Min: box.MinLon, Max: box.MaxLon}}, box.LonRanges())
}
