package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-nearby-events/internal/api/caller"
	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// DefaultRadiusKm は radius_km 未指定時の検索半径
const DefaultRadiusKm = 10.0

type LocationRequest struct {
	Address   string   `json:"address" validate:"max=500" example:"東京都渋谷区道玄坂1-1"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,min=-90,max=90" example:"35.658"`
	Longitude *float64 `json:"longitude" validate:"omitempty,min=-180,max=180" example:"139.7016"`
}

type PriceRequest struct {
	Free     bool   `json:"free"`
	Amount   int64  `json:"amount" validate:"gte=0" example:"1500"`
	Currency string `json:"currency" validate:"omitempty,len=3" example:"JPY"`
}

func (r LocationRequest) toLocation() (event.Location, error) {
	loc := event.Location{Address: strings.TrimSpace(r.Address)}
	switch {
	case r.Latitude == nil && r.Longitude == nil:
		return loc, nil
	case r.Latitude == nil || r.Longitude == nil:
		return loc, echo.NewHTTPError(http.StatusBadRequest, "緯度と経度は両方指定してください")
	}
	loc.Coordinates = &geo.Point{Lat: *r.Latitude, Lon: *r.Longitude}
	return loc, nil
}

func (r *PriceRequest) toPrice() *event.Price {
	if r == nil {
		return nil
	}
	if r.Free || r.Amount == 0 {
		return &event.Price{Free: true}
	}
	return &event.Price{Amount: r.Amount, Currency: strings.ToUpper(r.Currency)}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	return c.Validate(req)
}

func parseTime(value, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, field+"の形式が不正です（RFC3339）")
	}
	return t, nil
}

func parseOptionalTime(value *string, field string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := parseTime(*value, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseCategory(value string) (event.Category, error) {
	if value == "" {
		return "", nil
	}
	return event.ParseCategory(value)
}

// parsePoint は lat / lon クエリを読む。どちらもなければ ok=false
func parsePoint(c echo.Context) (p geo.Point, ok bool, err error) {
	rawLat, rawLon := c.QueryParam("lat"), c.QueryParam("lon")
	if rawLat == "" && rawLon == "" {
		return geo.Point{}, false, nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil || lat < -90 || lat > 90 {
		return geo.Point{}, false, echo.NewHTTPError(http.StatusBadRequest, "lat は -90 から 90 の数値で指定してください")
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil || lon < -180 || lon > 180 {
		return geo.Point{}, false, echo.NewHTTPError(http.StatusBadRequest, "lon は -180 から 180 の数値で指定してください")
	}
	return geo.Point{Lat: lat, Lon: lon}, true, nil
}

// parseSearchArea は検索の中心地点と半径を読む。中心地点は必須
func parseSearchArea(c echo.Context) (geo.Point, float64, error) {
	center, ok, err := parsePoint(c)
	if err != nil {
		return geo.Point{}, 0, err
	}
	if !ok {
		return geo.Point{}, 0, echo.NewHTTPError(http.StatusBadRequest, "lat と lon は必須です")
	}

	radius := DefaultRadiusKm
	if raw := c.QueryParam("radius_km"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return geo.Point{}, 0, echo.NewHTTPError(http.StatusBadRequest, "radius_km は数値で指定してください")
		}
	}
	return center, radius, nil
}

// withCallerLocation は lat / lon クエリがあれば呼び出し元の現在地として context に設定する
func withCallerLocation(c echo.Context) error {
	p, ok, err := parsePoint(c)
	if err != nil || !ok {
		return err
	}
	req := c.Request()
	c.SetRequest(req.WithContext(caller.WithLocation(req.Context(), p)))
	return nil
}
