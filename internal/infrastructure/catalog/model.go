package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

type searchResponse struct {
	Embedded struct {
		Events []catalogEvent `json:"events"`
	} `json:"_embedded"`
}

type catalogEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Info  string `json:"info"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	} `json:"dates"`
	Images []struct {
		URL   string `json:"url"`
		Width int    `json:"width"`
	} `json:"images"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	Embedded struct {
		Venues []catalogVenue `json:"venues"`
	} `json:"_embedded"`
}

type catalogVenue struct {
	Name    string `json:"name"`
	Address struct {
		Line1 string `json:"line1"`
	} `json:"address"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Location struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"location"`
}

// 小数部を持たない通貨
var zeroDecimalCurrencies = map[string]bool{"JPY": true, "KRW": true}

// toEntity はカタログのイベントをドメインのイベントに変換する。
// IDまたは開始日時が欠けている場合は false を返す
func (r catalogEvent) toEntity() (*event.Event, bool) {
	if r.ID == "" {
		return nil, false
	}
	start, ok := r.startTime()
	if !ok {
		return nil, false
	}
	e := &event.Event{
		ID:          IDPrefix + r.ID,
		Title:       strings.TrimSpace(r.Name),
		Description: r.Info,
		Category:    r.category(),
		Location:    r.location(),
		DateTime:    start,
		ImageURL:    r.imageURL(),
		Source:      event.SourceExternalCatalog,
		ExternalID:  r.ID,
		ExternalURL: r.URL,
		Price:       r.price(),
		Status:      statusFromCode(r.Dates.Status.Code),
	}
	if end, err := time.Parse(time.RFC3339, r.Dates.End.DateTime); err == nil && !end.Before(start) {
		e.EndDateTime = &end
	}
	return e, true
}

func (r catalogEvent) startTime() (time.Time, bool) {
	s := r.Dates.Start
	if t, err := time.Parse(time.RFC3339, s.DateTime); err == nil {
		return t, true
	}
	if s.LocalDate == "" {
		return time.Time{}, false
	}
	clock := s.LocalTime
	if clock == "" {
		clock = "00:00:00"
	}
	t, err := time.Parse("2006-01-02 15:04:05", s.LocalDate+" "+clock)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r catalogEvent) location() event.Location {
	if len(r.Embedded.Venues) == 0 {
		return event.Location{}
	}
	v := r.Embedded.Venues[0]
	parts := make([]string, 0, 3)
	for _, p := range []string{v.Name, v.Address.Line1, v.City.Name} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	loc := event.Location{Address: strings.Join(parts, ", ")}
	lat, errLat := strconv.ParseFloat(v.Location.Latitude, 64)
	lon, errLon := strconv.ParseFloat(v.Location.Longitude, 64)
	if errLat == nil && errLon == nil {
		loc.Coordinates = &geo.Point{Lat: lat, Lon: lon}
	}
	return loc
}

// imageURL は最も幅の広い画像を選ぶ
func (r catalogEvent) imageURL() string {
	best, width := "", -1
	for _, img := range r.Images {
		if img.URL != "" && img.Width > width {
			best, width = img.URL, img.Width
		}
	}
	return best
}

func (r catalogEvent) price() *event.Price {
	if len(r.PriceRanges) == 0 {
		return nil
	}
	p := r.PriceRanges[0]
	if p.Min <= 0 {
		return &event.Price{Free: true}
	}
	currency := strings.ToUpper(p.Currency)
	amount := p.Min
	if !zeroDecimalCurrencies[currency] {
		amount *= 100
	}
	return &event.Price{Amount: int64(math.Round(amount)), Currency: currency}
}

func (r catalogEvent) category() event.Category {
	if len(r.Classifications) == 0 {
		return event.CategoryOther
	}
	c := r.Classifications[0]
	switch strings.ToLower(c.Segment.Name) {
	case "music":
		return event.CategoryMusic
	case "sports":
		return event.CategorySports
	case "arts & theatre", "film":
		return event.CategoryArts
	}
	genre := strings.ToLower(c.Genre.Name)
	switch {
	case strings.Contains(genre, "food"):
		return event.CategoryFood
	case strings.Contains(genre, "education"), strings.Contains(genre, "lecture"):
		return event.CategoryEducation
	}
	return event.CategoryOther
}

func statusFromCode(code string) event.Status {
	switch strings.ToLower(code) {
	case "cancelled", "canceled":
		return event.StatusCancelled
	case "rescheduled", "postponed":
		return event.StatusRescheduled
	}
	return event.StatusActive
}
