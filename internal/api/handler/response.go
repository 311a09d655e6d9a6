package handler

import (
	"time"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
)

type LocationResponse struct {
	Address   string   `json:"address" example:"東京都渋谷区道玄坂1-1"`
	Latitude  *float64 `json:"latitude,omitempty" example:"35.658"`
	Longitude *float64 `json:"longitude,omitempty" example:"139.7016"`
}

type PriceResponse struct {
	Free     bool   `json:"free"`
	Amount   int64  `json:"amount,omitempty" example:"1500"`
	Currency string `json:"currency,omitempty" example:"JPY"`
}

type EventResponse struct {
	ID           string           `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Title        string           `json:"title" example:"代々木公園ピクニック"`
	Description  string           `json:"description"`
	Category     string           `json:"category" example:"outdoors"`
	Location     LocationResponse `json:"location"`
	DateTime     string           `json:"date_time" example:"2026-11-03T11:00:00+09:00"`
	EndDateTime  *string          `json:"end_date_time,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
	Source       string           `json:"source" example:"USER_CREATED"`
	OrganizerID  string           `json:"organizer_id,omitempty"`
	ExternalID   string           `json:"external_id,omitempty"`
	ExternalURL  string           `json:"external_url,omitempty"`
	Price        *PriceResponse   `json:"price,omitempty"`
	MaxAttendees *int             `json:"max_attendees,omitempty" example:"20"`
	Status       string           `json:"status" example:"ACTIVE"`
	DistanceKm   *float64         `json:"distance_km,omitempty" example:"1.25"`
	CreatedAt    *string          `json:"created_at,omitempty"`
	UpdatedAt    *string          `json:"updated_at,omitempty"`
}

type AttendeesResponse struct {
	EventID   string   `json:"event_id"`
	Attendees []string `json:"attendees"`
	Count     int      `json:"count"`
}

func toEventResponse(e *event.Event) *EventResponse {
	resp := &EventResponse{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Category:     string(e.Category),
		Location:     LocationResponse{Address: e.Location.Address},
		DateTime:     e.DateTime.Format(time.RFC3339),
		EndDateTime:  formatOptional(e.EndDateTime),
		ImageURL:     e.ImageURL,
		Source:       string(e.Source),
		OrganizerID:  e.OrganizerID,
		ExternalID:   e.ExternalID,
		ExternalURL:  e.ExternalURL,
		MaxAttendees: e.MaxAttendees,
		Status:       string(e.Status),
		DistanceKm:   e.Distance,
	}
	if p := e.Location.Coordinates; p != nil {
		lat, lon := p.Lat, p.Lon
		resp.Location.Latitude = &lat
		resp.Location.Longitude = &lon
	}
	if e.Price != nil {
		resp.Price = &PriceResponse{Free: e.Price.Free}
		if !e.Price.Free {
			resp.Price.Amount = e.Price.Amount
			resp.Price.Currency = e.Price.Currency
		}
	}
	// カタログのイベントは作成・更新日時を持たない
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = formatOptional(&e.CreatedAt)
	}
	if !e.UpdatedAt.IsZero() {
		resp.UpdatedAt = formatOptional(&e.UpdatedAt)
	}
	return resp
}

func toEventResponses(events []*event.Event) []*EventResponse {
	responses := make([]*EventResponse, len(events))
	for i, e := range events {
		responses[i] = toEventResponse(e)
	}
	return responses
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
