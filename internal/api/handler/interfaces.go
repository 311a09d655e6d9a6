package handler

import (
	"context"

	"github.com/sanosuguru/go-nearby-events/internal/application"
	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateUserEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEventDetails(ctx context.Context, id string) (*event.Event, error)
	UpdateUserEvent(ctx context.Context, input application.UpdateEventInput) (*event.Event, error)
	UpdateEventStatus(ctx context.Context, id string, next event.Status) (*event.Event, error)
	DeleteUserEvent(ctx context.Context, id string) error
	GetUserCreatedEvents(ctx context.Context, userID string) ([]*event.Event, error)
	GetUserJoinedEvents(ctx context.Context, userID string) ([]*event.Event, error)
	ObserveUserEvents(ctx context.Context, organizerID string) (<-chan []*event.Event, error)
}

// AttendanceServiceInterface は参加サービスのインターフェース
type AttendanceServiceInterface interface {
	JoinEvent(ctx context.Context, eventID string) error
	LeaveEvent(ctx context.Context, eventID string) error
	GetAttendees(ctx context.Context, eventID string) ([]string, error)
}

// SearchServiceInterface は検索サービスのインターフェース
type SearchServiceInterface interface {
	SearchNearby(ctx context.Context, center geo.Point, radiusKm float64) ([]*event.Event, error)
	SearchByCategory(ctx context.Context, center geo.Point, radiusKm float64, category event.Category) ([]*event.Event, error)
	SearchByName(ctx context.Context, center geo.Point, radiusKm float64, query string) ([]*event.Event, error)
}

var (
	_ EventServiceInterface      = (*application.EventService)(nil)
	_ AttendanceServiceInterface = (*application.AttendanceService)(nil)
	_ SearchServiceInterface     = (*application.SearchService)(nil)
)
