package eventrepo

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
)

// === Mock implementations ===

// MockCatalogSource implements event.CatalogSource
type MockCatalogSource struct {
	mock.Mock
}

func (m *MockCatalogSource) SearchNearby(ctx context.Context, lat, lon, radiusKm float64) ([]*event.Event, error) {
	args := m.Called(ctx, lat, lon, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockCatalogSource) SearchByCategory(ctx context.Context, lat, lon, radiusKm float64, category event.Category) ([]*event.Event, error) {
	args := m.Called(ctx, lat, lon, radiusKm, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

// MockUserEventStore implements event.UserEventStore
type MockUserEventStore struct {
	mock.Mock
}

func (m *MockUserEventStore) Create(ctx context.Context, e *event.Event) (*event.Event, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockUserEventStore) Update(ctx context.Context, e *event.Event) (*event.Event, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockUserEventStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserEventStore) GetByID(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockUserEventStore) SearchByLocation(ctx context.Context, organizerID *string, lat, lon, radiusKm float64) ([]*event.Event, error) {
	args := m.Called(ctx, organizerID, lat, lon, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockUserEventStore) JoinEvent(ctx context.Context, eventID, userID string) error {
	args := m.Called(ctx, eventID, userID)
	return args.Error(0)
}

func (m *MockUserEventStore) LeaveEvent(ctx context.Context, eventID, userID string) error {
	args := m.Called(ctx, eventID, userID)
	return args.Error(0)
}

func (m *MockUserEventStore) GetAttendees(ctx context.Context, eventID string) ([]string, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserEventStore) GetByOrganizer(ctx context.Context, organizerID string) ([]*event.Event, error) {
	args := m.Called(ctx, organizerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockUserEventStore) GetJoinedBy(ctx context.Context, userID string) ([]*event.Event, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockUserEventStore) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*event.Event, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockUserEventStore) ObserveByOrganizer(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	args := m.Called(ctx, organizerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan []*event.Event), args.Error(1)
}

// MockCache implements Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, e *event.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCache) Generation(ctx context.Context, id string) (uint64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockCache) Fill(ctx context.Context, e *event.Event, gen uint64) error {
	args := m.Called(ctx, e, gen)
	return args.Error(0)
}
