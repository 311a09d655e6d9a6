package application

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// MockEventRepository はevent.Repositoryのモック
type MockEventRepository struct {
	mock.Mock
}

var _ event.Repository = (*MockEventRepository)(nil)

func (m *MockEventRepository) events(args mock.Arguments) ([]*event.Event, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockEventRepository) single(args mock.Arguments) (*event.Event, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventRepository) SearchNearby(ctx context.Context, center geo.Point, radiusKm float64) ([]*event.Event, error) {
	return m.events(m.Called(ctx, center, radiusKm))
}

func (m *MockEventRepository) SearchByCategory(ctx context.Context, center geo.Point, radiusKm float64, category event.Category) ([]*event.Event, error) {
	return m.events(m.Called(ctx, center, radiusKm, category))
}

func (m *MockEventRepository) SearchByName(ctx context.Context, center geo.Point, radiusKm float64, query string) ([]*event.Event, error) {
	return m.events(m.Called(ctx, center, radiusKm, query))
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	return m.single(m.Called(ctx, id))
}

func (m *MockEventRepository) CreateUserEvent(ctx context.Context, e *event.Event) (*event.Event, error) {
	args := m.Called(ctx, e)
	if fn, ok := args.Get(0).(func(context.Context, *event.Event) *event.Event); ok {
		return fn(ctx, e), args.Error(1)
	}
	return m.single(args)
}

func (m *MockEventRepository) UpdateUserEvent(ctx context.Context, e *event.Event) (*event.Event, error) {
	args := m.Called(ctx, e)
	if fn, ok := args.Get(0).(func(context.Context, *event.Event) *event.Event); ok {
		return fn(ctx, e), args.Error(1)
	}
	return m.single(args)
}

func (m *MockEventRepository) DeleteUserEvent(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEventRepository) JoinEvent(ctx context.Context, eventID, userID string) error {
	return m.Called(ctx, eventID, userID).Error(0)
}

func (m *MockEventRepository) LeaveEvent(ctx context.Context, eventID, userID string) error {
	return m.Called(ctx, eventID, userID).Error(0)
}

func (m *MockEventRepository) GetAttendees(ctx context.Context, eventID string) ([]string, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockEventRepository) GetUserCreatedEvents(ctx context.Context, organizerID string) ([]*event.Event, error) {
	return m.events(m.Called(ctx, organizerID))
}

func (m *MockEventRepository) GetUserJoinedEvents(ctx context.Context, userID string) ([]*event.Event, error) {
	return m.events(m.Called(ctx, userID))
}

func (m *MockEventRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*event.Event, error) {
	return m.events(m.Called(ctx, cutoff))
}

func (m *MockEventRepository) ObserveUserEvents(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	args := m.Called(ctx, organizerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan []*event.Event), args.Error(1)
}

// staticIdentity は固定のユーザーIDを返す IdentityProvider
type staticIdentity string

func (s staticIdentity) CurrentUserID(context.Context) (string, error) {
	if s == "" {
		return "", event.ErrCallerUnknown
	}
	return string(s), nil
}

// staticLocation は固定の現在地を返す LocationProvider
type staticLocation struct {
	point *geo.Point
}

func (s staticLocation) CurrentLocation(context.Context) (geo.Point, error) {
	if s.point == nil {
		return geo.Point{}, errors.New("位置情報が許可されていません")
	}
	return *s.point, nil
}

// MockPublisher はevent.LifecyclePublisherのモック
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg event.LifecycleMessage) error {
	return m.Called(ctx, msg).Error(0)
}

// MockLocker はAttendanceLockerのモック
type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) Lock(ctx context.Context, eventID string) (func(context.Context) error, error) {
	args := m.Called(ctx, eventID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}
