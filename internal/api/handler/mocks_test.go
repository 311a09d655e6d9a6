package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-nearby-events/internal/application"
	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// MockEventService はEventServiceInterfaceのモック
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) CreateUserEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) GetEventDetails(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) UpdateUserEvent(ctx context.Context, input application.UpdateEventInput) (*event.Event, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) UpdateEventStatus(ctx context.Context, id string, next event.Status) (*event.Event, error) {
	args := m.Called(ctx, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) DeleteUserEvent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEventService) GetUserCreatedEvents(ctx context.Context, userID string) ([]*event.Event, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockEventService) GetUserJoinedEvents(ctx context.Context, userID string) ([]*event.Event, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockEventService) ObserveUserEvents(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	args := m.Called(ctx, organizerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan []*event.Event), args.Error(1)
}

// MockAttendanceService はAttendanceServiceInterfaceのモック
type MockAttendanceService struct {
	mock.Mock
}

func (m *MockAttendanceService) JoinEvent(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockAttendanceService) LeaveEvent(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockAttendanceService) GetAttendees(ctx context.Context, eventID string) ([]string, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockSearchService はSearchServiceInterfaceのモック
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) SearchNearby(ctx context.Context, center geo.Point, radiusKm float64) ([]*event.Event, error) {
	args := m.Called(ctx, center, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockSearchService) SearchByCategory(ctx context.Context, center geo.Point, radiusKm float64, category event.Category) ([]*event.Event, error) {
	args := m.Called(ctx, center, radiusKm, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockSearchService) SearchByName(ctx context.Context, center geo.Point, radiusKm float64, query string) ([]*event.Event, error) {
	args := m.Called(ctx, center, radiusKm, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

// requireHTTPError はハンドラーの戻り値が指定ステータスの HTTPError であることを確認する
func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "HTTPError ではありません: %v", err)
	require.Equal(t, code, he.Code, "message: %v", he.Message)
}
