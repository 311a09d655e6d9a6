package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
)

func TestAttendanceHandler_Join(t *testing.T) {
	e := NewTestEcho()

	tests := []struct {
		name         string
		serviceErr   error
		expectedCode int
	}{
		{name: "参加できる", expectedCode: http.StatusNoContent},
		{name: "参加済み", serviceErr: event.ErrAlreadyAttendingEvent, expectedCode: http.StatusConflict},
		{name: "定員超過", serviceErr: event.ErrEventFull, expectedCode: http.StatusConflict},
		{name: "中止済み", serviceErr: event.ErrEventCancelled, expectedCode: http.StatusBadRequest},
		{name: "存在しない", serviceErr: event.ErrEventNotFound, expectedCode: http.StatusNotFound},
		{name: "未ログイン", serviceErr: event.ErrCallerUnknown, expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAttendanceService)
			mockService.On("JoinEvent", mock.Anything, "event-123").Return(tt.serviceErr)
			handler := NewAttendanceHandler(mockService)
			c, rec := newJSONContext(e, http.MethodPost, "/api/v1/events/event-123/attendees", "")
			c.SetParamNames("id")
			c.SetParamValues("event-123")

			err := handler.Join(c)

			if tt.serviceErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedCode, rec.Code)
			} else {
				requireHTTPError(t, err, tt.expectedCode)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestAttendanceHandler_Leave(t *testing.T) {
	e := NewTestEcho()

	tests := []struct {
		name         string
		serviceErr   error
		expectedCode int
	}{
		{name: "参加を取り消せる", expectedCode: http.StatusNoContent},
		{name: "未参加", serviceErr: event.ErrNotAttendingEvent, expectedCode: http.StatusConflict},
		{name: "外部イベント", serviceErr: event.ErrExternalEventReadOnly, expectedCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAttendanceService)
			mockService.On("LeaveEvent", mock.Anything, "event-123").Return(tt.serviceErr)
			handler := NewAttendanceHandler(mockService)
			c, rec := newJSONContext(e, http.MethodDelete, "/api/v1/events/event-123/attendees", "")
			c.SetParamNames("id")
			c.SetParamValues("event-123")

			err := handler.Leave(c)

			if tt.serviceErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedCode, rec.Code)
				return
			}
			requireHTTPError(t, err, tt.expectedCode)
		})
	}
}

func TestAttendanceHandler_List(t *testing.T) {
	e := NewTestEcho()

	t.Run("参加者一覧を返す", func(t *testing.T) {
		mockService := new(MockAttendanceService)
		mockService.On("GetAttendees", mock.Anything, "event-123").Return([]string{"user-1", "user-2"}, nil)
		handler := NewAttendanceHandler(mockService)
		c, rec := newJSONContext(e, http.MethodGet, "/api/v1/events/event-123/attendees", "")
		c.SetParamNames("id")
		c.SetParamValues("event-123")

		require.NoError(t, handler.List(c))

		var resp AttendeesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "event-123", resp.EventID)
		assert.Equal(t, []string{"user-1", "user-2"}, resp.Attendees)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("参加者なしは空配列", func(t *testing.T) {
		mockService := new(MockAttendanceService)
		mockService.On("GetAttendees", mock.Anything, "event-123").Return([]string{}, nil)
		handler := NewAttendanceHandler(mockService)
		c, rec := newJSONContext(e, http.MethodGet, "/api/v1/events/event-123/attendees", "")
		c.SetParamNames("id")
		c.SetParamValues("event-123")

		require.NoError(t, handler.List(c))
		assert.Contains(t, rec.Body.String(), `"attendees":[]`)
	})

	t.Run("存在しないイベント", func(t *testing.T) {
		mockService := new(MockAttendanceService)
		mockService.On("GetAttendees", mock.Anything, "missing").Return(nil, event.ErrEventNotFound)
		handler := NewAttendanceHandler(mockService)
		c, _ := newJSONContext(e, http.MethodGet, "/api/v1/events/missing/attendees", "")
		c.SetParamNames("id")
		c.SetParamValues("missing")

		requireHTTPError(t, handler.List(c), http.StatusNotFound)
	})
}
