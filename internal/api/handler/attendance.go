package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-nearby-events/internal/api"
)

type AttendanceHandler struct {
	attendanceService AttendanceServiceInterface
}

func NewAttendanceHandler(attendanceService AttendanceServiceInterface) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService}
}

// Join godoc
// @Summary イベントに参加
// @Tags attendance
// @Security BearerAuth
// @Param id path string true "イベントID"
// @Success 204
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "参加済み・定員超過"
// @Router /events/{id}/attendees [post]
func (h *AttendanceHandler) Join(c echo.Context) error {
	if err := h.attendanceService.JoinEvent(c.Request().Context(), c.Param("id")); err != nil {
		return api.NewHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Leave godoc
// @Summary イベントの参加を取り消す
// @Tags attendance
// @Security BearerAuth
// @Param id path string true "イベントID"
// @Success 204
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "未参加"
// @Router /events/{id}/attendees [delete]
func (h *AttendanceHandler) Leave(c echo.Context) error {
	if err := h.attendanceService.LeaveEvent(c.Request().Context(), c.Param("id")); err != nil {
		return api.NewHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List godoc
// @Summary 参加者一覧を取得
// @Tags attendance
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} AttendeesResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id}/attendees [get]
func (h *AttendanceHandler) List(c echo.Context) error {
	eventID := c.Param("id")
	attendees, err := h.attendanceService.GetAttendees(c.Request().Context(), eventID)
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, AttendeesResponse{
		EventID:   eventID,
		Attendees: attendees,
		Count:     len(attendees),
	})
}
