package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-nearby-events/internal/api"
)

type UserHandler struct {
	eventService EventServiceInterface
}

func NewUserHandler(eventService EventServiceInterface) *UserHandler {
	return &UserHandler{eventService: eventService}
}

// CreatedEvents godoc
// @Summary ユーザーが作成したイベント一覧
// @Tags users
// @Produce json
// @Param id path string true "ユーザーID"
// @Param lat query number false "現在地の緯度"
// @Param lon query number false "現在地の経度"
// @Success 200 {array} EventResponse
// @Router /users/{id}/events/created [get]
func (h *UserHandler) CreatedEvents(c echo.Context) error {
	if err := withCallerLocation(c); err != nil {
		return err
	}
	events, err := h.eventService.GetUserCreatedEvents(c.Request().Context(), c.Param("id"))
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}

// JoinedEvents godoc
// @Summary ユーザーが参加しているイベント一覧
// @Tags users
// @Produce json
// @Param id path string true "ユーザーID"
// @Param lat query number false "現在地の緯度"
// @Param lon query number false "現在地の経度"
// @Success 200 {array} EventResponse
// @Router /users/{id}/events/joined [get]
func (h *UserHandler) JoinedEvents(c echo.Context) error {
	if err := withCallerLocation(c); err != nil {
		return err
	}
	events, err := h.eventService.GetUserJoinedEvents(c.Request().Context(), c.Param("id"))
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}
