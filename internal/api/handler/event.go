package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-nearby-events/internal/api"
	"github.com/sanosuguru/go-nearby-events/internal/application"
	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
)

type EventHandler struct {
	eventService EventServiceInterface
}

func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type CreateEventRequest struct {
	Title        string          `json:"title" validate:"required,max=200" example:"代々木公園ピクニック"`
	Description  string          `json:"description" validate:"max=5000" example:"お弁当持参で集まりましょう"`
	Category     string          `json:"category" example:"outdoors"`
	Location     LocationRequest `json:"location"`
	DateTime     string          `json:"date_time" validate:"required" example:"2026-11-03T11:00:00+09:00"`
	EndDateTime  *string         `json:"end_date_time" example:"2026-11-03T15:00:00+09:00"`
	ImageURL     string          `json:"image_url" validate:"omitempty,url"`
	Price        *PriceRequest   `json:"price"`
	MaxAttendees *int            `json:"max_attendees" example:"20"`
}

// UpdateEventRequest は部分更新のリクエスト。省略したフィールドは変更しない
type UpdateEventRequest struct {
	Title             *string          `json:"title" validate:"omitempty,max=200"`
	Description       *string          `json:"description" validate:"omitempty,max=5000"`
	Category          *string          `json:"category"`
	Location          *LocationRequest `json:"location"`
	DateTime          *string          `json:"date_time"`
	EndDateTime       *string          `json:"end_date_time"`
	ClearEndDateTime  bool             `json:"clear_end_date_time"`
	ImageURL          *string          `json:"image_url" validate:"omitempty,url"`
	Price             *PriceRequest    `json:"price"`
	MaxAttendees      *int             `json:"max_attendees"`
	ClearMaxAttendees bool             `json:"clear_max_attendees"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required" example:"CANCELLED"`
}

// Create godoc
// @Summary イベントを作成
// @Description ログインユーザーを主催者としてイベントを作成し、主催者を参加者に加えます
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	dateTime, err := parseTime(req.DateTime, "開始日時")
	if err != nil {
		return err
	}
	endDateTime, err := parseOptionalTime(req.EndDateTime, "終了日時")
	if err != nil {
		return err
	}
	category, err := parseCategory(req.Category)
	if err != nil {
		return api.NewHTTPError(err)
	}
	location, err := req.Location.toLocation()
	if err != nil {
		return err
	}

	e, err := h.eventService.CreateUserEvent(c.Request().Context(), application.CreateEventInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     category,
		Location:     location,
		DateTime:     dateTime,
		EndDateTime:  endDateTime,
		ImageURL:     req.ImageURL,
		Price:        req.Price.toPrice(),
		MaxAttendees: req.MaxAttendees,
	})
	if err != nil {
		return api.NewHTTPError(err)
	}

	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Description 指定IDのイベントを取得します。lat/lon を指定すると距離を付与します
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Param lat query number false "現在地の緯度"
// @Param lon query number false "現在地の経度"
// @Success 200 {object} EventResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	if err := withCallerLocation(c); err != nil {
		return err
	}

	e, err := h.eventService.GetEventDetails(c.Request().Context(), c.Param("id"))
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// Update godoc
// @Summary イベントを更新
// @Description 主催者が指定したフィールドのみ更新します。ACTIVE のイベントの日時を変更すると RESCHEDULED になります
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "イベントID"
// @Param request body UpdateEventRequest true "変更内容"
// @Success 200 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [put]
func (h *EventHandler) Update(c echo.Context) error {
	var req UpdateEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	changes, err := req.toChanges()
	if err != nil {
		return err
	}

	e, err := h.eventService.UpdateUserEvent(c.Request().Context(), application.UpdateEventInput{
		ID:      c.Param("id"),
		Changes: changes,
	})
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

func (r UpdateEventRequest) toChanges() (event.Changes, error) {
	changes := event.Changes{
		Title:             r.Title,
		Description:       r.Description,
		ImageURL:          r.ImageURL,
		Price:             r.Price.toPrice(),
		MaxAttendees:      r.MaxAttendees,
		ClearEndDateTime:  r.ClearEndDateTime,
		ClearMaxAttendees: r.ClearMaxAttendees,
	}

	var err error
	if changes.DateTime, err = parseOptionalTime(r.DateTime, "開始日時"); err != nil {
		return event.Changes{}, err
	}
	if changes.EndDateTime, err = parseOptionalTime(r.EndDateTime, "終了日時"); err != nil {
		return event.Changes{}, err
	}
	if r.Category != nil {
		category, err := event.ParseCategory(*r.Category)
		if err != nil {
			return event.Changes{}, api.NewHTTPError(err)
		}
		changes.Category = &category
	}
	if r.Location != nil {
		location, err := r.Location.toLocation()
		if err != nil {
			return event.Changes{}, err
		}
		changes.Location = &location
	}
	return changes, nil
}

// UpdateStatus godoc
// @Summary イベントのステータスを変更
// @Description 主催者のみ変更できます。CANCELLED からは戻せません
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "イベントID"
// @Param request body UpdateStatusRequest true "新しいステータス"
// @Success 200 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id}/status [patch]
func (h *EventHandler) UpdateStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	status, err := event.ParseStatus(req.Status)
	if err != nil {
		return api.NewHTTPError(err)
	}

	e, err := h.eventService.UpdateEventStatus(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// Delete godoc
// @Summary イベントを削除
// @Description 主催者がイベントと参加記録を削除します
// @Tags events
// @Security BearerAuth
// @Param id path string true "イベントID"
// @Success 204
// @Failure 400 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	if err := h.eventService.DeleteUserEvent(c.Request().Context(), c.Param("id")); err != nil {
		return api.NewHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
