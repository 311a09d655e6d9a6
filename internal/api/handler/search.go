package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-nearby-events/internal/api"
	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
)

type SearchHandler struct {
	searchService SearchServiceInterface
}

func NewSearchHandler(searchService SearchServiceInterface) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Nearby godoc
// @Summary 周辺のイベントを検索
// @Description 外部カタログとユーザー作成イベントを統合し、開始日時順で返します
// @Tags search
// @Produce json
// @Param lat query number true "緯度"
// @Param lon query number true "経度"
// @Param radius_km query number false "検索半径（km, 最大500）" default(10)
// @Success 200 {array} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events/nearby [get]
func (h *SearchHandler) Nearby(c echo.Context) error {
	center, radius, err := parseSearchArea(c)
	if err != nil {
		return err
	}
	events, err := h.searchService.SearchNearby(c.Request().Context(), center, radius)
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}

// ByCategory godoc
// @Summary カテゴリで周辺のイベントを検索
// @Tags search
// @Produce json
// @Param category path string true "カテゴリ" Enums(music, sports, arts, food, technology, social, outdoors, education, other)
// @Param lat query number true "緯度"
// @Param lon query number true "経度"
// @Param radius_km query number false "検索半径（km, 最大500）" default(10)
// @Success 200 {array} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events/category/{category} [get]
func (h *SearchHandler) ByCategory(c echo.Context) error {
	center, radius, err := parseSearchArea(c)
	if err != nil {
		return err
	}
	category, err := event.ParseCategory(c.Param("category"))
	if err != nil {
		return api.NewHTTPError(err)
	}
	events, err := h.searchService.SearchByCategory(c.Request().Context(), center, radius, category)
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}

// Search godoc
// @Summary キーワードで周辺のイベントを検索
// @Description タイトルの部分一致（大文字小文字を区別しない）で絞り込みます
// @Tags search
// @Produce json
// @Param q query string true "キーワード"
// @Param lat query number true "緯度"
// @Param lon query number true "経度"
// @Param radius_km query number false "検索半径（km, 最大500）" default(10)
// @Success 200 {array} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events/search [get]
func (h *SearchHandler) Search(c echo.Context) error {
	center, radius, err := parseSearchArea(c)
	if err != nil {
		return err
	}
	events, err := h.searchService.SearchByName(c.Request().Context(), center, radius, c.QueryParam("q"))
	if err != nil {
		return api.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}
