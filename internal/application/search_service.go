package application

import (
	"context"
	"strings"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// SearchService は外部カタログとユーザー作成イベントを横断して検索する
type SearchService struct {
	repo event.Repository
}

func NewSearchService(repo event.Repository) *SearchService {
	return &SearchService{repo: repo}
}

func (s *SearchService) SearchNearby(ctx context.Context, center geo.Point, radiusKm float64) ([]*event.Event, error) {
	if err := validateRadius(radiusKm); err != nil {
		return nil, err
	}
	events, err := s.repo.SearchNearby(ctx, center, radiusKm)
	if err != nil {
		return nil, wrapErr("周辺イベント検索", err)
	}
	return EnrichAll(events, &center), nil
}

func (s *SearchService) SearchByCategory(ctx context.Context, center geo.Point, radiusKm float64, category event.Category) ([]*event.Event, error) {
	if err := validateRadius(radiusKm); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, event.ErrInvalidCategory
	}
	events, err := s.repo.SearchByCategory(ctx, center, radiusKm, category)
	if err != nil {
		return nil, wrapErr("カテゴリ検索", err)
	}
	return EnrichAll(events, &center), nil
}

func (s *SearchService) SearchByName(ctx context.Context, center geo.Point, radiusKm float64, query string) ([]*event.Event, error) {
	if err := validateRadius(radiusKm); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, event.ErrBlankQuery
	}
	events, err := s.repo.SearchByName(ctx, center, radiusKm, query)
	if err != nil {
		return nil, wrapErr("名前検索", err)
	}
	return EnrichAll(events, &center), nil
}

// validateRadius は半径が (0, MaxSearchRadiusKm] に収まるかを検証する。NaN も拒否する
func validateRadius(radiusKm float64) error {
	if !(radiusKm > 0 && radiusKm <= MaxSearchRadiusKm) {
		return event.ErrInvalidRadius
	}
	return nil
}
