package eventrepo

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
)

// CachedRepository は event.Repository をキャッシュでラップするデコレーター。
// キャッシュの障害はログに残してキャッシュミスとして扱い、呼び出しは失敗させない。
type CachedRepository struct {
	next    event.Repository
	cache   Cache
	metrics *metrics.Metrics
}

// NewCachedRepository はCachedRepositoryを作成する。m は nil でもよい
func NewCachedRepository(next event.Repository, cache Cache, m *metrics.Metrics) *CachedRepository {
	return &CachedRepository{next: next, cache: cache, metrics: m}
}

func (r *CachedRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	cached, err := r.cache.Get(ctx, id)
	switch {
	case err == nil:
		r.countLookup("hit")
		logger.Debug("キャッシュヒット", zap.String("event_id", id))
		return cached, nil
	case errors.Is(err, ErrCacheMiss):
		r.countLookup("miss")
	default:
		r.countLookup("error")
		logger.Warn("キャッシュ取得エラー", zap.String("event_id", id), zap.Error(err))
	}

	// 委譲前に世代を読み、取得中に更新や削除があれば結果をキャッシュしない
	gen, genErr := r.cache.Generation(ctx, id)
	if genErr != nil {
		logger.Warn("キャッシュ世代の取得エラー", zap.String("event_id", id), zap.Error(genErr))
	}

	e, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		r.fill(ctx, e, gen)
	}
	return e, nil
}

func (r *CachedRepository) SearchNearby(ctx context.Context, center geo.Point, radiusKm float64) ([]*event.Event, error) {
	events, err := r.next.SearchNearby(ctx, center, radiusKm)
	return r.storeAll(ctx, events, err)
}

func (r *CachedRepository) SearchByCategory(ctx context.Context, center geo.Point, radiusKm float64, category event.Category) ([]*event.Event, error) {
	events, err := r.next.SearchByCategory(ctx, center, radiusKm, category)
	return r.storeAll(ctx, events, err)
}

func (r *CachedRepository) SearchByName(ctx context.Context, center geo.Point, radiusKm float64, query string) ([]*event.Event, error) {
	events, err := r.next.SearchByName(ctx, center, radiusKm, query)
	return r.storeAll(ctx, events, err)
}

func (r *CachedRepository) GetUserCreatedEvents(ctx context.Context, organizerID string) ([]*event.Event, error) {
	events, err := r.next.GetUserCreatedEvents(ctx, organizerID)
	return r.storeAll(ctx, events, err)
}

func (r *CachedRepository) GetUserJoinedEvents(ctx context.Context, userID string) ([]*event.Event, error) {
	events, err := r.next.GetUserJoinedEvents(ctx, userID)
	return r.storeAll(ctx, events, err)
}

func (r *CachedRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*event.Event, error) {
	return r.next.ListFinishedBefore(ctx, cutoff)
}

// CreateUserEvent は保存後、保存値をキャッシュする
func (r *CachedRepository) CreateUserEvent(ctx context.Context, e *event.Event) (*event.Event, error) {
	created, err := r.next.CreateUserEvent(ctx, e)
	if err != nil {
		return nil, err
	}
	r.store(ctx, created)
	return created, nil
}

// UpdateUserEvent は更新後、保存値でキャッシュを上書きする
func (r *CachedRepository) UpdateUserEvent(ctx context.Context, e *event.Event) (*event.Event, error) {
	updated, err := r.next.UpdateUserEvent(ctx, e)
	if err != nil {
		return nil, err
	}
	r.store(ctx, updated)
	return updated, nil
}

// DeleteUserEvent は削除後、キャッシュから取り除く
func (r *CachedRepository) DeleteUserEvent(ctx context.Context, id string) error {
	if err := r.next.DeleteUserEvent(ctx, id); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, id); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("event_id", id), zap.Error(err))
	}
	return nil
}

func (r *CachedRepository) JoinEvent(ctx context.Context, eventID, userID string) error {
	return r.next.JoinEvent(ctx, eventID, userID)
}

func (r *CachedRepository) LeaveEvent(ctx context.Context, eventID, userID string) error {
	return r.next.LeaveEvent(ctx, eventID, userID)
}

func (r *CachedRepository) GetAttendees(ctx context.Context, eventID string) ([]string, error) {
	return r.next.GetAttendees(ctx, eventID)
}

func (r *CachedRepository) ObserveUserEvents(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	return r.next.ObserveUserEvents(ctx, organizerID)
}

func (r *CachedRepository) store(ctx context.Context, e *event.Event) {
	if e == nil {
		return
	}
	if err := r.cache.Set(ctx, e); err != nil {
		logger.Warn("キャッシュ保存エラー", zap.String("event_id", e.ID), zap.Error(err))
	}
}

func (r *CachedRepository) fill(ctx context.Context, e *event.Event, gen uint64) {
	if e == nil {
		return
	}
	if err := r.cache.Fill(ctx, e, gen); err != nil {
		logger.Warn("キャッシュ保存エラー", zap.String("event_id", e.ID), zap.Error(err))
	}
}

// storeAll は検索結果をキャッシュする。
// 書き込み経路で一度でも保存か削除をしたキーは世代が 0 でないため上書きしない。
func (r *CachedRepository) storeAll(ctx context.Context, events []*event.Event, err error) ([]*event.Event, error) {
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		r.fill(ctx, e, 0)
	}
	return events, nil
}

func (r *CachedRepository) countLookup(result string) {
	if r.metrics != nil {
		r.metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
	}
}

var _ event.Repository = (*CachedRepository)(nil)
