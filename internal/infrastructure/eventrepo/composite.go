package eventrepo

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
)

const (
	sourceCatalog   = "catalog"
	sourceUserStore = "user_store"
)

// CompositeRepository は外部カタログとユーザー作成イベントを1つのビューに統合する。
// 検索は両ソースへ並行に問い合わせ、失敗したソースは空の結果として扱う。
type CompositeRepository struct {
	catalog event.CatalogSource
	store   event.UserEventStore
	metrics *metrics.Metrics
}

// NewCompositeRepository はCompositeRepositoryを作成する。m は nil でもよい
func NewCompositeRepository(catalog event.CatalogSource, store event.UserEventStore, m *metrics.Metrics) *CompositeRepository {
	return &CompositeRepository{catalog: catalog, store: store, metrics: m}
}

type fetchFunc func(ctx context.Context) ([]*event.Event, error)

// SearchNearby は周辺のイベントを両ソースから検索する
func (r *CompositeRepository) SearchNearby(ctx context.Context, center geo.Point, radiusKm float64) ([]*event.Event, error) {
	return r.merge(ctx, nil,
		func(ctx context.Context) ([]*event.Event, error) {
			return r.catalog.SearchNearby(ctx, center.Lat, center.Lon, radiusKm)
		},
		func(ctx context.Context) ([]*event.Event, error) {
			return r.store.SearchByLocation(ctx, nil, center.Lat, center.Lon, radiusKm)
		},
	)
}

// SearchByCategory はカテゴリが一致する周辺のイベントを検索する
func (r *CompositeRepository) SearchByCategory(ctx context.Context, center geo.Point, radiusKm float64, category event.Category) ([]*event.Event, error) {
	keep := func(e *event.Event) bool { return e.Category == category }
	return r.merge(ctx, keep,
		func(ctx context.Context) ([]*event.Event, error) {
			return r.catalog.SearchByCategory(ctx, center.Lat, center.Lon, radiusKm, category)
		},
		func(ctx context.Context) ([]*event.Event, error) {
			return r.store.SearchByLocation(ctx, nil, center.Lat, center.Lon, radiusKm)
		},
	)
}

// SearchByName はタイトルに query を含む周辺のイベントを検索する（大文字小文字を区別しない）
func (r *CompositeRepository) SearchByName(ctx context.Context, center geo.Point, radiusKm float64, query string) ([]*event.Event, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	keep := func(e *event.Event) bool {
		return strings.Contains(strings.ToLower(e.Title), needle)
	}
	return r.merge(ctx, keep,
		func(ctx context.Context) ([]*event.Event, error) {
			return r.catalog.SearchNearby(ctx, center.Lat, center.Lon, radiusKm)
		},
		func(ctx context.Context) ([]*event.Event, error) {
			return r.store.SearchByLocation(ctx, nil, center.Lat, center.Lon, radiusKm)
		},
	)
}

func (r *CompositeRepository) merge(ctx context.Context, keep func(*event.Event) bool, catalogFetch, storeFetch fetchFunc) ([]*event.Event, error) {
	var (
		wg            sync.WaitGroup
		catalogEvents []*event.Event
		storeEvents   []*event.Event
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		catalogEvents = r.fetch(ctx, sourceCatalog, catalogFetch)
	}()
	go func() {
		defer wg.Done()
		storeEvents = r.fetch(ctx, sourceUserStore, storeFetch)
	}()
	wg.Wait()

	// 呼び出し元のキャンセルは部分結果にせずそのまま返す
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return mergeEvents(filterEvents(catalogEvents, keep), filterEvents(storeEvents, keep)), nil
}

func (r *CompositeRepository) fetch(ctx context.Context, source string, fn fetchFunc) []*event.Event {
	start := time.Now()
	events, err := fn(ctx)
	r.observeFetch(source, err, time.Since(start))
	if err != nil {
		logger.Warn("イベントソースの取得に失敗、空の結果で続行",
			zap.String("source", source),
			zap.Error(err),
		)
		return nil
	}
	return events
}

func (r *CompositeRepository) observeFetch(source string, err error, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failed"
	}
	r.metrics.SourceFetchTotal.WithLabelValues(source, result).Inc()
	r.metrics.SourceFetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func filterEvents(events []*event.Event, keep func(*event.Event) bool) []*event.Event {
	if keep == nil {
		return events
	}
	out := make([]*event.Event, 0, len(events))
	for _, e := range events {
		if e != nil && keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// mergeEvents は lists を順に連結し、IDの重複は最初の出現を残して除去し、開始日時の昇順に安定ソートする
func mergeEvents(lists ...[]*event.Event) []*event.Event {
	seen := make(map[string]struct{})
	merged := make([]*event.Event, 0)
	for _, list := range lists {
		for _, e := range list {
			if e == nil {
				continue
			}
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			merged = append(merged, e)
		}
	}
	slices.SortStableFunc(merged, func(a, b *event.Event) int {
		return a.DateTime.Compare(b.DateTime)
	})
	return merged
}

func (r *CompositeRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	return r.store.GetByID(ctx, id)
}

func (r *CompositeRepository) CreateUserEvent(ctx context.Context, e *event.Event) (*event.Event, error) {
	return r.store.Create(ctx, e)
}

func (r *CompositeRepository) UpdateUserEvent(ctx context.Context, e *event.Event) (*event.Event, error) {
	return r.store.Update(ctx, e)
}

func (r *CompositeRepository) DeleteUserEvent(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}

func (r *CompositeRepository) JoinEvent(ctx context.Context, eventID, userID string) error {
	return r.store.JoinEvent(ctx, eventID, userID)
}

func (r *CompositeRepository) LeaveEvent(ctx context.Context, eventID, userID string) error {
	return r.store.LeaveEvent(ctx, eventID, userID)
}

func (r *CompositeRepository) GetAttendees(ctx context.Context, eventID string) ([]string, error) {
	return r.store.GetAttendees(ctx, eventID)
}

func (r *CompositeRepository) GetUserCreatedEvents(ctx context.Context, organizerID string) ([]*event.Event, error) {
	return r.store.GetByOrganizer(ctx, organizerID)
}

func (r *CompositeRepository) GetUserJoinedEvents(ctx context.Context, userID string) ([]*event.Event, error) {
	return r.store.GetJoinedBy(ctx, userID)
}

func (r *CompositeRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*event.Event, error) {
	return r.store.ListFinishedBefore(ctx, cutoff)
}

func (r *CompositeRepository) ObserveUserEvents(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	return r.store.ObserveByOrganizer(ctx, organizerID)
}

// インターフェースを満たしているか確認
var _ event.Repository = (*CompositeRepository)(nil)
