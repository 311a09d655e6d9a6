package eventrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
)

func newCachedWithStore(t *testing.T) (*CachedRepository, *MockUserEventStore, *MockCatalogSource, *metrics.Metrics) {
	t.Helper()
	catalog := new(MockCatalogSource)
	store := new(MockUserEventStore)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	repo := NewCachedRepository(NewCompositeRepository(catalog, store, m), NewMemoryCache(), m)
	return repo, store, catalog, m
}

func TestCachedRepository_GetByIDAfterCreate(t *testing.T) {
	ctx := context.Background()
	repo, store, _, m := newCachedWithStore(t)

	input := userEvent("", "勉強会", baseTime, event.CategoryEducation)
	stored := userEvent("u-1", "勉強会", baseTime, event.CategoryEducation)
	store.On("Create", ctx, input).Return(stored, nil)

	created, err := repo.CreateUserEvent(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "u-1", created.ID)

	got, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, stored.Title, got.Title)
	assert.Equal(t, stored.DateTime, got.DateTime)

	store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))
}

func TestCachedRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("キャッシュミス時はストアから取得してキャッシュする", func(t *testing.T) {
		repo, store, _, m := newCachedWithStore(t)
		store.On("GetByID", ctx, "u-1").Return(userEvent("u-1", "A", baseTime, event.CategoryOther), nil).Once()

		_, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		_, err = repo.GetByID(ctx, "u-1")
		require.NoError(t, err)

		store.AssertNumberOfCalls(t, "GetByID", 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))
	})

	t.Run("見つからない場合はキャッシュしない", func(t *testing.T) {
		repo, store, _, _ := newCachedWithStore(t)
		store.On("GetByID", ctx, "missing").Return(nil, event.ErrEventNotFound)

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, event.ErrEventNotFound)
		_, err = repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, event.ErrEventNotFound)

		store.AssertNumberOfCalls(t, "GetByID", 2)
	})

	t.Run("返却値を変更してもキャッシュに影響しない", func(t *testing.T) {
		repo, store, _, _ := newCachedWithStore(t)
		store.On("GetByID", ctx, "u-1").Return(userEvent("u-1", "元のタイトル", baseTime, event.CategoryOther), nil)

		first, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		first.Title = "書き換え"

		second, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "元のタイトル", second.Title)
	})
}

func TestCachedRepository_CacheFailure(t *testing.T) {
	ctx := context.Background()
	e := userEvent("u-1", "A", baseTime, event.CategoryOther)

	t.Run("保存に失敗しても取得は成功する", func(t *testing.T) {
		store := new(MockUserEventStore)
		cache := new(MockCache)
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		repo := NewCachedRepository(NewCompositeRepository(new(MockCatalogSource), store, nil), cache, m)

		cache.On("Get", ctx, "u-1").Return(nil, errors.New("redis down"))
		cache.On("Generation", ctx, "u-1").Return(uint64(0), nil)
		cache.On("Fill", ctx, e, uint64(0)).Return(errors.New("redis down"))
		store.On("GetByID", ctx, "u-1").Return(e, nil)

		got, err := repo.GetByID(ctx, "u-1")

		require.NoError(t, err)
		assert.Equal(t, e, got)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("error")))
	})

	t.Run("世代が取得できない場合はキャッシュしない", func(t *testing.T) {
		store := new(MockUserEventStore)
		cache := new(MockCache)
		repo := NewCachedRepository(NewCompositeRepository(new(MockCatalogSource), store, nil), cache, nil)

		cache.On("Get", ctx, "u-1").Return(nil, ErrCacheMiss)
		cache.On("Generation", ctx, "u-1").Return(uint64(0), errors.New("redis down"))
		store.On("GetByID", ctx, "u-1").Return(e, nil)

		got, err := repo.GetByID(ctx, "u-1")

		require.NoError(t, err)
		assert.Equal(t, e, got)
		cache.AssertNotCalled(t, "Fill", mock.Anything, mock.Anything, mock.Anything)
	})
}

// blockFirstGetByID は最初の GetByID をストアから値を読んだ状態で止める
func blockFirstGetByID(ctx context.Context, store *MockUserEventStore, id string, value *event.Event) (started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	store.On("GetByID", ctx, id).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(value, nil).Once()
	return started, release
}

func TestCachedRepository_ConcurrentMissAndWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("取得中に削除されたイベントは書き戻さない", func(t *testing.T) {
		repo, store, _, _ := newCachedWithStore(t)
		started, release := blockFirstGetByID(ctx, store, "u-1", userEvent("u-1", "A", baseTime, event.CategoryOther))
		store.On("GetByID", ctx, "u-1").Return(nil, event.ErrEventNotFound)
		store.On("Delete", ctx, "u-1").Return(nil)

		done := make(chan error, 1)
		go func() {
			_, err := repo.GetByID(ctx, "u-1")
			done <- err
		}()
		<-started
		require.NoError(t, repo.DeleteUserEvent(ctx, "u-1"))
		close(release)
		require.NoError(t, <-done)

		_, err := repo.GetByID(ctx, "u-1")
		assert.ErrorIs(t, err, event.ErrEventNotFound)
	})

	t.Run("取得中に更新された場合は新しい値を残す", func(t *testing.T) {
		repo, store, _, _ := newCachedWithStore(t)
		updated := userEvent("u-1", "新タイトル", baseTime, event.CategoryOther)
		started, release := blockFirstGetByID(ctx, store, "u-1", userEvent("u-1", "旧タイトル", baseTime, event.CategoryOther))
		store.On("Update", ctx, mock.Anything).Return(updated, nil)

		done := make(chan error, 1)
		go func() {
			_, err := repo.GetByID(ctx, "u-1")
			done <- err
		}()
		<-started
		_, err := repo.UpdateUserEvent(ctx, updated)
		require.NoError(t, err)
		close(release)
		require.NoError(t, <-done)

		got, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "新タイトル", got.Title)
		store.AssertNumberOfCalls(t, "GetByID", 1)
	})

	t.Run("削除後の検索結果はキャッシュしない", func(t *testing.T) {
		repo, store, catalog, _ := newCachedWithStore(t)
		stale := userEvent("u-1", "A", baseTime, event.CategoryOther)
		catalog.On("SearchNearby", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*event.Event{}, nil)
		store.On("SearchByLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				assert.NoError(t, repo.DeleteUserEvent(ctx, "u-1"))
			}).
			Return([]*event.Event{stale}, nil)
		store.On("Delete", ctx, "u-1").Return(nil)
		store.On("GetByID", ctx, "u-1").Return(nil, event.ErrEventNotFound)

		_, err := repo.SearchNearby(ctx, shibuya, 10)
		require.NoError(t, err)

		_, err = repo.GetByID(ctx, "u-1")
		assert.ErrorIs(t, err, event.ErrEventNotFound)
	})
}

func TestCachedRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo, store, _, _ := newCachedWithStore(t)

	original := userEvent("u-1", "旧タイトル", baseTime, event.CategoryOther)
	updated := userEvent("u-1", "新タイトル", baseTime, event.CategoryOther)
	store.On("Create", ctx, original).Return(original, nil)
	store.On("Update", ctx, mock.Anything).Return(updated, nil)
	store.On("Delete", ctx, "u-1").Return(nil)
	store.On("GetByID", ctx, "u-1").Return(nil, event.ErrEventNotFound)

	_, err := repo.CreateUserEvent(ctx, original)
	require.NoError(t, err)
	_, err = repo.UpdateUserEvent(ctx, original)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "新タイトル", got.Title)

	require.NoError(t, repo.DeleteUserEvent(ctx, "u-1"))

	_, err = repo.GetByID(ctx, "u-1")
	assert.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestCachedRepository_DeleteFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo, store, _, _ := newCachedWithStore(t)

	e := userEvent("u-1", "A", baseTime, event.CategoryOther)
	store.On("Create", ctx, e).Return(e, nil)
	store.On("Delete", ctx, "u-1").Return(errors.New("db down"))

	_, err := repo.CreateUserEvent(ctx, e)
	require.NoError(t, err)
	require.Error(t, repo.DeleteUserEvent(ctx, "u-1"))

	got, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
}

func TestCachedRepository_SearchPopulatesCache(t *testing.T) {
	ctx := context.Background()
	repo, store, catalog, _ := newCachedWithStore(t)

	catalog.On("SearchNearby", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*event.Event{catalogEvent("ext-1", "ライブ", baseTime, event.CategoryMusic)}, nil)
	store.On("SearchByLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*event.Event{}, nil)

	events, err := repo.SearchNearby(ctx, shibuya, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got, err := repo.GetByID(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, event.SourceExternalCatalog, got.Source)
	store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCachedRepository_PassThrough(t *testing.T) {
	ctx := context.Background()
	repo, store, _, _ := newCachedWithStore(t)

	store.On("JoinEvent", ctx, "u-1", "user-2").Return(event.ErrEventNotFound)
	store.On("LeaveEvent", ctx, "u-1", "user-2").Return(nil)
	store.On("GetAttendees", ctx, "u-1").Return([]string{"user-2"}, nil)

	assert.ErrorIs(t, repo.JoinEvent(ctx, "u-1", "user-2"), event.ErrEventNotFound)
	assert.NoError(t, repo.LeaveEvent(ctx, "u-1", "user-2"))
	attendees, err := repo.GetAttendees(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-2"}, attendees)
}
