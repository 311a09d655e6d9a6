package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/eventrepo"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

func testEvent() *event.Event {
	start := time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	capacity := 30
	d := 1.2
	return &event.Event{
		ID:           "5f0c7a3e-2b7d-4c41-9a1e-0d3c2b1a0f11",
		Title:        "ジャズナイト",
		Description:  "生演奏",
		Category:     event.CategoryMusic,
		Location:     event.Location{Address: "東京都渋谷区", Coordinates: &geo.Point{Lat: 35.658, Lon: 139.7016}},
		DateTime:     start,
		EndDateTime:  &end,
		Source:       event.SourceUserCreated,
		OrganizerID:  "alice",
		Price:        &event.Price{Amount: 2000, Currency: "JPY"},
		MaxAttendees: &capacity,
		Status:       event.StatusActive,
		Distance:     &d,
		CreatedAt:    start.Add(-24 * time.Hour),
		UpdatedAt:    start.Add(-24 * time.Hour),
	}
}

func TestEventCache(t *testing.T) {
	client, s := setupTestRedis(t)
	cache := NewEventCache(client)
	ctx := context.Background()
	e := testEvent()

	t.Run("キャッシュミス時はErrCacheMissを返す", func(t *testing.T) {
		_, err := cache.Get(ctx, e.ID)
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.ErrorIs(t, err, eventrepo.ErrCacheMiss)
	})

	t.Run("キャッシュにセットした値を取得できる", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, e))

		got, err := cache.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.Title, got.Title)
		assert.Equal(t, e.Category, got.Category)
		assert.Equal(t, *e.Location.Coordinates, *got.Location.Coordinates)
		assert.True(t, e.DateTime.Equal(got.DateTime))
		assert.True(t, e.EndDateTime.Equal(*got.EndDateTime))
		assert.Equal(t, *e.Price, *got.Price)
		assert.Equal(t, 30, *got.MaxAttendees)
		assert.Equal(t, event.SourceUserCreated, got.Source)
		assert.Nil(t, got.Distance)
	})

	t.Run("期限は設定しない", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), s.TTL("event:"+e.ID))
	})

	t.Run("キャッシュを無効化できる", func(t *testing.T) {
		require.NoError(t, cache.Delete(ctx, e.ID))

		_, err := cache.Get(ctx, e.ID)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("不正な値はデコードエラー", func(t *testing.T) {
		require.NoError(t, s.Set("event:broken", "{not json"))

		_, err := cache.Get(ctx, "broken")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCacheMiss)
	})
}

func TestEventCache_Fill(t *testing.T) {
	ctx := context.Background()

	t.Run("世代が変わっていなければ保存する", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		cache := NewEventCache(client)
		e := testEvent()

		gen, err := cache.Generation(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), gen)
		require.NoError(t, cache.Fill(ctx, e, gen))

		got, err := cache.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.Title, got.Title)
	})

	t.Run("別レプリカの削除後は古い世代で保存できない", func(t *testing.T) {
		client, s := setupTestRedis(t)
		reader := NewEventCache(client)
		writer := NewEventCache(client)
		e := testEvent()

		gen, err := reader.Generation(ctx, e.ID)
		require.NoError(t, err)
		require.NoError(t, writer.Delete(ctx, e.ID))
		require.NoError(t, reader.Fill(ctx, e, gen))

		_, err = reader.Get(ctx, e.ID)
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.True(t, s.Exists("event:gen:"+e.ID))
	})

	t.Run("Setの値は古い世代のFillで上書きされない", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		cache := NewEventCache(client)
		stale := testEvent()
		fresh := testEvent()
		fresh.Title = "新タイトル"

		gen, err := cache.Generation(ctx, stale.ID)
		require.NoError(t, err)
		require.NoError(t, cache.Set(ctx, fresh))
		require.NoError(t, cache.Fill(ctx, stale, gen))

		got, err := cache.Get(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, "新タイトル", got.Title)

		next, err := cache.Generation(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), next)
	})
}

func TestEventCache_WithCachedRepository(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewEventCache(client)
	ctx := context.Background()

	// 別プロセスが保存した値を共有できる
	require.NoError(t, cache.Set(ctx, testEvent()))
	other := NewEventCache(client)

	got, err := other.Get(ctx, testEvent().ID)
	require.NoError(t, err)
	assert.Equal(t, "ジャズナイト", got.Title)
}
