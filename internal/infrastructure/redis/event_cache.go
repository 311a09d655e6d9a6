package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/eventrepo"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// ErrCacheMiss はキャッシュにイベントがない場合のエラー
var ErrCacheMiss = eventrepo.ErrCacheMiss

// EventCache はイベントをJSONでRedisに保存する共有キャッシュ。
// レプリカ間で共有するため期限は設定しない。
// 世代は event:gen:<id> に保存し、削除後も残して古い読み取り結果の書き戻しを防ぐ。
type EventCache struct {
	client *redis.Client
}

func NewEventCache(client *redis.Client) *EventCache {
	return &EventCache{client: client}
}

// cachedEvent はキャッシュ上の表現。距離は保存しない
type cachedEvent struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Category     string      `json:"category"`
	Address      string      `json:"address,omitempty"`
	Coordinates  *geo.Point  `json:"coordinates,omitempty"`
	DateTime     time.Time   `json:"date_time"`
	EndDateTime  *time.Time  `json:"end_date_time,omitempty"`
	ImageURL     string      `json:"image_url,omitempty"`
	Source       string      `json:"source"`
	OrganizerID  string      `json:"organizer_id,omitempty"`
	ExternalID   string      `json:"external_id,omitempty"`
	ExternalURL  string      `json:"external_url,omitempty"`
	Price        *cachePrice `json:"price,omitempty"`
	MaxAttendees *int        `json:"max_attendees,omitempty"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type cachePrice struct {
	Free     bool   `json:"free"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

func toCached(e *event.Event) cachedEvent {
	c := cachedEvent{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Category:     string(e.Category),
		Address:      e.Location.Address,
		Coordinates:  e.Location.Coordinates,
		DateTime:     e.DateTime,
		EndDateTime:  e.EndDateTime,
		ImageURL:     e.ImageURL,
		Source:       string(e.Source),
		OrganizerID:  e.OrganizerID,
		ExternalID:   e.ExternalID,
		ExternalURL:  e.ExternalURL,
		MaxAttendees: e.MaxAttendees,
		Status:       string(e.Status),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.Price != nil {
		c.Price = &cachePrice{Free: e.Price.Free, Amount: e.Price.Amount, Currency: e.Price.Currency}
	}
	return c
}

func (c cachedEvent) toEntity() *event.Event {
	e := &event.Event{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Category:     event.Category(c.Category),
		Location:     event.Location{Address: c.Address, Coordinates: c.Coordinates},
		DateTime:     c.DateTime,
		EndDateTime:  c.EndDateTime,
		ImageURL:     c.ImageURL,
		Source:       event.Source(c.Source),
		OrganizerID:  c.OrganizerID,
		ExternalID:   c.ExternalID,
		ExternalURL:  c.ExternalURL,
		MaxAttendees: c.MaxAttendees,
		Status:       event.Status(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.Price != nil {
		e.Price = &event.Price{Free: c.Price.Free, Amount: c.Price.Amount, Currency: c.Price.Currency}
	}
	return e
}

// Get はキャッシュからイベントを取得する
func (c *EventCache) Get(ctx context.Context, id string) (*event.Event, error) {
	raw, err := c.client.Get(ctx, c.eventKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}

	var cached cachedEvent
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("キャッシュのデコードに失敗: %w", err)
	}
	return cached.toEntity(), nil
}

// Set はイベントをキャッシュに保存し、世代を進める
func (c *EventCache) Set(ctx context.Context, e *event.Event) error {
	if e == nil || e.ID == "" {
		return nil
	}
	raw, err := json.Marshal(toCached(e))
	if err != nil {
		return fmt.Errorf("キャッシュのエンコードに失敗: %w", err)
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.generationKey(e.ID))
		pipe.Set(ctx, c.eventKey(e.ID), raw, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Delete はイベントのキャッシュを無効化する。世代は残す
func (c *EventCache) Delete(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.generationKey(id))
		pipe.Del(ctx, c.eventKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

// Generation はキーの世代を返す
func (c *EventCache) Generation(ctx context.Context, id string) (uint64, error) {
	return generation(ctx, c.client, c.generationKey(id))
}

// Fill は世代が gen のままの場合だけ保存する。
// 世代キーを WATCH し、保存までに他の書き込みがあればトランザクションごと捨てる。
func (c *EventCache) Fill(ctx context.Context, e *event.Event, gen uint64) error {
	if e == nil || e.ID == "" {
		return nil
	}
	raw, err := json.Marshal(toCached(e))
	if err != nil {
		return fmt.Errorf("キャッシュのエンコードに失敗: %w", err)
	}

	genKey := c.generationKey(e.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.eventKey(e.ID), raw, 0)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

func generation(ctx context.Context, cmd redis.Cmdable, key string) (uint64, error) {
	gen, err := cmd.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("キャッシュ世代の取得に失敗: %w", err)
	}
	return gen, nil
}

func (c *EventCache) eventKey(id string) string {
	return fmt.Sprintf("event:%s", id)
}

func (c *EventCache) generationKey(id string) string {
	return fmt.Sprintf("event:gen:%s", id)
}

var _ eventrepo.Cache = (*EventCache)(nil)
