package eventrepo

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// Cache はイベントキャッシュのインターフェース。
// Get はキャッシュにない場合 ErrCacheMiss を返す。
// Set と Delete はキーの世代を進める。読み取り経路からの保存は Fill を使い、
// 読み取り開始後に書き込みがあったキーは上書きしない。
type Cache interface {
	Get(ctx context.Context, id string) (*event.Event, error)
	Set(ctx context.Context, e *event.Event) error
	Delete(ctx context.Context, id string) error
	// Generation はキーの現在の世代を返す。一度も書き込まれていなければ 0
	Generation(ctx context.Context, id string) (uint64, error)
	// Fill は世代が gen のままの場合だけイベントを保存する
	Fill(ctx context.Context, e *event.Event, gen uint64) error
}

const memoryCacheShards = 16

type cacheShard struct {
	mu     sync.RWMutex
	events map[string]*event.Event
	// 削除済みのキーも世代を残し、遅れて届いた読み取り結果を弾く
	generations map[string]uint64
}

// MemoryCache はプロセス内のイベントキャッシュ。
// キーごとにシャードを分けて RWMutex で保護する。期限切れはない。
type MemoryCache struct {
	shards [memoryCacheShards]*cacheShard
}

// NewMemoryCache は新しいMemoryCacheを作成する
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{}
	for i := range c.shards {
		c.shards[i] = &cacheShard{
			events:      make(map[string]*event.Event),
			generations: make(map[string]uint64),
		}
	}
	return c
}

func (c *MemoryCache) shard(id string) *cacheShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return c.shards[h.Sum32()%memoryCacheShards]
}

// Get はキャッシュ済みイベントのコピーを返す
func (c *MemoryCache) Get(_ context.Context, id string) (*event.Event, error) {
	s := c.shard(id)
	s.mu.RLock()
	e, ok := s.events[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	return e.Clone(), nil
}

// Set はイベントのコピーを保存し、世代を進める
func (c *MemoryCache) Set(_ context.Context, e *event.Event) error {
	if e == nil || e.ID == "" {
		return nil
	}
	stored := cacheable(e)
	s := c.shard(e.ID)
	s.mu.Lock()
	s.generations[e.ID]++
	s.events[e.ID] = stored
	s.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, id string) error {
	s := c.shard(id)
	s.mu.Lock()
	s.generations[id]++
	delete(s.events, id)
	s.mu.Unlock()
	return nil
}

func (c *MemoryCache) Generation(_ context.Context, id string) (uint64, error) {
	s := c.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[id], nil
}

// Fill は読み取り開始時の世代から変わっていなければ保存する
func (c *MemoryCache) Fill(_ context.Context, e *event.Event, gen uint64) error {
	if e == nil || e.ID == "" {
		return nil
	}
	stored := cacheable(e)
	s := c.shard(e.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[e.ID] != gen {
		return nil
	}
	s.events[e.ID] = stored
	return nil
}

func cacheable(e *event.Event) *event.Event {
	stored := e.Clone()
	stored.Distance = nil
	return stored
}

// Len はキャッシュ済みのイベント数を返す
func (c *MemoryCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.events)
		s.mu.RUnlock()
	}
	return n
}

var _ Cache = (*MemoryCache)(nil)
