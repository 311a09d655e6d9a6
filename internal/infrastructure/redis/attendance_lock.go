package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに実行する
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// AttendanceLocker はイベント単位で参加登録を直列化する分散ロック。
// 異なるイベントのロックは互いに干渉しない。
type AttendanceLocker struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
	retryDelay time.Duration
}

func NewAttendanceLocker(client *redis.Client, ttl time.Duration) *AttendanceLocker {
	return &AttendanceLocker{
		client:     client,
		ttl:        ttl,
		maxRetries: 20,
		retryDelay: 50 * time.Millisecond,
	}
}

// Lock は eventID のロックを取得し、解放関数を返す。
// 取得できるまでリトライし、上限に達した場合は ErrLockNotAcquired を返す。
func (l *AttendanceLocker) Lock(ctx context.Context, eventID string) (func(context.Context) error, error) {
	key := fmt.Sprintf("lock:attendance:%s", eventID)
	token := uuid.New().String()

	for i := 0; i < l.maxRetries; i++ {
		// SetNX を使用してロックを取得（キーが存在しない場合のみ設定）
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("ロック取得に失敗: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.release(ctx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
	return nil, ErrLockNotAcquired
}

func (l *AttendanceLocker) release(ctx context.Context, key, token string) error {
	result, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}
