package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

// NotifyChannel はイベント変更トリガーが通知する LISTEN チャネル名
const NotifyChannel = "user_events"

// Notifier は PostgreSQL の LISTEN/NOTIFY を受信し、主催者ごとの購読者へ変更シグナルを配る
type Notifier struct {
	listener *pq.Listener

	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewNotifier はNotifierを作成する。Start を呼ぶまで受信しない
func NewNotifier(dsn string) *Notifier {
	n := newNotifierHub()
	n.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("LISTEN接続イベント", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	return n
}

func newNotifierHub() *Notifier {
	return &Notifier{subs: make(map[string]map[chan struct{}]struct{})}
}

// Start は LISTEN を開始し、ctx がキャンセルされるまで通知を配信する
func (n *Notifier) Start(ctx context.Context) error {
	if err := n.listener.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("LISTEN開始に失敗しました: %w", err)
	}
	go n.run(ctx)
	return nil
}

func (n *Notifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case notification := <-n.listener.Notify:
			if notification == nil {
				// 再接続時は通知を取りこぼしている可能性があるため全購読者に再取得させる
				n.broadcast()
				continue
			}
			n.signal(notification.Extra)
		case <-time.After(90 * time.Second):
			go func() {
				if err := n.listener.Ping(); err != nil {
					logger.Warn("LISTEN接続の確認に失敗", zap.Error(err))
				}
			}()
		}
	}
}

// Subscribe は organizerID の変更シグナルを購読する
func (n *Notifier) Subscribe(organizerID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	if n.subs[organizerID] == nil {
		n.subs[organizerID] = make(map[chan struct{}]struct{})
	}
	n.subs[organizerID][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs[organizerID], ch)
			if len(n.subs[organizerID]) == 0 {
				delete(n.subs, organizerID)
			}
		})
	}
}

func (n *Notifier) signal(organizerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[organizerID] {
		notify(ch)
	}
}

func (n *Notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, subs := range n.subs {
		for ch := range subs {
			notify(ch)
		}
	}
}

// notify は未処理のシグナルがあれば何もしない
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close は LISTEN 接続を閉じる
func (n *Notifier) Close() error {
	if n.listener == nil {
		return nil
	}
	return n.listener.Close()
}

var _ ChangeNotifier = (*Notifier)(nil)
