package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

// confirm / return を待つ時間
const publishWait = 500 * time.Millisecond

var (
	ErrNotReady = errors.New("AMQPチャネルが準備できていません")
	ErrNoRoute  = errors.New("ルーティング先のキューがありません")
	ErrNack     = errors.New("ブローカーがメッセージを拒否しました")
)

// channel は Publisher が使う amqp.Channel の操作
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher はイベントのライフサイクル通知を topic exchange に送信する
type Publisher struct {
	exchange string

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        channel
	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

var _ event.LifecyclePublisher = (*Publisher)(nil)

// NewPublisher はブローカーに接続し、exchange を宣言して confirm モードを有効にする
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("AMQP接続に失敗しました: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("AMQPチャネルの作成に失敗しました: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchange の宣言に失敗しました: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("confirm モードの設定に失敗しました: %w", err)
	}

	p := &Publisher{exchange: exchange, conn: conn}
	p.attach(ch, ch.NotifyPublish(make(chan amqp.Confirmation, 1)), ch.NotifyReturn(make(chan amqp.Return, 1)))
	return p, nil
}

func (p *Publisher) attach(ch channel, confirms <-chan amqp.Confirmation, returns <-chan amqp.Return) {
	p.ch = ch
	p.confirmCh = confirms
	p.returnCh = returns
}

// Publish はメッセージを JSON で送信し、confirm を待つ
func (p *Publisher) Publish(ctx context.Context, msg event.LifecycleMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("通知のエンコードに失敗しました: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return ErrNotReady
	}

	key := msg.RoutingKey()
	err = p.ch.PublishWithContext(ctx, p.exchange, key, true, false, amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("通知の送信に失敗しました: %w", err)
	}

	timer := time.NewTimer(publishWait)
	defer timer.Stop()

	select {
	case ret := <-p.returnCh:
		return fmt.Errorf("%w: %s", ErrNoRoute, ret.RoutingKey)
	case conf := <-p.confirmCh:
		if !conf.Ack {
			return ErrNack
		}
		return nil
	case <-timer.C:
		// confirm が届かない場合は送信済みとして扱う
		logger.Warn("通知のconfirmを待たずに続行します",
			zap.String("routing_key", key),
			zap.String("event_id", msg.EventID),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close はチャネルと接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}
