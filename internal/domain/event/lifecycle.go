package event

import (
	"context"
	"time"
)

// LifecycleKind はライフサイクル通知の種別
type LifecycleKind string

const (
	LifecycleRescheduled   LifecycleKind = "rescheduled"
	LifecycleStatusChanged LifecycleKind = "status_changed"
	LifecycleDeleted       LifecycleKind = "deleted"
)

// LifecycleMessage は参加者に影響するイベントの変更通知
type LifecycleMessage struct {
	Kind        LifecycleKind `json:"kind"`
	EventID     string        `json:"event_id"`
	OrganizerID string        `json:"organizer_id,omitempty"`
	Status      Status        `json:"status,omitempty"`
	DateTime    *time.Time    `json:"date_time,omitempty"`
	Attendees   []string      `json:"attendees,omitempty"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

// RoutingKey はメッセージブローカーでのルーティングキーを返す
func (m LifecycleMessage) RoutingKey() string {
	return "event." + string(m.Kind)
}

// LifecyclePublisher はライフサイクル通知の送信先
type LifecyclePublisher interface {
	Publish(ctx context.Context, msg LifecycleMessage) error
}

// NoopPublisher は何も送信しない LifecyclePublisher
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, LifecycleMessage) error { return nil }
