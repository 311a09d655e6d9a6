package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

const defaultPollInterval = 5 * time.Second

// ChangeNotifier は主催者単位の変更シグナルを配信する
type ChangeNotifier interface {
	// Subscribe は organizerID の変更シグナルを受け取るチャネルと解除関数を返す
	Subscribe(organizerID string) (<-chan struct{}, func())
}

type snapshotFunc func(ctx context.Context, organizerID string) ([]*event.Event, error)

// observer は変更通知と定期ポーリングで主催者のイベント一覧を監視する
type observer struct {
	load         snapshotFunc
	notifier     ChangeNotifier
	pollInterval time.Duration
}

func newObserver(load snapshotFunc, notifier ChangeNotifier, pollInterval time.Duration) *observer {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &observer{load: load, notifier: notifier, pollInterval: pollInterval}
}

func (o *observer) observe(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	initial, err := o.load(ctx, organizerID)
	if err != nil {
		return nil, err
	}

	out := make(chan []*event.Event, 1)
	out <- initial

	var signals <-chan struct{}
	unsubscribe := func() {}
	if o.notifier != nil {
		signals, unsubscribe = o.notifier.Subscribe(organizerID)
	}

	go func() {
		defer close(out)
		defer unsubscribe()

		ticker := time.NewTicker(o.pollInterval)
		defer ticker.Stop()

		last := fingerprint(initial)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-signals:
			}

			snapshot, err := o.load(ctx, organizerID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("イベント一覧の監視で取得に失敗",
					zap.String("organizer_id", organizerID),
					zap.Error(err),
				)
				continue
			}

			fp := fingerprint(snapshot)
			if fp == last {
				continue
			}
			last = fp

			// 受信側が遅れている場合は最新のスナップショットに置き換える
			select {
			case <-out:
			default:
			}
			out <- snapshot
		}
	}()

	return out, nil
}

// fingerprint はスナップショットの変化を検出するための要約を返す
func fingerprint(events []*event.Event) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString(e.ID)
		b.WriteByte('|')
		b.WriteString(string(e.Status))
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(e.UpdatedAt.UnixNano(), 10))
		b.WriteByte(';')
	}
	return b.String()
}
