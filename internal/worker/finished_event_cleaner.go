package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

// FinishedEventDeleter は終了済みイベントを削除するインターフェース
type FinishedEventDeleter interface {
	DeleteFinishedEvents(ctx context.Context, retention time.Duration) (int, error)
}

// FinishedEventCleaner は保持期間を過ぎた終了済みイベントを定期的に削除するワーカー
type FinishedEventCleaner struct {
	eventService FinishedEventDeleter
	interval     time.Duration
	retention    time.Duration
	stopOnce     sync.Once
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewFinishedEventCleaner は新しいクリーナーを作成
func NewFinishedEventCleaner(
	es FinishedEventDeleter,
	interval time.Duration,
	retention time.Duration,
) *FinishedEventCleaner {
	return &FinishedEventCleaner{
		eventService: es,
		interval:     interval,
		retention:    retention,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start はクリーナーを開始する。ctx のキャンセルか Stop で戻る
func (c *FinishedEventCleaner) Start(ctx context.Context) {
	logger.Info("終了済みイベントクリーナー開始",
		zap.Duration("interval", c.interval),
		zap.Duration("retention", c.retention),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("終了済みイベントクリーナー停止（コンテキストキャンセル）")
			return
		case <-c.stopCh:
			logger.Info("終了済みイベントクリーナー停止（シグナル受信）")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// Stop はクリーナーを停止し、実行中の削除が終わるまで待つ
func (c *FinishedEventCleaner) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
}

func (c *FinishedEventCleaner) cleanup(ctx context.Context) {
	log := logger.Get()
	log.Debug("終了済みイベントの削除開始")

	count, err := c.eventService.DeleteFinishedEvents(ctx, c.retention)
	if err != nil {
		// 一部だけ削除できた場合も件数を残す
		log.Error("終了済みイベントの削除失敗", zap.Int("deleted", count), zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("終了済みイベントを削除", zap.Int("count", count))
	} else {
		log.Debug("削除対象の終了済みイベントなし")
	}
}
