package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/api"
	"github.com/sanosuguru/go-nearby-events/internal/api/caller"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
)

// DefaultHeartbeatInterval は接続維持のコメント行を送る間隔
const DefaultHeartbeatInterval = 30 * time.Second

// StreamHandler は主催者のイベント一覧を Server-Sent Events で配信する
type StreamHandler struct {
	eventService EventServiceInterface
	metrics      *metrics.Metrics
	heartbeat    time.Duration
}

func NewStreamHandler(eventService EventServiceInterface, m *metrics.Metrics, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &StreamHandler{eventService: eventService, metrics: m, heartbeat: heartbeat}
}

// MyEvents godoc
// @Summary 自分が作成したイベント一覧を購読
// @Description 接続直後に現在の一覧を送り、以降は変更のたびに一覧全体を "events" イベントとして送ります
// @Tags users
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {array} EventResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /me/events/stream [get]
func (h *StreamHandler) MyEvents(c echo.Context) error {
	userID, ok := caller.UserID(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "ログインが必要です")
	}

	ctx := c.Request().Context()
	snapshots, err := h.eventService.ObserveUserEvents(ctx, userID)
	if err != nil {
		return api.NewHTTPError(err)
	}

	res := c.Response()
	// 長時間の接続になるためサーバーの WriteTimeout を解除する（未対応の Writer では何もしない）
	_ = http.NewResponseController(res.Writer).SetWriteDeadline(time.Time{})
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	if h.metrics != nil {
		h.metrics.ActiveSubscriptions.Inc()
		defer h.metrics.ActiveSubscriptions.Dec()
	}
	log := logger.With(zap.String("user_id", userID))
	log.Debug("イベントストリームを開始しました")
	defer log.Debug("イベントストリームを終了しました")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case events, ok := <-snapshots:
			if !ok {
				return nil
			}
			data, err := json.Marshal(toEventResponses(events))
			if err != nil {
				log.Error("イベント一覧のエンコードに失敗しました", zap.Error(err))
				return nil
			}
			if _, err := fmt.Fprintf(res, "event: events\ndata: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
