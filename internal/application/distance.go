package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

// EnrichDistance は caller からの距離を付与したコピーを返す。
// どちらかの座標がなければ距離なしのコピーを返す。失敗しない
func EnrichDistance(e *event.Event, caller *geo.Point) *event.Event {
	if e == nil {
		return nil
	}
	return e.WithDistanceFrom(caller)
}

// EnrichAll は各イベントに距離を付与する
func EnrichAll(events []*event.Event, caller *geo.Point) []*event.Event {
	out := make([]*event.Event, 0, len(events))
	for _, e := range events {
		out = append(out, EnrichDistance(e, caller))
	}
	return out
}

// resolveLocation は現在地を取得する。取得できない場合は nil
func resolveLocation(ctx context.Context, provider event.LocationProvider) *geo.Point {
	if provider == nil {
		return nil
	}
	p, err := provider.CurrentLocation(ctx)
	if err != nil {
		logger.Debug("現在地を取得できないため距離なしで返します", zap.Error(err))
		return nil
	}
	return &p
}
