// Package caller はリクエストの呼び出し元（ユーザーID・現在地）を context で受け渡す
package caller

import (
	"context"
	"errors"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

type userIDKey struct{}

type locationKey struct{}

// ErrLocationUnknown は現在地がリクエストに含まれない場合のエラー
var ErrLocationUnknown = errors.New("現在地が指定されていません")

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

func WithLocation(ctx context.Context, p geo.Point) context.Context {
	return context.WithValue(ctx, locationKey{}, p)
}

func Location(ctx context.Context) (geo.Point, bool) {
	p, ok := ctx.Value(locationKey{}).(geo.Point)
	return p, ok
}

// Identity は context のユーザーIDを返す event.IdentityProvider
type Identity struct{}

var _ event.IdentityProvider = Identity{}

func (Identity) CurrentUserID(ctx context.Context) (string, error) {
	if id, ok := UserID(ctx); ok {
		return id, nil
	}
	return "", event.ErrCallerUnknown
}

// CurrentLocation は context の現在地を返す event.LocationProvider
type CurrentLocation struct{}

var _ event.LocationProvider = CurrentLocation{}

func (CurrentLocation) CurrentLocation(ctx context.Context) (geo.Point, error) {
	if p, ok := Location(ctx); ok {
		return p, nil
	}
	return geo.Point{}, ErrLocationUnknown
}
