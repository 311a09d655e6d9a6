package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
)

// AttendanceLocker はイベント単位で参加登録を直列化するロック。
// Lock は解放関数を返す。
type AttendanceLocker interface {
	Lock(ctx context.Context, eventID string) (func(context.Context) error, error)
}

// MaxSearchRadiusKm は検索半径の上限（km）
const MaxSearchRadiusKm = 500.0

// wrapErr はドメインのエラー分類に属するエラーはそのまま返し、それ以外は操作名を付けて包む
func wrapErr(op string, err error) error {
	if event.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%sに失敗しました: %w", op, err)
}

// currentUser は呼び出し元のユーザーIDを解決する
func currentUser(ctx context.Context, identity event.IdentityProvider) (string, error) {
	if identity == nil {
		return "", event.ErrCallerUnknown
	}
	userID, err := identity.CurrentUserID(ctx)
	if err != nil {
		if errors.Is(err, event.ErrUnauthorizedEventAccess) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", event.ErrCallerUnknown, err)
	}
	if userID == "" {
		return "", event.ErrCallerUnknown
	}
	return userID, nil
}
