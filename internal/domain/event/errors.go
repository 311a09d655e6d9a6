package event

import (
	"errors"
	"fmt"
)

// Event ドメインのエラー定義
var (
	ErrInvalidEvent            = errors.New("イベントの内容が不正です")
	ErrEventNotFound           = errors.New("イベントが見つかりません")
	ErrUnauthorizedEventAccess = errors.New("このイベントを操作する権限がありません")
	ErrAlreadyAttendingEvent   = errors.New("既にイベントに参加しています")
	ErrNotAttendingEvent       = errors.New("イベントに参加していません")
	ErrEventFull               = errors.New("イベントは定員に達しています")
)

// ErrInvalidEvent の詳細
var (
	ErrTitleRequired           = fmt.Errorf("%w: タイトルは必須です", ErrInvalidEvent)
	ErrEventInPast             = fmt.Errorf("%w: 開始日時は未来である必要があります", ErrInvalidEvent)
	ErrInvalidEventTime        = fmt.Errorf("%w: 終了日時は開始日時より後である必要があります", ErrInvalidEvent)
	ErrInvalidMaxAttendees     = fmt.Errorf("%w: 定員は1以上である必要があります", ErrInvalidEvent)
	ErrInvalidRadius           = fmt.Errorf("%w: 検索半径は0より大きく500km以下である必要があります", ErrInvalidEvent)
	ErrBlankQuery              = fmt.Errorf("%w: 検索キーワードは必須です", ErrInvalidEvent)
	ErrEventCancelled          = fmt.Errorf("%w: イベントは中止されています", ErrInvalidEvent)
	ErrExternalEventReadOnly   = fmt.Errorf("%w: 外部カタログのイベントは変更できません", ErrInvalidEvent)
	ErrInvalidStatusTransition = fmt.Errorf("%w: このステータスには変更できません", ErrInvalidEvent)
	ErrInvalidStatus           = fmt.Errorf("%w: 不明なステータスです", ErrInvalidEvent)
	ErrInvalidCategory         = fmt.Errorf("%w: 不明なカテゴリです", ErrInvalidEvent)
	ErrInvalidSource           = fmt.Errorf("%w: 不明なイベントソースです", ErrInvalidEvent)
	ErrUserIDRequired          = fmt.Errorf("%w: ユーザーIDは必須です", ErrInvalidEvent)
	ErrSourceMismatch          = fmt.Errorf("%w: イベントソースと属性が一致しません", ErrInvalidEvent)
)

// ErrCallerUnknown は呼び出し元ユーザーを特定できない場合のエラー
var ErrCallerUnknown = fmt.Errorf("%w: ログインが必要です", ErrUnauthorizedEventAccess)

// IsDomainError はエラーがイベントドメインのエラー分類に属するかを返す
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidEvent) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrUnauthorizedEventAccess) ||
		errors.Is(err, ErrAlreadyAttendingEvent) ||
		errors.Is(err, ErrNotAttendingEvent) ||
		errors.Is(err, ErrEventFull)
}
