package event

import (
	"context"
	"time"

	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// CatalogSource は外部イベントカタログ（読み取り専用）のインターフェース
type CatalogSource interface {
	// SearchNearby は指定地点から半径 radiusKm 以内のイベントを検索する
	SearchNearby(ctx context.Context, lat, lon, radiusKm float64) ([]*Event, error)

	// SearchByCategory は指定地点周辺のカテゴリ一致イベントを検索する
	SearchByCategory(ctx context.Context, lat, lon, radiusKm float64, category Category) ([]*Event, error)
}

// UserEventStore はユーザー作成イベントの永続化インターフェース
type UserEventStore interface {
	// Create はイベントを保存し、採番済みの保存値を返す
	Create(ctx context.Context, e *Event) (*Event, error)

	// Update はイベントを更新し、保存値を返す
	Update(ctx context.Context, e *Event) (*Event, error)

	// Delete はイベントと参加記録を削除する
	Delete(ctx context.Context, id string) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id string) (*Event, error)

	// SearchByLocation は座標を持つイベントを距離で絞り込む。organizerID 指定時は主催者でも絞り込む
	SearchByLocation(ctx context.Context, organizerID *string, lat, lon, radiusKm float64) ([]*Event, error)

	// JoinEvent は参加記録を追加する（既に存在する場合は何もしない）
	JoinEvent(ctx context.Context, eventID, userID string) error

	// LeaveEvent は参加記録を削除する（存在しない場合は何もしない）
	LeaveEvent(ctx context.Context, eventID, userID string) error

	// GetAttendees は参加者のユーザーID一覧を返す
	GetAttendees(ctx context.Context, eventID string) ([]string, error)

	// GetByOrganizer は主催者が作成したイベント一覧を返す
	GetByOrganizer(ctx context.Context, organizerID string) ([]*Event, error)

	// GetJoinedBy はユーザーが参加しているイベント一覧を返す
	GetJoinedBy(ctx context.Context, userID string) ([]*Event, error)

	// ListFinishedBefore は cutoff より前に終了したイベント一覧を返す
	ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*Event, error)

	// ObserveByOrganizer は主催者のイベント一覧を変更のたびに配信する。
	// ctx がキャンセルされるとチャネルは閉じられる。
	ObserveByOrganizer(ctx context.Context, organizerID string) (<-chan []*Event, error)
}

// Repository は外部カタログとユーザー作成イベントを統合したリポジトリのインターフェース
type Repository interface {
	SearchNearby(ctx context.Context, center geo.Point, radiusKm float64) ([]*Event, error)
	SearchByCategory(ctx context.Context, center geo.Point, radiusKm float64, category Category) ([]*Event, error)
	SearchByName(ctx context.Context, center geo.Point, radiusKm float64, query string) ([]*Event, error)

	GetByID(ctx context.Context, id string) (*Event, error)
	CreateUserEvent(ctx context.Context, e *Event) (*Event, error)
	UpdateUserEvent(ctx context.Context, e *Event) (*Event, error)
	DeleteUserEvent(ctx context.Context, id string) error

	JoinEvent(ctx context.Context, eventID, userID string) error
	LeaveEvent(ctx context.Context, eventID, userID string) error
	GetAttendees(ctx context.Context, eventID string) ([]string, error)

	GetUserCreatedEvents(ctx context.Context, organizerID string) ([]*Event, error)
	GetUserJoinedEvents(ctx context.Context, userID string) ([]*Event, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*Event, error)

	ObserveUserEvents(ctx context.Context, organizerID string) (<-chan []*Event, error)
}

// IdentityProvider は現在の呼び出し元ユーザーを解決する
type IdentityProvider interface {
	// CurrentUserID は呼び出し元のユーザーIDを返す。特定できない場合は ErrCallerUnknown
	CurrentUserID(ctx context.Context) (string, error)
}

// LocationProvider は呼び出し元の現在地を解決する
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (geo.Point, error)
}
