package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/domain/transaction"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

const userEventColumns = `id, title, description, category, address, latitude, longitude,
	date_time, end_date_time, image_url, organizer_id, price_free, price_amount, price_currency,
	max_attendees, status, created_at, updated_at`

// pq のエラーコード
const pqForeignKeyViolation = "23503"

// userEventRow はDBの行を表す構造体
type userEventRow struct {
	ID            string     `db:"id"`
	Title         string     `db:"title"`
	Description   string     `db:"description"`
	Category      string     `db:"category"`
	Address       string     `db:"address"`
	Latitude      *float64   `db:"latitude"`
	Longitude     *float64   `db:"longitude"`
	DateTime      time.Time  `db:"date_time"`
	EndDateTime   *time.Time `db:"end_date_time"`
	ImageURL      string     `db:"image_url"`
	OrganizerID   string     `db:"organizer_id"`
	PriceFree     *bool      `db:"price_free"`
	PriceAmount   *int64     `db:"price_amount"`
	PriceCurrency *string    `db:"price_currency"`
	MaxAttendees  *int       `db:"max_attendees"`
	Status        string     `db:"status"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func newUserEventRow(e *event.Event) userEventRow {
	r := userEventRow{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Category:     string(e.Category),
		Address:      e.Location.Address,
		DateTime:     e.DateTime,
		EndDateTime:  e.EndDateTime,
		ImageURL:     e.ImageURL,
		OrganizerID:  e.OrganizerID,
		MaxAttendees: e.MaxAttendees,
		Status:       string(e.Status),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if p := e.Location.Coordinates; p != nil {
		r.Latitude, r.Longitude = &p.Lat, &p.Lon
	}
	if p := e.Price; p != nil {
		r.PriceFree, r.PriceAmount, r.PriceCurrency = &p.Free, &p.Amount, &p.Currency
	}
	return r
}

// toEntity はuserEventRowをEventエンティティに変換する
func (r *userEventRow) toEntity() *event.Event {
	e := &event.Event{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     event.Category(r.Category),
		Location:     event.Location{Address: r.Address},
		DateTime:     r.DateTime,
		EndDateTime:  r.EndDateTime,
		ImageURL:     r.ImageURL,
		Source:       event.SourceUserCreated,
		OrganizerID:  r.OrganizerID,
		MaxAttendees: r.MaxAttendees,
		Status:       event.Status(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Latitude != nil && r.Longitude != nil {
		e.Location.Coordinates = &geo.Point{Lat: *r.Latitude, Lon: *r.Longitude}
	}
	if r.PriceFree != nil {
		p := &event.Price{Free: *r.PriceFree}
		if r.PriceAmount != nil {
			p.Amount = *r.PriceAmount
		}
		if r.PriceCurrency != nil {
			p.Currency = *r.PriceCurrency
		}
		e.Price = p
	}
	return e
}

func toEntities(rows []userEventRow) []*event.Event {
	events := make([]*event.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toEntity()
	}
	return events
}

// UserEventStore はユーザー作成イベントストアのPostgreSQL実装
type UserEventStore struct {
	db       *sqlx.DB
	txm      transaction.Manager
	observer *observer
}

// NewUserEventStore はUserEventStoreを作成する。
// notifier が nil の場合、購読はポーリングのみで変更を検出する。
func NewUserEventStore(db *sqlx.DB, txm transaction.Manager, notifier ChangeNotifier, pollInterval time.Duration) *UserEventStore {
	s := &UserEventStore{db: db, txm: txm}
	s.observer = newObserver(s.GetByOrganizer, notifier, pollInterval)
	return s
}

// Create は新しいイベントを保存し、DBに保存された行を返す
func (s *UserEventStore) Create(ctx context.Context, e *event.Event) (*event.Event, error) {
	input := e.Clone()
	if input.ID == "" {
		input.ID = uuid.New().String()
	}

	query := `
		INSERT INTO user_events (` + userEventColumns + `)
		VALUES (:id, :title, :description, :category, :address, :latitude, :longitude,
			:date_time, :end_date_time, :image_url, :organizer_id, :price_free, :price_amount, :price_currency,
			:max_attendees, :status, :created_at, :updated_at)
		RETURNING ` + userEventColumns

	var row userEventRow
	if err := s.namedGet(ctx, &row, query, newUserEventRow(input)); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// Update はイベントを更新し、更新後の行を返す
func (s *UserEventStore) Update(ctx context.Context, e *event.Event) (*event.Event, error) {
	query := `
		UPDATE user_events
		SET title = :title, description = :description, category = :category, address = :address,
		    latitude = :latitude, longitude = :longitude, date_time = :date_time, end_date_time = :end_date_time,
		    image_url = :image_url, price_free = :price_free, price_amount = :price_amount,
		    price_currency = :price_currency, max_attendees = :max_attendees, status = :status,
		    updated_at = :updated_at
		WHERE id = :id
		RETURNING ` + userEventColumns

	var row userEventRow
	if err := s.namedGet(ctx, &row, query, newUserEventRow(e)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント更新に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// namedGet は名前付きパラメータのクエリを実行し、先頭行を dest に読み込む。
// 行がなければ sql.ErrNoRows を返す
func (s *UserEventStore) namedGet(ctx context.Context, dest any, query string, arg any) error {
	rows, err := s.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return rows.StructScan(dest)
}

// Delete はイベントと参加記録を同一トランザクションで削除する
func (s *UserEventStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return event.ErrEventNotFound
	}
	return transaction.Run(ctx, s.txm, func(tx transaction.Tx) error {
		sqlTx, err := unwrapTx(tx)
		if err != nil {
			return err
		}
		if _, err := sqlTx.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("参加記録の削除に失敗しました: %w", err)
		}

		result, err := sqlTx.ExecContext(ctx, `DELETE FROM user_events WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("イベント削除に失敗しました: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("削除結果の確認に失敗しました: %w", err)
		}
		if rowsAffected == 0 {
			return event.ErrEventNotFound
		}
		return nil
	})
}

// GetByID はIDからイベントを取得する
func (s *UserEventStore) GetByID(ctx context.Context, id string) (*event.Event, error) {
	// 外部カタログのIDなどUUIDでない値はクエリ前に除外する
	if _, err := uuid.Parse(id); err != nil {
		return nil, event.ErrEventNotFound
	}

	query := `SELECT ` + userEventColumns + ` FROM user_events WHERE id = $1`

	var row userEventRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// SearchByLocation は矩形で候補を絞り込んだ後、Haversine距離で半径内のイベントを返す。
// 日付変更線をまたぐ矩形は経度を2区間に分けて問い合わせる
func (s *UserEventStore) SearchByLocation(ctx context.Context, organizerID *string, lat, lon, radiusKm float64) ([]*event.Event, error) {
	center := geo.Point{Lat: lat, Lon: lon}
	box := geo.BoundingBox(center, radiusKm)
	lonRanges := box.LonRanges()
	east, west := lonRanges[0], lonRanges[len(lonRanges)-1]

	query := `
		SELECT ` + userEventColumns + `
		FROM user_events
		WHERE latitude BETWEEN $1 AND $2
		  AND (longitude BETWEEN $3 AND $4 OR longitude BETWEEN $5 AND $6)
		  AND ($7::text IS NULL OR organizer_id = $7)
		ORDER BY date_time ASC, id ASC
	`

	var rows []userEventRow
	if err := s.db.SelectContext(ctx, &rows, query,
		box.MinLat, box.MaxLat, east.Min, east.Max, west.Min, west.Max, organizerID,
	); err != nil {
		return nil, fmt.Errorf("周辺イベント検索に失敗しました: %w", err)
	}

	events := make([]*event.Event, 0, len(rows))
	for _, e := range toEntities(rows) {
		if e.HasCoordinates() && center.DistanceTo(*e.Location.Coordinates) <= radiusKm {
			events = append(events, e)
		}
	}
	return events, nil
}

// JoinEvent は参加記録を追加する。既に参加している場合は何もしない
func (s *UserEventStore) JoinEvent(ctx context.Context, eventID, userID string) error {
	if _, err := uuid.Parse(eventID); err != nil {
		return event.ErrEventNotFound
	}

	query := `
		INSERT INTO event_attendees (event_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, eventID, userID, time.Now()); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return event.ErrEventNotFound
		}
		return fmt.Errorf("参加登録に失敗しました: %w", err)
	}
	return nil
}

// LeaveEvent は参加記録を削除する。参加していない場合は何もしない
func (s *UserEventStore) LeaveEvent(ctx context.Context, eventID, userID string) error {
	if err := s.ensureExists(ctx, eventID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`, eventID, userID); err != nil {
		return fmt.Errorf("参加取消に失敗しました: %w", err)
	}
	return nil
}

// GetAttendees は参加順の参加者ID一覧を返す
func (s *UserEventStore) GetAttendees(ctx context.Context, eventID string) ([]string, error) {
	if err := s.ensureExists(ctx, eventID); err != nil {
		return nil, err
	}

	attendees := make([]string, 0)
	query := `SELECT user_id FROM event_attendees WHERE event_id = $1 ORDER BY joined_at ASC, user_id ASC`
	if err := s.db.SelectContext(ctx, &attendees, query, eventID); err != nil {
		return nil, fmt.Errorf("参加者取得に失敗しました: %w", err)
	}
	return attendees, nil
}

func (s *UserEventStore) GetByOrganizer(ctx context.Context, organizerID string) ([]*event.Event, error) {
	query := `SELECT ` + userEventColumns + ` FROM user_events WHERE organizer_id = $1 ORDER BY date_time ASC, id ASC`

	var rows []userEventRow
	if err := s.db.SelectContext(ctx, &rows, query, organizerID); err != nil {
		return nil, fmt.Errorf("作成イベント一覧取得に失敗しました: %w", err)
	}
	return toEntities(rows), nil
}

func (s *UserEventStore) GetJoinedBy(ctx context.Context, userID string) ([]*event.Event, error) {
	query := `
		SELECT ` + prefixed("e", userEventColumns) + `
		FROM user_events e
		JOIN event_attendees a ON a.event_id = e.id
		WHERE a.user_id = $1
		ORDER BY e.date_time ASC, e.id ASC
	`

	var rows []userEventRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("参加イベント一覧取得に失敗しました: %w", err)
	}
	return toEntities(rows), nil
}

// ListFinishedBefore は終了日時（なければ開始日時）が cutoff より前のイベントを返す
func (s *UserEventStore) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*event.Event, error) {
	query := `
		SELECT ` + userEventColumns + `
		FROM user_events
		WHERE COALESCE(end_date_time, date_time) < $1
		ORDER BY date_time ASC, id ASC
	`

	var rows []userEventRow
	if err := s.db.SelectContext(ctx, &rows, query, cutoff); err != nil {
		return nil, fmt.Errorf("終了済みイベント取得に失敗しました: %w", err)
	}
	return toEntities(rows), nil
}

// ObserveByOrganizer は主催者のイベント一覧を変更のたびに配信する
func (s *UserEventStore) ObserveByOrganizer(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	return s.observer.observe(ctx, organizerID)
}

func (s *UserEventStore) ensureExists(ctx context.Context, eventID string) error {
	if _, err := uuid.Parse(eventID); err != nil {
		return event.ErrEventNotFound
	}
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM user_events WHERE id = $1)`, eventID); err != nil {
		return fmt.Errorf("イベント存在確認に失敗しました: %w", err)
	}
	if !exists {
		return event.ErrEventNotFound
	}
	return nil
}

// prefixed はカラム一覧の各カラムにテーブル別名を付ける
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

// インターフェースを満たしているか確認
var _ event.UserEventStore = (*UserEventStore)(nil)
