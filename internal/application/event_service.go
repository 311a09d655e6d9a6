package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

type EventService struct {
	repo      event.Repository
	identity  event.IdentityProvider
	location  event.LocationProvider
	publisher event.LifecyclePublisher
	now       func() time.Time
}

func NewEventService(repo event.Repository, identity event.IdentityProvider, location event.LocationProvider, publisher event.LifecyclePublisher) *EventService {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &EventService{
		repo:      repo,
		identity:  identity,
		location:  location,
		publisher: publisher,
		now:       time.Now,
	}
}

type CreateEventInput struct {
	Title        string
	Description  string
	Category     event.Category
	Location     event.Location
	DateTime     time.Time
	EndDateTime  *time.Time
	ImageURL     string
	Price        *event.Price
	MaxAttendees *int
}

// CreateUserEvent は呼び出し元を主催者としてイベントを作成し、主催者を参加者に加える
func (s *EventService) CreateUserEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	organizerID, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	e := event.NewUserEvent(event.NewUserEventParams{
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Location:     input.Location,
		DateTime:     input.DateTime,
		EndDateTime:  input.EndDateTime,
		ImageURL:     input.ImageURL,
		Price:        input.Price,
		MaxAttendees: input.MaxAttendees,
		OrganizerID:  organizerID,
	}, s.now())
	if err := e.ValidateForCreate(s.now()); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateUserEvent(ctx, e)
	if err != nil {
		return nil, wrapErr("イベント作成", err)
	}

	// 主催者の自動参加はベストエフォート
	if err := s.repo.JoinEvent(ctx, created.ID, organizerID); err != nil {
		logger.Warn("主催者の参加登録に失敗しました",
			zap.String("event_id", created.ID),
			zap.String("user_id", organizerID),
			zap.Error(err),
		)
	}

	logger.Info("イベントを作成しました",
		zap.String("event_id", created.ID),
		zap.String("organizer_id", organizerID),
	)
	return created, nil
}

type UpdateEventInput struct {
	ID      string
	Changes event.Changes
}

// UpdateUserEvent は主催者がイベントを更新する。ACTIVE のイベントの日時が変わると RESCHEDULED になる
func (s *EventService) UpdateUserEvent(ctx context.Context, input UpdateEventInput) (*event.Event, error) {
	callerID, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, wrapErr("イベント取得", err)
	}
	if !current.IsUserCreated() {
		return nil, event.ErrExternalEventReadOnly
	}
	if !current.IsOrganizer(callerID) {
		return nil, event.ErrUnauthorizedEventAccess
	}

	e := current.Clone()
	rescheduled := e.Apply(input.Changes, s.now())
	if err := e.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateUserEvent(ctx, e)
	if err != nil {
		return nil, wrapErr("イベント更新", err)
	}

	if rescheduled {
		s.publish(ctx, event.LifecycleRescheduled, updated)
	}
	return updated, nil
}

// UpdateEventStatus は主催者がイベントのステータスを変更する
func (s *EventService) UpdateEventStatus(ctx context.Context, id string, next event.Status) (*event.Event, error) {
	callerID, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapErr("イベント取得", err)
	}

	e := current.Clone()
	if err := e.ChangeStatus(callerID, next, s.now()); err != nil {
		return nil, err
	}
	// 同じステータスへの変更は保存しない
	if current.Status == next {
		return current, nil
	}

	updated, err := s.repo.UpdateUserEvent(ctx, e)
	if err != nil {
		return nil, wrapErr("ステータス更新", err)
	}

	s.publish(ctx, event.LifecycleStatusChanged, updated)
	return updated, nil
}

// DeleteUserEvent は主催者がイベントと参加記録を削除する
func (s *EventService) DeleteUserEvent(ctx context.Context, id string) error {
	callerID, err := currentUser(ctx, s.identity)
	if err != nil {
		return err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return wrapErr("イベント取得", err)
	}
	if !current.IsUserCreated() {
		return event.ErrExternalEventReadOnly
	}
	if !current.IsOrganizer(callerID) {
		return event.ErrUnauthorizedEventAccess
	}

	// 削除後は参加者を取得できないので先に読んでおく
	attendees, err := s.repo.GetAttendees(ctx, id)
	if err != nil {
		logger.Warn("削除通知用の参加者取得に失敗しました", zap.String("event_id", id), zap.Error(err))
	}

	if err := s.repo.DeleteUserEvent(ctx, id); err != nil {
		return wrapErr("イベント削除", err)
	}

	s.send(ctx, event.LifecycleMessage{
		Kind:        event.LifecycleDeleted,
		EventID:     id,
		OrganizerID: current.OrganizerID,
		Status:      current.Status,
		Attendees:   attendees,
		OccurredAt:  s.now(),
	})
	return nil
}

// GetEventDetails はイベントを取得し、現在地が分かれば距離を付与する
func (s *EventService) GetEventDetails(ctx context.Context, id string) (*event.Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapErr("イベント取得", err)
	}
	return EnrichDistance(e, resolveLocation(ctx, s.location)), nil
}

func (s *EventService) GetUserCreatedEvents(ctx context.Context, userID string) ([]*event.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, event.ErrUserIDRequired
	}
	events, err := s.repo.GetUserCreatedEvents(ctx, userID)
	if err != nil {
		return nil, wrapErr("作成イベント取得", err)
	}
	return EnrichAll(events, resolveLocation(ctx, s.location)), nil
}

func (s *EventService) GetUserJoinedEvents(ctx context.Context, userID string) ([]*event.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, event.ErrUserIDRequired
	}
	events, err := s.repo.GetUserJoinedEvents(ctx, userID)
	if err != nil {
		return nil, wrapErr("参加イベント取得", err)
	}
	return EnrichAll(events, resolveLocation(ctx, s.location)), nil
}

// ObserveUserEvents は主催者のイベント一覧を変更のたびに配信する。ctx のキャンセルで終了する
func (s *EventService) ObserveUserEvents(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	if strings.TrimSpace(organizerID) == "" {
		return nil, event.ErrUserIDRequired
	}
	ch, err := s.repo.ObserveUserEvents(ctx, organizerID)
	if err != nil {
		return nil, wrapErr("イベント監視", err)
	}
	return ch, nil
}

// DeleteFinishedEvents は retention より前に終了したユーザー作成イベントを削除し、削除件数を返す
func (s *EventService) DeleteFinishedEvents(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, errors.New("保持期間は正の値である必要があります")
	}
	cutoff := s.now().Add(-retention)

	finished, err := s.repo.ListFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, wrapErr("終了済みイベント取得", err)
	}

	deleted := 0
	var errs []error
	for _, e := range finished {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := s.repo.DeleteUserEvent(ctx, e.ID); err != nil {
			// 並行して削除された場合は無視する
			if errors.Is(err, event.ErrEventNotFound) {
				continue
			}
			logger.Error("終了済みイベントの削除に失敗しました", zap.String("event_id", e.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	if len(errs) > 0 {
		return deleted, wrapErr("終了済みイベント削除", errors.Join(errs...))
	}
	return deleted, nil
}

func (s *EventService) publish(ctx context.Context, kind event.LifecycleKind, e *event.Event) {
	attendees, err := s.repo.GetAttendees(ctx, e.ID)
	if err != nil {
		logger.Warn("通知用の参加者取得に失敗しました", zap.String("event_id", e.ID), zap.Error(err))
	}
	dt := e.DateTime
	s.send(ctx, event.LifecycleMessage{
		Kind:        kind,
		EventID:     e.ID,
		OrganizerID: e.OrganizerID,
		Status:      e.Status,
		DateTime:    &dt,
		Attendees:   attendees,
		OccurredAt:  s.now(),
	})
}

// send は通知を送信する。失敗はログに残すだけで呼び出し元には返さない
func (s *EventService) send(ctx context.Context, msg event.LifecycleMessage) {
	if err := s.publisher.Publish(ctx, msg); err != nil {
		logger.Warn("ライフサイクル通知の送信に失敗しました",
			zap.String("event_id", msg.EventID),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err),
		)
	}
}
