package application

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
)

// AttendanceService はイベントへの参加・退出を扱う。
// locker が nil の場合、定員付近での同時参加は定員を一時的に超えうる
type AttendanceService struct {
	repo     event.Repository
	identity event.IdentityProvider
	locker   AttendanceLocker
	metrics  *metrics.Metrics
}

func NewAttendanceService(repo event.Repository, identity event.IdentityProvider, locker AttendanceLocker, m *metrics.Metrics) *AttendanceService {
	return &AttendanceService{repo: repo, identity: identity, locker: locker, metrics: m}
}

// JoinEvent は呼び出し元をイベントの参加者に加える
func (s *AttendanceService) JoinEvent(ctx context.Context, eventID string) error {
	userID, err := currentUser(ctx, s.identity)
	if err != nil {
		return err
	}

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, eventID)
		if err != nil {
			s.count("join", err)
			return wrapErr("参加ロック取得", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("参加ロックの解放に失敗しました", zap.String("event_id", eventID), zap.Error(err))
			}
		}()
	}

	err = s.join(ctx, eventID, userID)
	s.count("join", err)
	if err != nil {
		return err
	}
	logger.Info("イベントに参加しました", zap.String("event_id", eventID), zap.String("user_id", userID))
	return nil
}

func (s *AttendanceService) join(ctx context.Context, eventID, userID string) error {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return wrapErr("イベント取得", err)
	}
	if err := e.IsJoinable(); err != nil {
		return err
	}

	attendees, err := s.repo.GetAttendees(ctx, eventID)
	if err != nil {
		return wrapErr("参加者取得", err)
	}
	// 既に参加している場合は定員判定より優先する
	if slices.Contains(attendees, userID) {
		return event.ErrAlreadyAttendingEvent
	}
	if e.IsFull(len(attendees)) {
		return event.ErrEventFull
	}

	if err := s.repo.JoinEvent(ctx, eventID, userID); err != nil {
		return wrapErr("参加登録", err)
	}
	return nil
}

// LeaveEvent は呼び出し元をイベントの参加者から外す
func (s *AttendanceService) LeaveEvent(ctx context.Context, eventID string) error {
	userID, err := currentUser(ctx, s.identity)
	if err != nil {
		return err
	}

	err = s.leave(ctx, eventID, userID)
	s.count("leave", err)
	if err != nil {
		return err
	}
	logger.Info("イベントから退出しました", zap.String("event_id", eventID), zap.String("user_id", userID))
	return nil
}

func (s *AttendanceService) leave(ctx context.Context, eventID, userID string) error {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return wrapErr("イベント取得", err)
	}
	if err := e.IsJoinable(); err != nil {
		return err
	}

	attendees, err := s.repo.GetAttendees(ctx, eventID)
	if err != nil {
		return wrapErr("参加者取得", err)
	}
	if !slices.Contains(attendees, userID) {
		return event.ErrNotAttendingEvent
	}

	if err := s.repo.LeaveEvent(ctx, eventID, userID); err != nil {
		return wrapErr("参加取消", err)
	}
	return nil
}

// GetAttendees は参加者のユーザーID一覧を返す
func (s *AttendanceService) GetAttendees(ctx context.Context, eventID string) ([]string, error) {
	attendees, err := s.repo.GetAttendees(ctx, eventID)
	if err != nil {
		return nil, wrapErr("参加者取得", err)
	}
	if attendees == nil {
		attendees = []string{}
	}
	return attendees, nil
}

func (s *AttendanceService) count(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.AttendanceTotal.WithLabelValues(operation, attendanceResult(err)).Inc()
}

func attendanceResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, event.ErrEventFull):
		return "full"
	case errors.Is(err, event.ErrAlreadyAttendingEvent):
		return "already_attending"
	case errors.Is(err, event.ErrNotAttendingEvent):
		return "not_attending"
	case errors.Is(err, event.ErrEventNotFound):
		return "not_found"
	case errors.Is(err, event.ErrInvalidEvent):
		return "rejected"
	}
	return "error"
}
