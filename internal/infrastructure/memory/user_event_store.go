package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// UserEventStore はプロセス内のユーザー作成イベントストア。
// ローカル開発とテストで使用する。
type UserEventStore struct {
	mu        sync.RWMutex
	events    map[string]*event.Event
	attendees map[string][]string // eventID -> 参加順のユーザーID
	subs      map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan []*event.Event
}

func NewUserEventStore() *UserEventStore {
	return &UserEventStore{
		events:    make(map[string]*event.Event),
		attendees: make(map[string][]string),
		subs:      make(map[string]map[*subscriber]struct{}),
	}
}

func (s *UserEventStore) Create(ctx context.Context, e *event.Event) (*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := e.Clone()
	stored.Distance = nil
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	s.events[stored.ID] = stored
	s.notifyLocked(stored.OrganizerID)
	return stored.Clone(), nil
}

func (s *UserEventStore) Update(ctx context.Context, e *event.Event) (*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return nil, event.ErrEventNotFound
	}
	stored := e.Clone()
	stored.Distance = nil
	s.events[e.ID] = stored
	s.notifyLocked(stored.OrganizerID)
	return stored.Clone(), nil
}

// Delete はイベントと参加記録を削除する
func (s *UserEventStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return event.ErrEventNotFound
	}
	delete(s.events, id)
	delete(s.attendees, id)
	s.notifyLocked(e.OrganizerID)
	return nil
}

func (s *UserEventStore) GetByID(ctx context.Context, id string) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	return e.Clone(), nil
}

func (s *UserEventStore) SearchByLocation(ctx context.Context, organizerID *string, lat, lon, radiusKm float64) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	center := geo.Point{Lat: lat, Lon: lon}
	return s.collectLocked(func(e *event.Event) bool {
		if organizerID != nil && e.OrganizerID != *organizerID {
			return false
		}
		if !e.HasCoordinates() {
			return false
		}
		return center.DistanceTo(*e.Location.Coordinates) <= radiusKm
	}), nil
}

// JoinEvent は参加記録を追加する。既に参加している場合は何もしない
func (s *UserEventStore) JoinEvent(ctx context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return event.ErrEventNotFound
	}
	if slices.Contains(s.attendees[eventID], userID) {
		return nil
	}
	s.attendees[eventID] = append(s.attendees[eventID], userID)
	return nil
}

// LeaveEvent は参加記録を削除する。参加していない場合は何もしない
func (s *UserEventStore) LeaveEvent(ctx context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return event.ErrEventNotFound
	}
	s.attendees[eventID] = slices.DeleteFunc(s.attendees[eventID], func(id string) bool {
		return id == userID
	})
	return nil
}

func (s *UserEventStore) GetAttendees(ctx context.Context, eventID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.events[eventID]; !ok {
		return nil, event.ErrEventNotFound
	}
	return slices.Clone(s.attendees[eventID]), nil
}

func (s *UserEventStore) GetByOrganizer(ctx context.Context, organizerID string) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked(organizerID), nil
}

func (s *UserEventStore) GetJoinedBy(ctx context.Context, userID string) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(e *event.Event) bool {
		return slices.Contains(s.attendees[e.ID], userID)
	}), nil
}

func (s *UserEventStore) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(e *event.Event) bool {
		return e.EndsAt().Before(cutoff)
	}), nil
}

// ObserveByOrganizer は購読開始時と変更のたびに主催者のイベント一覧を配信する。
// 受信側が遅れた場合は最新のスナップショットのみを保持する。
func (s *UserEventStore) ObserveByOrganizer(ctx context.Context, organizerID string) (<-chan []*event.Event, error) {
	sub := &subscriber{ch: make(chan []*event.Event, 1)}

	s.mu.Lock()
	if s.subs[organizerID] == nil {
		s.subs[organizerID] = make(map[*subscriber]struct{})
	}
	s.subs[organizerID][sub] = struct{}{}
	sub.ch <- s.snapshotLocked(organizerID)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[organizerID], sub)
		if len(s.subs[organizerID]) == 0 {
			delete(s.subs, organizerID)
		}
		close(sub.ch)
	}()

	return sub.ch, nil
}

func (s *UserEventStore) notifyLocked(organizerID string) {
	subs := s.subs[organizerID]
	if len(subs) == 0 {
		return
	}
	snapshot := s.snapshotLocked(organizerID)
	for sub := range subs {
		// 未受信の古いスナップショットは捨てる
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- event.CloneAll(snapshot)
	}
}

func (s *UserEventStore) snapshotLocked(organizerID string) []*event.Event {
	return s.collectLocked(func(e *event.Event) bool {
		return e.OrganizerID == organizerID
	})
}

func (s *UserEventStore) collectLocked(keep func(*event.Event) bool) []*event.Event {
	out := make([]*event.Event, 0)
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *event.Event) int {
		if c := a.DateTime.Compare(b.DateTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

var _ event.UserEventStore = (*UserEventStore)(nil)
