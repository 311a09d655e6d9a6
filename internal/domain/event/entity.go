package event

import (
	"strings"
	"time"

	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
)

// Location はイベントの開催場所を表す。住所のみの場合 Coordinates は nil
type Location struct {
	Address     string
	Coordinates *geo.Point
}

// Price は参加費を表す。Free の場合 Amount と Currency は無視される
type Price struct {
	Free     bool
	Amount   int64 // 最小通貨単位
	Currency string
}

// Event はイベントエンティティを表す
type Event struct {
	ID           string
	Title        string
	Description  string
	Category     Category
	Location     Location
	DateTime     time.Time
	EndDateTime  *time.Time
	ImageURL     string
	Source       Source
	OrganizerID  string // USER_CREATED のみ
	ExternalID   string // EXTERNAL_CATALOG のみ
	ExternalURL  string // EXTERNAL_CATALOG のみ
	Price        *Price
	MaxAttendees *int // nil は定員なし
	Status       Status
	Distance     *float64 // 派生値（永続化しない）
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUserEventParams はユーザー作成イベントの生成パラメータ
type NewUserEventParams struct {
	Title        string
	Description  string
	Category     Category
	Location     Location
	DateTime     time.Time
	EndDateTime  *time.Time
	ImageURL     string
	Price        *Price
	MaxAttendees *int
	OrganizerID  string
}

// NewUserEvent はユーザー作成の新しいイベントを作成する
func NewUserEvent(p NewUserEventParams, now time.Time) *Event {
	category := p.Category
	if category == "" {
		category = CategoryOther
	}
	return &Event{
		Title:        strings.TrimSpace(p.Title),
		Description:  p.Description,
		Category:     category,
		Location:     p.Location.clone(),
		DateTime:     p.DateTime,
		EndDateTime:  cloneTime(p.EndDateTime),
		ImageURL:     p.ImageURL,
		Source:       SourceUserCreated,
		OrganizerID:  p.OrganizerID,
		Price:        clonePrice(p.Price),
		MaxAttendees: cloneInt(p.MaxAttendees),
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsUserCreated はユーザー作成イベントかを返す
func (e *Event) IsUserCreated() bool {
	return e.Source == SourceUserCreated
}

// IsOrganizer は userID が主催者かを返す
func (e *Event) IsOrganizer(userID string) bool {
	return e.IsUserCreated() && userID != "" && e.OrganizerID == userID
}

// HasCoordinates は座標を持つかを返す
func (e *Event) HasCoordinates() bool {
	return e.Location.Coordinates != nil
}

// IsJoinable は参加・退出操作が可能な状態かを返す
func (e *Event) IsJoinable() error {
	if !e.IsUserCreated() {
		return ErrExternalEventReadOnly
	}
	if e.Status == StatusCancelled {
		return ErrEventCancelled
	}
	return nil
}

// IsFull は参加者数が定員に達しているかを返す。定員なしの場合は常に false
func (e *Event) IsFull(attendeeCount int) bool {
	return e.MaxAttendees != nil && attendeeCount >= *e.MaxAttendees
}

// EndsAt はイベントの終了日時を返す。終了日時がなければ開始日時
func (e *Event) EndsAt() time.Time {
	if e.EndDateTime != nil {
		return *e.EndDateTime
	}
	return e.DateTime
}

// Validate はイベントの構造的な検証を行う（開始日時の未来チェックは含まない）
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrTitleRequired
	}
	if e.EndDateTime != nil && e.EndDateTime.Before(e.DateTime) {
		return ErrInvalidEventTime
	}
	if e.MaxAttendees != nil && *e.MaxAttendees <= 0 {
		return ErrInvalidMaxAttendees
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	switch e.Source {
	case SourceUserCreated:
		if e.ExternalID != "" || e.ExternalURL != "" {
			return ErrSourceMismatch
		}
	case SourceExternalCatalog:
		if e.ExternalID == "" || e.OrganizerID != "" {
			return ErrSourceMismatch
		}
	default:
		return ErrInvalidSource
	}
	return nil
}

// ValidateForCreate は作成時の検証を行う。開始日時は now より厳密に後である必要がある
func (e *Event) ValidateForCreate(now time.Time) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !e.DateTime.After(now) {
		return ErrEventInPast
	}
	return nil
}

// Changes はイベント更新時の変更内容。nil のフィールドは変更しない
type Changes struct {
	Title             *string
	Description       *string
	Category          *Category
	Location          *Location
	DateTime          *time.Time
	EndDateTime       *time.Time
	ClearEndDateTime  bool
	ImageURL          *string
	Price             *Price
	MaxAttendees      *int
	ClearMaxAttendees bool
}

// Apply は変更内容を反映する。
// ACTIVE のイベントで日時が変わった場合は RESCHEDULED に遷移し true を返す。
func (e *Event) Apply(c Changes, now time.Time) (rescheduled bool) {
	if c.Title != nil {
		e.Title = strings.TrimSpace(*c.Title)
	}
	if c.Description != nil {
		e.Description = *c.Description
	}
	if c.Category != nil {
		e.Category = *c.Category
	}
	if c.Location != nil {
		e.Location = c.Location.clone()
	}
	if c.ImageURL != nil {
		e.ImageURL = *c.ImageURL
	}
	if c.Price != nil {
		e.Price = clonePrice(c.Price)
	}
	if c.ClearMaxAttendees {
		e.MaxAttendees = nil
	} else if c.MaxAttendees != nil {
		e.MaxAttendees = cloneInt(c.MaxAttendees)
	}

	scheduleChanged := false
	if c.DateTime != nil && !c.DateTime.Equal(e.DateTime) {
		e.DateTime = *c.DateTime
		scheduleChanged = true
	}
	if c.ClearEndDateTime {
		if e.EndDateTime != nil {
			e.EndDateTime = nil
			scheduleChanged = true
		}
	} else if c.EndDateTime != nil && (e.EndDateTime == nil || !c.EndDateTime.Equal(*e.EndDateTime)) {
		e.EndDateTime = cloneTime(c.EndDateTime)
		scheduleChanged = true
	}

	e.UpdatedAt = now
	if scheduleChanged && e.Status == StatusActive {
		e.Status = StatusRescheduled
		return true
	}
	return false
}

// ChangeStatus は主催者によるステータス変更を行う
func (e *Event) ChangeStatus(callerID string, next Status, now time.Time) error {
	if !e.IsOrganizer(callerID) {
		return ErrUnauthorizedEventAccess
	}
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if !e.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	e.Status = next
	e.UpdatedAt = now
	return nil
}

// WithDistanceFrom は origin からの距離を付与したコピーを返す。
// origin またはイベントの座標がない場合は距離なしのコピーを返す。
func (e *Event) WithDistanceFrom(origin *geo.Point) *Event {
	c := e.Clone()
	c.Distance = nil
	if origin == nil || c.Location.Coordinates == nil {
		return c
	}
	d := origin.DistanceTo(*c.Location.Coordinates)
	c.Distance = &d
	return c
}

// Clone はイベントの独立したコピーを返す
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Location = e.Location.clone()
	c.EndDateTime = cloneTime(e.EndDateTime)
	c.Price = clonePrice(e.Price)
	c.MaxAttendees = cloneInt(e.MaxAttendees)
	if e.Distance != nil {
		d := *e.Distance
		c.Distance = &d
	}
	return &c
}

// CloneAll はスライスの各イベントをコピーする
func CloneAll(events []*Event) []*Event {
	out := make([]*Event, 0, len(events))
	for _, e := range events {
		out = append(out, e.Clone())
	}
	return out
}

func (l Location) clone() Location {
	if l.Coordinates == nil {
		return l
	}
	p := *l.Coordinates
	return Location{Address: l.Address, Coordinates: &p}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func clonePrice(p *Price) *Price {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
