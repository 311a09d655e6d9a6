package event

import "strings"

// Status はイベントの状態を表す
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusCancelled   Status = "CANCELLED"
	StatusRescheduled Status = "RESCHEDULED"
)

// Valid は定義済みのステータスかを返す
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// CanTransitionTo は s から next への遷移が許可されているかを返す。
// ACTIVE と RESCHEDULED は相互に遷移でき、どちらからも CANCELLED に遷移できる。
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() {
		return false
	}
	switch s {
	case StatusActive, StatusRescheduled:
		return true
	case StatusCancelled:
		return next == StatusCancelled
	}
	return false
}

// ParseStatus は文字列をステータスに変換する
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Source はイベントの取得元を表す
type Source string

const (
	SourceUserCreated     Source = "USER_CREATED"
	SourceExternalCatalog Source = "EXTERNAL_CATALOG"
)

// Valid は定義済みのソースかを返す
func (s Source) Valid() bool {
	switch s {
	case SourceUserCreated, SourceExternalCatalog:
		return true
	}
	return false
}

// ParseSource は文字列をソースに変換する
func ParseSource(v string) (Source, error) {
	s := Source(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", ErrInvalidSource
	}
	return s, nil
}

// Category はイベントのカテゴリを表す
type Category string

const (
	CategoryMusic      Category = "music"
	CategorySports     Category = "sports"
	CategoryArts       Category = "arts"
	CategoryFood       Category = "food"
	CategoryTechnology Category = "technology"
	CategorySocial     Category = "social"
	CategoryOutdoors   Category = "outdoors"
	CategoryEducation  Category = "education"
	CategoryOther      Category = "other"
)

// Categories は定義済みの全カテゴリ
var Categories = []Category{
	CategoryMusic,
	CategorySports,
	CategoryArts,
	CategoryFood,
	CategoryTechnology,
	CategorySocial,
	CategoryOutdoors,
	CategoryEducation,
	CategoryOther,
}

// Valid は定義済みのカテゴリかを返す
func (c Category) Valid() bool {
	switch c {
	case CategoryMusic, CategorySports, CategoryArts, CategoryFood, CategoryTechnology,
		CategorySocial, CategoryOutdoors, CategoryEducation, CategoryOther:
		return true
	}
	return false
}

// ParseCategory は文字列をカテゴリに変換する
func ParseCategory(v string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(v)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}
