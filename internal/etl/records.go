package etl

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceUser is a participant profile from the operational store. Profile fields
// are optional there; absence is represented by an invalid NullDecimal.
type SourceUser struct {
	ID           int64
	Username     string
	StartWeight  decimal.NullDecimal
	TargetWeight decimal.NullDecimal
	Height       decimal.NullDecimal
}

// SourceWeightRecord is one weigh-in. Several may exist for the same day.
// Undated marks a row whose record_date is NULL or unreadable; transformers
// drop such rows.
type SourceWeightRecord struct {
	UserID     int64
	Weight     decimal.Decimal
	RecordDate time.Time
	Undated    bool
}

// SourceActivityType is an entry of the activity catalog.
type SourceActivityType struct {
	ID              int64
	Name            string
	Unit            string
	CaloriesPerUnit decimal.NullDecimal
}

// SourceActivityRecord is one logged activity, joined with the conversion factor
// of its activity type.
type SourceActivityRecord struct {
	UserID          int64
	ActivityTypeID  int64
	Value           decimal.Decimal
	Calories        decimal.NullDecimal
	CaloriesPerUnit decimal.NullDecimal
	RecordDate      time.Time
	Undated         bool
}

// TransformedUserRecord is the progress summary row of the "users" view.
type TransformedUserRecord struct {
	ID           int64
	Nickname     string
	CurrentPoint decimal.Decimal
	TargetPoint  decimal.Decimal
	LostWeight   decimal.Decimal
}

// UserDimension and ActivityDimension are the reference rows of the "facts" view.
type UserDimension struct {
	ID       int64
	Nickname string
}

type ActivityDimension struct {
	ID              int64
	Name            string
	Unit            string
	CaloriesPerUnit decimal.NullDecimal
}

// WeightFact is the single weight kept for a (user, day).
type WeightFact struct {
	UserID int64
	Date   time.Time
	Weight decimal.Decimal
}

func (f WeightFact) Key() WeightKey {
	return WeightKey{UserID: f.UserID, Date: DayKey(f.Date)}
}

// ActivityFact is the single activity value kept for a (user, activity, day).
type ActivityFact struct {
	UserID     int64
	ActivityID int64
	Date       time.Time
	Value      decimal.Decimal
	Calories   decimal.NullDecimal
}

func (f ActivityFact) Key() ActivityKey {
	return ActivityKey{UserID: f.UserID, ActivityID: f.ActivityID, Date: DayKey(f.Date)}
}

// WeightKey identifies a row of weight_data.
type WeightKey struct {
	UserID int64
	Date   string
}

// ActivityKey identifies a row of activity_data.
type ActivityKey struct {
	UserID     int64
	ActivityID int64
	Date       string
}

// KeySet is the set of natural keys already present in the analytics store.
type KeySet[K comparable] map[K]struct{}

func (s KeySet[K]) Has(k K) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet[K]) Add(k K) {
	s[k] = struct{}{}
}

// DayKey formats the calendar day of t.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// Day is a calendar date scanned from DATE/DATETIME columns or from
// "YYYY-MM-DD[ hh:mm:ss]" text, as stored by the chat bot. The time of day is dropped.
type Day struct {
	time.Time
}

func (d *Day) Scan(value any) error {
	switch v := value.(type) {
	case time.Time:
		y, m, dd := v.Date()
		d.Time = time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		return fmt.Errorf("scan day: null value")
	default:
		return fmt.Errorf("scan day: unsupported type %T", value)
	}
}

func (d Day) Value() (driver.Value, error) {
	return d.Time, nil
}

// NullDay is a Day read from a nullable source column. NULL or unreadable values
// scan as invalid instead of failing the whole read.
type NullDay struct {
	Day
	Valid bool
}

func (n *NullDay) Scan(value any) error {
	n.Day, n.Valid = Day{}, false
	if value == nil {
		return nil
	}
	if err := n.Day.Scan(value); err != nil {
		n.Day = Day{}
		return nil
	}
	n.Valid = true
	return nil
}

func (d *Day) parse(s string) error {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("scan day %q: %w", s, err)
	}
	d.Time = t
	return nil
}
