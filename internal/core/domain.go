package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type (
	// EntryType discriminates how an entry's amount contributes to totals.
	EntryType string

	// Date is a calendar date; the time-of-day component is always zero UTC.
	Date struct {
		time.Time
	}

	// Identity is the authenticated principal resolved from a session.
	Identity struct {
		ID    int64
		Email string
	}

	// Entry is a single dated income or expense record owned by one user.
	// ID, UserID and CreatedAt are server-assigned and immutable.
	Entry struct {
		ID         int64
		UserID     int64
		Title      string
		Amount     int64
		Type       EntryType
		Memo       string
		OccurredOn Date
		CreatedAt  time.Time
	}

	// Draft carries the caller-supplied fields accepted by create and
	// update. Both operations replace every mutable field from it.
	Draft struct {
		Title      string
		Amount     int64
		Type       EntryType
		Memo       string
		OccurredOn Date
	}

	// Filter is the conjunctive predicate applied to a listing. Zero
	// fields leave that side unbounded; Start and End are inclusive.
	Filter struct {
		Type  EntryType
		Start Date
		End   Date
	}
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
	ErrInvalidType        = errors.New("type must be income or expense")
	ErrInvalidAmount      = errors.New("amount is required and must be a number")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidID          = errors.New("invalid id")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ParseEntryType validates a caller-supplied type string.
func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(s) {
	case Income, Expense:
		return EntryType(s), nil
	default:
		return "", ErrInvalidType
	}
}

// Valid reports whether t is one of the two accepted entry types.
func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO calendar-date string (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// MarshalJSON renders the date as a bare YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Normalize trims the free-text fields and defaults OccurredOn to the
// current date when the caller omitted it.
func (dr *Draft) Normalize(now time.Time) {
	dr.Title = strings.TrimSpace(dr.Title)
	dr.Memo = strings.TrimSpace(dr.Memo)
	if dr.OccurredOn.IsZero() {
		dr.OccurredOn = DateOf(now)
	}
}

// Validate checks the draft invariants shared by create and update.
// Amount permissiveness is deliberate: zero and negative values pass,
// sign is interpreted via Type at aggregation time.
func (dr Draft) Validate() error {
	if !dr.Type.Valid() {
		return ErrInvalidType
	}
	if dr.OccurredOn.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Matches reports whether the entry satisfies every set predicate of
// the filter. Conditions are conjunctive.
func (f Filter) Matches(e Entry) bool {
	if f.Type.Valid() && e.Type != f.Type {
		return false
	}
	if !f.Start.IsZero() && e.OccurredOn.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.OccurredOn.After(f.End) {
		return false
	}
	return true
}
