package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies the parent account that owns an engagement state.
// The persistence collaborator decides its format; the core only requires it non-empty.
type UserID string

// IsValid checks that the ID is non-empty after trimming.
func (u UserID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	u := UserID(strings.TrimSpace(id))
	if !u.IsValid() {
		return "", ErrInvalidUserID
	}
	return u, nil
}

// ChildID identifies a child profile (UUID format).
type ChildID string

// IsValid checks if the child ID is a valid UUID.
func (c ChildID) IsValid() bool {
	_, err := uuid.Parse(string(c))
	return err == nil
}

// String returns the string representation.
func (c ChildID) String() string {
	return string(c)
}

// NewChildID generates a fresh random ChildID.
func NewChildID() ChildID {
	return ChildID(uuid.NewString())
}

// ParseChildID validates an externally supplied child ID.
func ParseChildID(id string) (ChildID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", WrapError("baby", "ParseID", ErrInvalidID, fmt.Sprintf("invalid child ID %q", id), err)
	}
	return ChildID(parsed.String()), nil
}

// NewID returns a random UUID string for measurements, moments, reminders and challenges.
func NewID() string {
	return uuid.NewString()
}

// ═══════════════════════════════════════════════════════════════════════════
// Calendar Date Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Date is a calendar day without a time of day. The zero value means "absent".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of the date, normalising overflowed fields.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysUntil returns the signed number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format("2006-01-02")
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, WrapError("shared", "ParseDate", ErrInvalidInput, fmt.Sprintf("invalid date %q", s), err)
	}
	return DateOf(t), nil
}

// MarshalText encodes the date as YYYY-MM-DD; the absent date encodes as "".
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes YYYY-MM-DD; "" decodes to the absent date.
func (d *Date) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
