// Package timeutil provides calendar-day arithmetic in a configurable time zone.
// Streaks and ages are counted in calendar days and months as the parent
// experiences them, so every comparison is done on local midnight, never on
// raw 24h durations.
package timeutil

import (
	"fmt"
	"time"
)

// Common date formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatHumanDate is a human-readable format.
	FormatHumanDate = "2 January 2006"
)

// Calendar performs day and month arithmetic in a fixed location.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a Calendar for loc. A nil location means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// UTC is the calendar used when no time zone is configured.
var UTC = NewCalendar(time.UTC)

// LoadCalendar resolves an IANA zone name, falling back to UTC.
func LoadCalendar(name string) (Calendar, error) {
	if name == "" {
		return UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return UTC, fmt.Errorf("timeutil: load location %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

// Location returns the calendar's location.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// StartOfDay returns local midnight of the day containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	l := t.In(c.Location())
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, c.Location())
}

// IsSameDay reports whether a and b fall on the same local calendar day.
func (c Calendar) IsSameDay(a, b time.Time) bool {
	return c.StartOfDay(a).Equal(c.StartOfDay(b))
}

// DaysBetween returns the signed number of calendar days from a to b.
// It counts date components rather than dividing durations, so DST shifts
// never produce 0 or 2 for adjacent days.
func (c Calendar) DaysBetween(a, b time.Time) int {
	la, lb := a.In(c.Location()), b.In(c.Location())
	da := time.Date(la.Year(), la.Month(), la.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(lb.Year(), lb.Month(), lb.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// IsConsecutiveDay reports whether b is the calendar day right after a.
func (c Calendar) IsConsecutiveDay(a, b time.Time) bool {
	return c.DaysBetween(a, b) == 1
}

// MonthsBetween returns the number of completed calendar months from a to b.
// It is 0 when b is before a.
func (c Calendar) MonthsBetween(a, b time.Time) int {
	la, lb := a.In(c.Location()), b.In(c.Location())
	if lb.Before(la) {
		return 0
	}
	months := (lb.Year()-la.Year())*12 + int(lb.Month()) - int(la.Month())
	if lb.Day() < la.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// AddMonths adds n calendar months to t, clamping to the last day of the
// target month (Jan 31 + 1 month = Feb 28/29).
func (c Calendar) AddMonths(t time.Time, n int) time.Time {
	l := t.In(c.Location())
	first := time.Date(l.Year(), l.Month()+time.Month(n), 1, l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), c.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	day := l.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), c.Location())
}

// ParseDate parses YYYY-MM-DD as local midnight.
func (c Calendar) ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, c.Location())
}

// FormatDate formats t as YYYY-MM-DD in the calendar's location.
func (c Calendar) FormatDate(t time.Time) string {
	return t.In(c.Location()).Format(FormatDate)
}
