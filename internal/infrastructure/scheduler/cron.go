package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSchedule is a parsed five-field cron expression:
// minute hour day-of-month month day-of-week. Each field accepts "*", a
// value, a range "a-b", an optional "/step" and comma separated lists of
// those. Examples:
//   - "0 9 * * *"    every day at 09:00
//   - "*/15 * * * *" every 15 minutes
//   - "0 8 1 * *"    the first of every month at 08:00
type CronSchedule struct {
	raw      string
	loc      *time.Location
	minutes  uint64
	hours    uint64
	days     uint64
	months   uint64
	weekdays uint64
}

// ParseCron parses expr. Times are matched in loc (UTC when nil).
func ParseCron(expr string, loc *time.Location) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron %q: expected 5 fields, got %d", expr, len(fields))
	}
	if loc == nil {
		loc = time.UTC
	}

	c := &CronSchedule{raw: expr, loc: loc}
	specs := []struct {
		name     string
		min, max int
		dst      *uint64
	}{
		{"minute", 0, 59, &c.minutes},
		{"hour", 0, 23, &c.hours},
		{"day", 1, 31, &c.days},
		{"month", 1, 12, &c.months},
		{"weekday", 0, 6, &c.weekdays},
	}
	for i, s := range specs {
		bits, err := parseCronField(fields[i], s.min, s.max)
		if err != nil {
			return nil, fmt.Errorf("cron %q: %s field: %w", expr, s.name, err)
		}
		*s.dst = bits
	}
	return c, nil
}

// MustParseCron is ParseCron for expressions known at compile time.
func MustParseCron(expr string, loc *time.Location) *CronSchedule {
	c, err := ParseCron(expr, loc)
	if err != nil {
		panic(err)
	}
	return c
}

func parseCronField(field string, min, max int) (uint64, error) {
	var bits uint64
	for _, part := range strings.Split(field, ",") {
		step := 1
		if base, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("invalid step %q", s)
			}
			step = n
			part = base
		}

		lo, hi := min, max
		switch {
		case part == "*":
		case strings.Contains(part, "-"):
			a, b, _ := strings.Cut(part, "-")
			var err error
			if lo, err = strconv.Atoi(a); err != nil {
				return 0, fmt.Errorf("invalid range start %q", a)
			}
			if hi, err = strconv.Atoi(b); err != nil {
				return 0, fmt.Errorf("invalid range end %q", b)
			}
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", part)
			}
			lo, hi = v, v
			if step > 1 {
				hi = max
			}
		}
		if lo < min || hi > max || lo > hi {
			return 0, fmt.Errorf("%d-%d outside [%d-%d]", lo, hi, min, max)
		}
		for v := lo; v <= hi; v += step {
			bits |= 1 << uint(v)
		}
	}
	return bits, nil
}

// Next returns the first matching minute strictly after t, or the zero time
// if none exists within a year.
func (c *CronSchedule) Next(t time.Time) time.Time {
	next := t.In(c.loc).Truncate(time.Minute).Add(time.Minute)
	for limit := next.AddDate(1, 0, 1); next.Before(limit); next = next.Add(time.Minute) {
		if c.matches(next) {
			return next
		}
	}
	return time.Time{}
}

func (c *CronSchedule) matches(t time.Time) bool {
	has := func(bits uint64, v int) bool { return bits&(1<<uint(v)) != 0 }
	return has(c.minutes, t.Minute()) &&
		has(c.hours, t.Hour()) &&
		has(c.days, t.Day()) &&
		has(c.months, int(t.Month())) &&
		has(c.weekdays, int(t.Weekday()))
}

// String returns the original expression.
func (c *CronSchedule) String() string { return c.raw }
