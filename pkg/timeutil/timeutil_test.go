package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_DaysBetween(t *testing.T) {
	cal := UTC
	d0 := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name string
		b    time.Time
		want int
	}{
		{"same day later hour", time.Date(2024, 3, 1, 0, 1, 0, 0, time.UTC), 0},
		{"next day one minute later", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 1},
		{"three days", time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC), 3},
		{"backwards", time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC), -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.DaysBetween(d0, tt.b))
		})
	}
}

func TestCalendar_DaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	cal := NewCalendar(loc)

	before := time.Date(2024, 3, 30, 12, 0, 0, 0, loc)
	after := time.Date(2024, 3, 31, 12, 0, 0, 0, loc)

	assert.Equal(t, 1, cal.DaysBetween(before, after))
	assert.True(t, cal.IsConsecutiveDay(before, after))
}

func TestCalendar_LocalMidnightDecidesTheDay(t *testing.T) {
	cal := NewCalendar(time.FixedZone("UTC+5", 5*60*60))

	// 20:00 UTC is already the next day at UTC+5.
	a := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	assert.False(t, cal.IsSameDay(a, b))
	assert.Equal(t, 1, cal.DaysBetween(a, b))
}

func TestCalendar_MonthsBetween(t *testing.T) {
	cal := UTC
	dob := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, cal.MonthsBetween(dob, dob))
	assert.Equal(t, 0, cal.MonthsBetween(dob, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, cal.MonthsBetween(dob, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12, cal.MonthsBetween(dob, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, cal.MonthsBetween(dob, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCalendar_AddMonthsClamps(t *testing.T) {
	cal := UTC
	dob := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), cal.AddMonths(dob, 1))
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), cal.AddMonths(dob, 3))
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), cal.AddMonths(dob, 12))
}

func TestCalendar_ParseAndFormat(t *testing.T) {
	cal := UTC
	d, err := cal.ParseDate("2024-07-04")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-04", cal.FormatDate(d))

	_, err = LoadCalendar("Not/AZone")
	assert.Error(t, err)
}
