package notification

import (
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

// MonthlyPhotoMonths is the last month a monthly photo is requested for.
const MonthlyPhotoMonths = 12

// NewMonthlyPhotoReminder builds the reminder for the month-n photo, due n
// calendar months after the date of birth.
func NewMonthlyPhotoReminder(child *baby.Child, month int, now time.Time) (Reminder, error) {
	if child == nil {
		return Reminder{}, shared.ErrInvalidChild
	}
	if month < 1 || month > MonthlyPhotoMonths {
		return Reminder{}, shared.NewDomainError("notification", "NewMonthlyPhotoReminder", shared.ErrValueOutOfRange,
			fmt.Sprintf("month must be in 1..%d, got %d", MonthlyPhotoMonths, month))
	}

	cal := timeutil.NewCalendar(child.DateOfBirth.Location())
	return Reminder{
		ID:         StableReminderID(child.ID, KindMonthlyPhoto, month),
		ChildID:    child.ID,
		Kind:       KindMonthlyPhoto,
		Month:      month,
		TargetDate: cal.AddMonths(cal.StartOfDay(child.DateOfBirth), month),
		Title:      "Monthly Photo Reminder",
		Message:    fmt.Sprintf("Time to take %s's %d month photo!", child.Name, month),
		Status:     StatusPending,
		CreatedAt:  now,
	}, nil
}

// GenerateMonthlyPhotoSchedule returns the reminders for months 1..12.
func GenerateMonthlyPhotoSchedule(child *baby.Child, now time.Time) ([]Reminder, error) {
	out := make([]Reminder, 0, MonthlyPhotoMonths)
	for month := 1; month <= MonthlyPhotoMonths; month++ {
		r, err := NewMonthlyPhotoReminder(child, month, now)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
