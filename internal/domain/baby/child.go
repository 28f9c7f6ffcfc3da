// Package baby holds the child profile: date of birth, gender and the
// append-only measurement history the growth engine reads from.
package baby

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

// MaxNameLength bounds the display name.
const MaxNameLength = 64

// Child is a baby profile owned by a parent account.
type Child struct {
	// ID is the child's UUID.
	ID shared.ChildID

	// OwnerID is the parent account that created the profile.
	OwnerID shared.UserID

	// Name is the display name used in reminders.
	Name string

	// DateOfBirth is stored as local midnight of the birth day.
	DateOfBirth time.Time

	// Gender selects the reference population. Empty means not set.
	Gender growth.Gender

	// Measurements is the growth history in insertion order.
	Measurements []growth.Measurement

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewChildParams holds the inputs for NewChild.
type NewChildParams struct {
	OwnerID     shared.UserID
	Name        string
	DateOfBirth time.Time
	Gender      growth.Gender
	Now         time.Time
}

// NewChild validates params and creates a profile with a fresh ID.
func NewChild(p NewChildParams) (*Child, error) {
	c := &Child{
		ID:          shared.NewChildID(),
		OwnerID:     p.OwnerID,
		Name:        strings.TrimSpace(p.Name),
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := c.Validate(now); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the profile invariants as of now.
func (c *Child) Validate(now time.Time) error {
	invalid := func(msg string) error {
		return shared.WrapError("baby", "Validate", shared.ErrValidation, msg, shared.ErrInvalidChild)
	}
	if !c.ID.IsValid() {
		return invalid("child ID must be a UUID")
	}
	if !c.OwnerID.IsValid() {
		return invalid("owner is required")
	}
	if c.Name == "" {
		return invalid("name is required")
	}
	if len([]rune(c.Name)) > MaxNameLength {
		return invalid(fmt.Sprintf("name exceeds %d characters", MaxNameLength))
	}
	if c.DateOfBirth.IsZero() {
		return invalid("date of birth is required")
	}
	if !now.IsZero() && c.DateOfBirth.After(now) {
		return invalid("date of birth is in the future")
	}
	if c.Gender != "" && !c.Gender.IsValid() {
		return invalid(fmt.Sprintf("unknown gender %q", c.Gender))
	}
	return nil
}

// HasGender reports whether a reference population can be chosen.
func (c *Child) HasGender() bool {
	return c.Gender.IsValid()
}

// AgeInMonths returns completed calendar months from birth to at, in the
// date of birth's location. It is 0 before birth.
func (c *Child) AgeInMonths(at time.Time) int {
	return timeutil.NewCalendar(c.DateOfBirth.Location()).MonthsBetween(c.DateOfBirth, at)
}

// AddMeasurement appends m to the history, assigning an ID when missing.
// Entries without any value or dated before birth are rejected; the growth
// engine itself never validates values.
func (c *Child) AddMeasurement(m growth.Measurement) (growth.Measurement, error) {
	if m.IsEmpty() {
		return growth.Measurement{}, shared.NewDomainError("baby", "AddMeasurement", shared.ErrValidation,
			"measurement carries no value")
	}
	if m.Date.IsZero() {
		return growth.Measurement{}, shared.NewDomainError("baby", "AddMeasurement", shared.ErrValidation,
			"measurement date is required")
	}
	if m.Date.Before(timeutil.NewCalendar(c.DateOfBirth.Location()).StartOfDay(c.DateOfBirth)) {
		return growth.Measurement{}, shared.NewDomainError("baby", "AddMeasurement", shared.ErrValidation,
			"measurement predates date of birth")
	}
	for _, kind := range growth.MeasurementKinds {
		v, ok := m.ValueOf(kind)
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return growth.Measurement{}, shared.NewDomainError("baby", "AddMeasurement", shared.ErrValueOutOfRange,
				fmt.Sprintf("%s must be a positive finite number", kind))
		}
	}
	if m.ID == "" {
		m.ID = shared.NewID()
	}
	for _, existing := range c.Measurements {
		if existing.ID == m.ID {
			return growth.Measurement{}, shared.NewDomainError("baby", "AddMeasurement", shared.ErrAlreadyExists,
				fmt.Sprintf("measurement %s already recorded", m.ID))
		}
	}
	c.Measurements = append(c.Measurements, m)
	if m.Date.After(c.UpdatedAt) {
		c.UpdatedAt = m.Date
	}
	return m, nil
}

// MeasurementsOf returns the entries that carry kind, ordered by date.
func (c *Child) MeasurementsOf(kind growth.MeasurementKind) []growth.Measurement {
	out := make([]growth.Measurement, 0, len(c.Measurements))
	for _, m := range c.Measurements {
		if _, ok := m.ValueOf(kind); ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Latest returns the most recent entry carrying kind.
func (c *Child) Latest(kind growth.MeasurementKind) (growth.Measurement, bool) {
	ms := c.MeasurementsOf(kind)
	if len(ms) == 0 {
		return growth.Measurement{}, false
	}
	return ms[len(ms)-1], true
}
