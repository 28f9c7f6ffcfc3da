// Package engagement owns a parent's engagement state: the daily-open
// streak, achievements, points and parenting level.
//
// State enters and leaves through a Repository; the Tracker mutates it in
// memory and performs no I/O. A Tracker is not safe for concurrent use;
// callers serialise mutations per user.
package engagement

import (
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// State is the persisted engagement snapshot of one user.
type State struct {
	UserID shared.UserID `json:"user_id"`

	// StreakDays is the current run of consecutive open days.
	StreakDays int `json:"streak_days"`

	// BestStreak is the longest run ever seen.
	BestStreak int `json:"best_streak"`

	// LastOpenDate is the calendar day of the last open; zero means never opened.
	LastOpenDate shared.Date `json:"last_open_date"`

	// Points is the balance towards the next level.
	Points int `json:"points"`

	// TotalPoints is every point ever awarded.
	TotalPoints int `json:"total_points"`

	// Level is the level number, starting at 1.
	Level int `json:"level"`

	// Unlocked maps each unlocked achievement to its unlock time. Entries are never removed.
	Unlocked map[AchievementID]time.Time `json:"unlocked"`

	// MomentsRecorded counts special moments.
	MomentsRecorded int `json:"moments_recorded"`

	// Content is the most recently generated daily content.
	Content DailyContent `json:"content"`

	// Version is bumped by the repository on every save.
	Version int `json:"version"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns the initial state for a user who never opened the app.
func NewState(userID shared.UserID) State {
	return State{
		UserID:   userID,
		Level:    FirstLevel.Number,
		Unlocked: make(map[AchievementID]time.Time),
	}
}

// Validate checks the state invariants.
func (s State) Validate() error {
	invalid := func(msg string) error {
		return shared.NewDomainError("engagement", "Validate", shared.ErrValidation, msg)
	}
	if !s.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if s.StreakDays < 0 || s.BestStreak < s.StreakDays {
		return invalid("streak counters are inconsistent")
	}
	if s.LastOpenDate.IsZero() != (s.StreakDays == 0) {
		return invalid("streak requires a last open date")
	}
	if s.Points < 0 || s.TotalPoints < s.Points {
		return invalid("points are inconsistent")
	}
	if s.Level < 1 {
		return invalid("level must be at least 1")
	}
	return nil
}

// HasOpened reports whether the app was ever opened.
func (s State) HasOpened() bool {
	return !s.LastOpenDate.IsZero()
}

// CurrentLevel resolves the level number against the ladder.
func (s State) CurrentLevel() Level {
	return LevelFor(s.Level)
}

// IsUnlocked reports whether id was unlocked.
func (s State) IsUnlocked(id AchievementID) bool {
	_, ok := s.Unlocked[id]
	return ok
}

// HasCategory reports whether any unlocked achievement belongs to c.
func (s State) HasCategory(c Category) bool {
	for id := range s.Unlocked {
		if a, ok := Lookup(id); ok && a.Category == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.Unlocked = make(map[AchievementID]time.Time, len(s.Unlocked))
	for id, at := range s.Unlocked {
		c.Unlocked[id] = at
	}
	c.Content = s.Content.clone()
	return c
}
