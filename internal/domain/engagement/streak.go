package engagement

import "github.com/snuggle-app/snuggle-core/internal/domain/shared"

// ══════════════════════════════════════════════════════════════════════════════
// STREAK
// ══════════════════════════════════════════════════════════════════════════════

// StreakTransition describes how an open changed the streak.
type StreakTransition int

const (
	// StreakStarted is the first open ever.
	StreakStarted StreakTransition = iota
	// StreakUnchanged is a repeat open on the same day.
	StreakUnchanged
	// StreakExtended is an open on the day after the last one.
	StreakExtended
	// StreakReset is an open after one or more missed days, or one dated
	// before the last open.
	StreakReset
)

// String returns the transition name for logs.
func (t StreakTransition) String() string {
	switch t {
	case StreakStarted:
		return "started"
	case StreakUnchanged:
		return "unchanged"
	case StreakExtended:
		return "extended"
	case StreakReset:
		return "reset"
	}
	return "unknown"
}

// Changed reports whether the streak counter or last open date moves.
func (t StreakTransition) Changed() bool {
	return t == StreakStarted || t == StreakExtended || t == StreakReset
}

// NextStreak computes the streak after an open on today, given the current
// streak and the last open day (zero when never opened).
func NextStreak(current int, last, today shared.Date) (int, StreakTransition) {
	if last.IsZero() {
		return 1, StreakStarted
	}
	switch days := last.DaysUntil(today); {
	case days == 0:
		return current, StreakUnchanged
	case days == 1:
		return current + 1, StreakExtended
	default:
		return 1, StreakReset
	}
}

// DaysUntilStreakBreaks returns 2 if the app was opened today, 1 if it must
// be opened today to keep the streak, and 0 if the streak is already gone.
func (s State) DaysUntilStreakBreaks(today shared.Date) int {
	if !s.HasOpened() || s.StreakDays == 0 {
		return 0
	}
	switch s.LastOpenDate.DaysUntil(today) {
	case 0:
		return 2
	case 1:
		return 1
	default:
		return 0
	}
}
