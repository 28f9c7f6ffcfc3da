package engagement

import (
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

// Listener receives every change the tracker makes, synchronously, after
// the state was updated.
type Listener func(shared.Event)

// Tracker evolves one user's State in response to timestamped actions.
type Tracker struct {
	state     State
	cal       timeutil.Calendar
	content   ContentGenerator
	now       func() time.Time
	log       *logger.Logger
	listeners []Listener
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithCalendar sets the time zone calendar days are counted in.
func WithCalendar(cal timeutil.Calendar) TrackerOption {
	return func(t *Tracker) { t.cal = cal }
}

// WithContentGenerator replaces the default ChallengeGenerator.
func WithContentGenerator(g ContentGenerator) TrackerOption {
	return func(t *Tracker) {
		if g != nil {
			t.content = g
		}
	}
}

// WithClock sets the clock used by AwardPoints and for moments without a date.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the tracker logger.
func WithLogger(l *logger.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithListener registers a listener at construction.
func WithListener(l Listener) TrackerOption {
	return func(t *Tracker) { t.OnChange(l) }
}

// NewTracker wraps state. A zero Level or nil Unlocked map is normalised.
func NewTracker(state State, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		cal:     timeutil.UTC,
		content: NewChallengeGenerator(nil),
		now:     func() time.Time { return time.Now().UTC() },
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Restore(state)
	return t
}

// OnChange registers l. Listeners run in registration order.
func (t *Tracker) OnChange(l Listener) {
	if l != nil {
		t.listeners = append(t.listeners, l)
	}
}

// State returns a snapshot safe to persist or hand to another goroutine.
func (t *Tracker) State() State {
	return t.state.Clone()
}

// Restore replaces the in-memory state.
func (t *Tracker) Restore(s State) {
	s = s.Clone()
	if s.Level < 1 {
		s.Level = FirstLevel.Number
	}
	t.state = s
}

// Level returns the current level.
func (t *Tracker) Level() Level {
	return t.state.CurrentLevel()
}

// DailyContent returns the content generated on the last new-day open.
func (t *Tracker) DailyContent() DailyContent {
	return t.state.Content.clone()
}

func (t *Tracker) emit(e shared.Event) {
	for _, l := range t.listeners {
		l(e)
	}
}

func (t *Tracker) userID() string {
	return t.state.UserID.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// APP OPEN
// ══════════════════════════════════════════════════════════════════════════════

// AppOpenOutcome reports what an open changed.
type AppOpenOutcome struct {
	StreakChanged  bool
	Transition     StreakTransition
	NewStreak      int
	PreviousStreak int
	StreakBroken   bool
	// MissedDays is the number of skipped days when the streak broke.
	MissedDays int
	Unlocked   []Achievement
	LevelUps   []Level
	// Content is set when a new day's content was generated.
	Content *DailyContent
}

// RecordAppOpen records an open at the given instant. Repeat opens on the
// same calendar day change nothing; any other open moves the last open date.
func (t *Tracker) RecordAppOpen(at time.Time) AppOpenOutcome {
	today := shared.DateOf(at.In(t.cal.Location()))
	previous := t.state.StreakDays
	last := t.state.LastOpenDate

	next, transition := NextStreak(previous, last, today)
	out := AppOpenOutcome{
		Transition:     transition,
		NewStreak:      next,
		PreviousStreak: previous,
	}
	if !transition.Changed() {
		return out
	}

	out.StreakChanged = true
	t.state.StreakDays = next
	t.state.LastOpenDate = today
	t.state.UpdatedAt = at
	if next > t.state.BestStreak {
		t.state.BestStreak = next
	}

	if transition == StreakReset {
		out.StreakBroken = true
		out.MissedDays = max(last.DaysUntil(today)-1, 0)
		if out.MissedDays == 0 {
			t.log.Warn("app open dated before last open",
				logger.UserID(t.userID()),
				logger.String("last_open", last.String()),
				logger.String("open", today.String()),
			)
		}
		t.emit(shared.NewStreakBrokenEvent(t.userID(), previous, out.MissedDays, at))
	}
	t.emit(shared.NewStreakUpdatedEvent(t.userID(), next, t.state.BestStreak, at))

	if transition == StreakExtended {
		for _, a := range streakAchievements {
			if next < a.Requirement || t.state.IsUnlocked(a.ID) {
				continue
			}
			award := t.unlock(a, at)
			out.Unlocked = append(out.Unlocked, a)
			if award.LeveledUp {
				out.LevelUps = append(out.LevelUps, award.To)
			}
		}
	}

	content := t.content.GenerateDailyContent(today)
	t.state.Content = content.clone()
	out.Content = &content
	t.emit(shared.NewDailyContentReadyEvent(t.userID(), today.String(), challengeIDs(content), len(content.Tips), at))

	t.log.Debug("app open recorded",
		logger.UserID(t.userID()),
		logger.Streak(next),
		logger.String("transition", transition.String()),
	)
	return out
}

func challengeIDs(c DailyContent) []string {
	ids := make([]string, 0, len(c.Challenges))
	for _, ch := range c.Challenges {
		ids = append(ids, string(ch.Type))
	}
	return ids
}

// ══════════════════════════════════════════════════════════════════════════════
// POINTS & LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// AwardOutcome reports the effect of one award.
type AwardOutcome struct {
	Awarded   int
	Points    int
	LeveledUp bool
	From      Level
	To        Level
}

// AwardPoints adds n points now. See AwardPointsFor.
func (t *Tracker) AwardPoints(n int) AwardOutcome {
	return t.AwardPointsFor(n, "manual", t.now())
}

// AwardPointsFor adds n points. n <= 0 changes nothing. When the balance
// reaches the current level's threshold, exactly one level-up happens and
// the surplus is carried into the new level.
func (t *Tracker) AwardPointsFor(n int, reason string, at time.Time) AwardOutcome {
	current := t.state.CurrentLevel()
	out := AwardOutcome{Points: t.state.Points, From: current, To: current}
	if n <= 0 {
		return out
	}

	t.state.Points += n
	t.state.TotalPoints += n
	t.state.UpdatedAt = at
	out.Awarded = n
	t.emit(shared.NewPointsAwardedEvent(t.userID(), n, t.state.TotalPoints, reason, at))

	if t.state.Points >= current.PointsRequiredForNext {
		next := current.Next()
		t.state.Points -= current.PointsRequiredForNext
		t.state.Level = next.Number
		out.LeveledUp = true
		out.To = next
		t.emit(shared.NewLevelUpEvent(t.userID(), current.Number, next.Number, next.Title, at))
		t.log.Info("level up",
			logger.UserID(t.userID()),
			logger.LevelNumber(next.Number),
			logger.String("title", next.Title),
		)
	}
	out.Points = t.state.Points
	return out
}

// unlock records a and awards its points. Callers check IsUnlocked first.
func (t *Tracker) unlock(a Achievement, at time.Time) AwardOutcome {
	if t.state.Unlocked == nil {
		t.state.Unlocked = make(map[AchievementID]time.Time)
	}
	t.state.Unlocked[a.ID] = at
	t.emit(shared.NewAchievementUnlockedEvent(t.userID(), string(a.ID), string(a.Category), a.Title, a.Points, at))
	t.log.Info("achievement unlocked",
		logger.UserID(t.userID()),
		logger.AchievementID(string(a.ID)),
	)
	return t.AwardPointsFor(a.Points, "achievement:"+string(a.ID), at)
}

// ══════════════════════════════════════════════════════════════════════════════
// MOMENTS & PHOTOS
// ══════════════════════════════════════════════════════════════════════════════

// RecordSpecialMoment counts m and, the first time any special achievement
// is missing, unlocks Memory Keeper. It returns the newly unlocked achievements.
func (t *Tracker) RecordSpecialMoment(m Moment) []Achievement {
	at := m.Date
	if at.IsZero() {
		at = t.now()
	}
	t.state.MomentsRecorded++
	t.state.UpdatedAt = at
	t.emit(shared.NewMomentRecordedEvent(t.userID(), m.ID, string(m.Type), at))

	if t.state.HasCategory(CategorySpecial) {
		return nil
	}
	t.unlock(memoryKeeper, at)
	return []Achievement{memoryKeeper}
}

// PhotoOutcome reports what a monthly photo changed.
type PhotoOutcome struct {
	AgeMonths int
	Unlocked  *Achievement
	LevelUp   *Level
	// Reminder is the request for next month's photo, if any.
	Reminder *notification.Reminder
}

// RecordMonthlyPhoto handles a photo of child taken at at. For ages 1..12
// months it unlocks that month's badge once and requests a reminder for the
// following month (up to month 12).
func (t *Tracker) RecordMonthlyPhoto(child *baby.Child, at time.Time) PhotoOutcome {
	if child == nil {
		return PhotoOutcome{}
	}
	age := child.AgeInMonths(at)
	out := PhotoOutcome{AgeMonths: age}
	if age < 1 || age > notification.MonthlyPhotoMonths {
		return out
	}

	a := PhotoAchievement(age)
	if t.state.IsUnlocked(a.ID) {
		return out
	}
	award := t.unlock(a, at)
	out.Unlocked = &a
	if award.LeveledUp {
		lvl := award.To
		out.LevelUp = &lvl
	}

	if age+1 <= notification.MonthlyPhotoMonths {
		r, err := notification.NewMonthlyPhotoReminder(child, age+1, at)
		if err != nil {
			t.log.Error("monthly photo reminder", logger.ChildID(child.ID.String()), logger.Err(err))
			return out
		}
		out.Reminder = &r
		t.emit(r.Event(at))
	}
	return out
}

// String summarises the state for logs and the CLI.
func (t *Tracker) String() string {
	lvl := t.Level()
	return fmt.Sprintf("streak=%d best=%d level=%d (%s) points=%d/%d achievements=%d",
		t.state.StreakDays, t.state.BestStreak, lvl.Number, lvl.Title,
		t.state.Points, lvl.PointsRequiredForNext, len(t.state.Unlocked))
}
