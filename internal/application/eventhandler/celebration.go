// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"fmt"
	"sync"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// CELEBRATION HANDLER
// Turns achievement, level and streak events into messages the client shows
// as a celebration banner or a gentle nudge.
// ═══════════════════════════════════════════════════════════════════════════

// CelebrationKind tells the client how to present a celebration.
type CelebrationKind string

const (
	CelebrationAchievement CelebrationKind = "achievement"
	CelebrationLevelUp     CelebrationKind = "level_up"
	CelebrationStreakLost  CelebrationKind = "streak_lost"
)

// Celebration is one message for the user.
type Celebration struct {
	UserID  string          `json:"user_id"`
	Kind    CelebrationKind `json:"kind"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
}

// CelebrationSink receives celebrations. Implementations must be safe for
// concurrent use when the bus runs asynchronously.
type CelebrationSink interface {
	Celebrate(c Celebration) error
}

// CelebrationInbox is a CelebrationSink that keeps celebrations in memory
// until the client drains them.
type CelebrationInbox struct {
	mu    sync.Mutex
	items map[string][]Celebration
}

// NewCelebrationInbox creates an empty inbox.
func NewCelebrationInbox() *CelebrationInbox {
	return &CelebrationInbox{items: make(map[string][]Celebration)}
}

// Celebrate implements CelebrationSink.
func (i *CelebrationInbox) Celebrate(c Celebration) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items[c.UserID] = append(i.items[c.UserID], c)
	return nil
}

// Drain returns and forgets the celebrations of userID, oldest first.
func (i *CelebrationInbox) Drain(userID string) []Celebration {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items[userID]
	delete(i.items, userID)
	return out
}

// CelebrationHandler handles achievement, level-up and streak-broken events.
type CelebrationHandler struct {
	sink CelebrationSink
	log  *logger.Logger
}

// NewCelebrationHandler creates a new handler. sink may be nil, in which
// case celebrations are only logged.
func NewCelebrationHandler(sink CelebrationSink, log *logger.Logger) *CelebrationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CelebrationHandler{sink: sink, log: log.With(logger.Component("celebration_handler"))}
}

// EventTypes lists the events the handler subscribes to.
func (h *CelebrationHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventAchievementUnlocked,
		shared.EventLevelUp,
		shared.EventStreakBroken,
	}
}

// Handle implements shared.EventHandler.
func (h *CelebrationHandler) Handle(event shared.Event) error {
	var c Celebration
	switch e := event.(type) {
	case shared.AchievementUnlockedEvent:
		c = Celebration{
			UserID:  e.UserID,
			Kind:    CelebrationAchievement,
			Title:   e.Title,
			Message: fmt.Sprintf("Achievement unlocked: %s (+%d points)", e.Title, e.PointsAwarded),
		}
		h.log.Info("achievement unlocked",
			logger.UserID(e.UserID),
			logger.String("achievement_id", e.AchievementID),
			logger.Points(e.PointsAwarded),
		)
	case shared.LevelUpEvent:
		c = Celebration{
			UserID:  e.UserID,
			Kind:    CelebrationLevelUp,
			Title:   e.Title,
			Message: fmt.Sprintf("You reached level %d: %s", e.NewLevel, e.Title),
		}
		h.log.Info("level up",
			logger.UserID(e.UserID),
			logger.LevelNumber(e.NewLevel),
		)
	case shared.StreakBrokenEvent:
		if e.PreviousStreak < 2 {
			return nil
		}
		c = Celebration{
			UserID:  e.UserID,
			Kind:    CelebrationStreakLost,
			Title:   "Fresh start",
			Message: fmt.Sprintf("Your %d day streak ended. Every day is a new chance!", e.PreviousStreak),
		}
		h.log.Info("streak broken",
			logger.UserID(e.UserID),
			logger.Streak(e.PreviousStreak),
			logger.Int("days_missed", e.DaysMissed),
		)
	default:
		return nil
	}

	if h.sink == nil {
		return nil
	}
	if err := h.sink.Celebrate(c); err != nil {
		return fmt.Errorf("celebrate %s: %w", c.Kind, err)
	}
	return nil
}
