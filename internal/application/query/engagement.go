package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT SUMMARY QUERY
// Everything the home screen shows: streak, level progress, achievements and
// today's content.
// ══════════════════════════════════════════════════════════════════════════════

// EngagementSummaryDTO is the read model of one user's engagement.
type EngagementSummaryDTO struct {
	UserID     string `json:"user_id"`
	StreakDays int    `json:"streak_days"`
	BestStreak int    `json:"best_streak"`

	// DaysUntilStreakBreaks is 0 when the streak is already lost.
	DaysUntilStreakBreaks int `json:"days_until_streak_breaks"`

	Level         engagement.Level `json:"level"`
	Points        int              `json:"points"`
	TotalPoints   int              `json:"total_points"`
	LevelProgress float64          `json:"level_progress"`

	UnlockedCount int                            `json:"unlocked_count"`
	Achievements  []engagement.AchievementStatus `json:"achievements"`

	MomentsRecorded int                      `json:"moments_recorded"`
	Content         *engagement.DailyContent `json:"content,omitempty"`
}

// EngagementSummaryHandler builds EngagementSummaryDTO.
type EngagementSummaryHandler struct {
	repo engagement.Repository
	cal  timeutil.Calendar
	now  func() time.Time
}

// NewEngagementSummaryHandler creates a new handler. now may be nil.
func NewEngagementSummaryHandler(repo engagement.Repository, cal timeutil.Calendar, now func() time.Time) *EngagementSummaryHandler {
	if now == nil {
		now = time.Now
	}
	return &EngagementSummaryHandler{repo: repo, cal: cal, now: now}
}

// Handle returns the summary of userID. Users without stored state get the
// initial summary.
func (h *EngagementSummaryHandler) Handle(ctx context.Context, userID shared.UserID) (*EngagementSummaryDTO, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	state, err := h.repo.Get(ctx, userID)
	if errors.Is(err, shared.ErrEngagementNotFound) {
		state = engagement.NewState(userID)
	} else if err != nil {
		return nil, fmt.Errorf("engagement_summary: %w", err)
	}

	level := state.CurrentLevel()
	today := shared.DateOf(h.now().In(h.cal.Location()))
	dto := &EngagementSummaryDTO{
		UserID:                userID.String(),
		StreakDays:            state.StreakDays,
		BestStreak:            state.BestStreak,
		DaysUntilStreakBreaks: state.DaysUntilStreakBreaks(today),
		Level:                 level,
		Points:                state.Points,
		TotalPoints:           state.TotalPoints,
		LevelProgress:         level.Progress(state.Points),
		UnlockedCount:         len(state.Unlocked),
		Achievements:          engagement.Statuses(state),
		MomentsRecorded:       state.MomentsRecorded,
	}
	if !state.Content.IsZero() && state.Content.Day == today {
		content := state.Content
		dto.Content = &content
	}
	return dto, nil
}
