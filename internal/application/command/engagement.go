// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/retry"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT COMMANDS
// Each command loads a user's state, runs the tracker, saves the result and
// publishes the tracker's events. Mutations of one user never interleave.
// ══════════════════════════════════════════════════════════════════════════════

// RecordAppOpenCommand records that the app was opened.
type RecordAppOpenCommand struct {
	UserID shared.UserID

	// Timestamp is when the app was opened (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordAppOpenCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// AwardPointsCommand grants points outside of achievements.
type AwardPointsCommand struct {
	UserID        shared.UserID
	Points        int
	Reason        string
	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c AwardPointsCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if c.Points <= 0 {
		return shared.ErrInvalidPoints
	}
	return nil
}

// RecordSpecialMomentCommand saves a milestone.
type RecordSpecialMomentCommand struct {
	UserID        shared.UserID
	ChildID       shared.ChildID
	Type          engagement.MomentType
	Notes         string
	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c RecordSpecialMomentCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if !c.Type.IsValid() {
		return shared.NewDomainError("engagement", "RecordSpecialMoment", shared.ErrInvalidInput,
			fmt.Sprintf("unknown moment type %q", c.Type))
	}
	return nil
}

// RecordMonthlyPhotoCommand records that the monthly photo of a child was taken.
type RecordMonthlyPhotoCommand struct {
	UserID        shared.UserID
	ChildID       shared.ChildID
	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c RecordMonthlyPhotoCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if !c.ChildID.IsValid() {
		return shared.NewDomainError("baby", "Validate", shared.ErrInvalidID, "child ID must be a UUID")
	}
	return nil
}

// EngagementResult is returned by every engagement command.
type EngagementResult struct {
	// State is the saved state.
	State engagement.State

	// Level is the resolved current level.
	Level engagement.Level

	// AppOpen is set by RecordAppOpen.
	AppOpen *engagement.AppOpenOutcome

	// Award is set by AwardPoints.
	Award *engagement.AwardOutcome

	// Unlocked lists achievements unlocked by this command.
	Unlocked []engagement.Achievement

	// Photo is set by RecordMonthlyPhoto.
	Photo *engagement.PhotoOutcome

	// Events contains the domain events that were published.
	Events []shared.Event

	// Saved is false when the command changed nothing and no write happened.
	Saved bool
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// EngagementServiceConfig contains configuration for the service.
type EngagementServiceConfig struct {
	Calendar timeutil.Calendar
	Content  engagement.ContentGenerator
	// MaxConflictRetries is how many times a command reloads and retries
	// after a version conflict, on top of the first attempt.
	MaxConflictRetries int
	Now                func() time.Time
}

// DefaultEngagementServiceConfig returns default configuration.
func DefaultEngagementServiceConfig() EngagementServiceConfig {
	return EngagementServiceConfig{
		Calendar:           timeutil.UTC,
		Content:            engagement.NewChallengeGenerator(nil),
		MaxConflictRetries: 3,
		Now:                func() time.Time { return time.Now().UTC() },
	}
}

// EngagementService runs engagement commands.
type EngagementService struct {
	repo      engagement.Repository
	children  baby.Repository
	publisher shared.EventPublisher
	log       *logger.Logger
	locks     *userLocks
	retrier   *retry.Retrier
	cal       timeutil.Calendar
	content   engagement.ContentGenerator
	now       func() time.Time
}

// NewEngagementService creates a new EngagementService. children may be nil
// when monthly photos are not used.
func NewEngagementService(
	repo engagement.Repository,
	children baby.Repository,
	publisher shared.EventPublisher,
	log *logger.Logger,
	config EngagementServiceConfig,
) *EngagementService {
	def := DefaultEngagementServiceConfig()
	if config.Content == nil {
		config.Content = def.Content
	}
	if config.MaxConflictRetries <= 0 {
		config.MaxConflictRetries = def.MaxConflictRetries
	}
	if config.Now == nil {
		config.Now = def.Now
	}
	if publisher == nil {
		publisher = shared.NoopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("engagement_service"))

	return &EngagementService{
		repo:      repo,
		children:  children,
		publisher: publisher,
		log:       log,
		locks:     newUserLocks(),
		retrier: retry.New(retry.StorePolicy(),
			retry.WithRetries(config.MaxConflictRetries),
			retry.WithRetryIf(isTransient),
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				log.Warn("retrying engagement save",
					logger.Int("attempt", attempt),
					logger.Duration("delay", delay),
					logger.Err(err),
				)
			}),
		),
		cal:     config.Calendar,
		content: config.Content,
		now:     config.Now,
	}
}

func isTransient(err error) bool {
	return errors.Is(err, shared.ErrConcurrentModification) ||
		errors.Is(err, shared.ErrServiceUnavailable)
}

// State returns the stored state of userID, or the initial state when none exists.
func (s *EngagementService) State(ctx context.Context, userID shared.UserID) (engagement.State, error) {
	if !userID.IsValid() {
		return engagement.State{}, shared.ErrInvalidUserID
	}
	return s.load(ctx, userID)
}

func (s *EngagementService) load(ctx context.Context, userID shared.UserID) (engagement.State, error) {
	state, err := s.repo.Get(ctx, userID)
	if errors.Is(err, shared.ErrEngagementNotFound) {
		return engagement.NewState(userID), nil
	}
	if err != nil {
		return engagement.State{}, fmt.Errorf("load engagement state: %w", err)
	}
	return state, nil
}

// mutate is the load, apply, save, publish cycle shared by all commands.
// apply may run more than once when a concurrent writer wins the save.
func (s *EngagementService) mutate(
	ctx context.Context,
	userID shared.UserID,
	correlationID string,
	apply func(tr *engagement.Tracker, result *EngagementResult),
) (*EngagementResult, error) {
	unlock := s.locks.Lock(userID.String())
	defer unlock()

	start := time.Now()
	var result *EngagementResult
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		state, err := s.load(ctx, userID)
		if err != nil {
			return err
		}

		result = &EngagementResult{}
		tr := engagement.NewTracker(state,
			engagement.WithCalendar(s.cal),
			engagement.WithContentGenerator(s.content),
			engagement.WithClock(s.now),
			engagement.WithLogger(s.log),
			engagement.WithListener(func(e shared.Event) { result.Events = append(result.Events, e) }),
		)
		apply(tr, result)

		result.State = tr.State()
		if len(result.Events) == 0 {
			return nil
		}
		saved, err := s.repo.Save(ctx, result.State)
		if err != nil {
			return err
		}
		result.State = saved
		result.Saved = true
		return nil
	})
	if err != nil {
		s.log.Error("engagement command failed", logger.UserID(userID.String()), logger.Err(err))
		return nil, err
	}
	result.Level = result.State.CurrentLevel()

	for i, e := range result.Events {
		if correlationID != "" {
			e = withCorrelation(e, correlationID)
			result.Events[i] = e
		}
		if err := s.publisher.Publish(e); err != nil {
			s.log.Warn("publish event failed",
				logger.UserID(userID.String()),
				logger.String("event", string(e.EventType())),
				logger.Err(err),
			)
		}
	}

	s.log.Debug("engagement command done",
		logger.UserID(userID.String()),
		logger.Int("events", len(result.Events)),
		logger.Latency(time.Since(start)),
	)
	return result, nil
}

// RecordAppOpen handles RecordAppOpenCommand.
func (s *EngagementService) RecordAppOpen(ctx context.Context, cmd RecordAppOpenCommand) (*EngagementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_app_open: validation failed: %w", err)
	}
	at := s.timestamp(cmd.Timestamp)

	return s.mutate(ctx, cmd.UserID, cmd.CorrelationID, func(tr *engagement.Tracker, r *EngagementResult) {
		out := tr.RecordAppOpen(at)
		r.AppOpen = &out
		r.Unlocked = out.Unlocked
	})
}

// AwardPoints handles AwardPointsCommand.
func (s *EngagementService) AwardPoints(ctx context.Context, cmd AwardPointsCommand) (*EngagementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("award_points: validation failed: %w", err)
	}
	at := s.timestamp(cmd.Timestamp)
	reason := cmd.Reason
	if reason == "" {
		reason = "manual"
	}

	return s.mutate(ctx, cmd.UserID, cmd.CorrelationID, func(tr *engagement.Tracker, r *EngagementResult) {
		out := tr.AwardPointsFor(cmd.Points, reason, at)
		r.Award = &out
	})
}

// RecordSpecialMoment handles RecordSpecialMomentCommand.
func (s *EngagementService) RecordSpecialMoment(ctx context.Context, cmd RecordSpecialMomentCommand) (*EngagementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_special_moment: validation failed: %w", err)
	}
	moment, err := engagement.NewMoment(cmd.ChildID, cmd.Type, s.timestamp(cmd.Timestamp), cmd.Notes)
	if err != nil {
		return nil, fmt.Errorf("record_special_moment: %w", err)
	}

	return s.mutate(ctx, cmd.UserID, cmd.CorrelationID, func(tr *engagement.Tracker, r *EngagementResult) {
		r.Unlocked = tr.RecordSpecialMoment(moment)
	})
}

// RecordMonthlyPhoto handles RecordMonthlyPhotoCommand.
func (s *EngagementService) RecordMonthlyPhoto(ctx context.Context, cmd RecordMonthlyPhotoCommand) (*EngagementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_monthly_photo: validation failed: %w", err)
	}
	if s.children == nil {
		return nil, shared.NewDomainError("baby", "Find", shared.ErrServiceUnavailable, "no child repository configured")
	}
	child, err := s.children.Get(ctx, cmd.ChildID)
	if err != nil {
		return nil, fmt.Errorf("record_monthly_photo: get child: %w", err)
	}
	if child.OwnerID != cmd.UserID {
		return nil, shared.WrapError("baby", "Find", shared.ErrNotFound, "child not owned by user", shared.ErrChildNotFound)
	}
	at := s.timestamp(cmd.Timestamp)

	return s.mutate(ctx, cmd.UserID, cmd.CorrelationID, func(tr *engagement.Tracker, r *EngagementResult) {
		out := tr.RecordMonthlyPhoto(child, at)
		r.Photo = &out
		if out.Unlocked != nil {
			r.Unlocked = []engagement.Achievement{*out.Unlocked}
		}
	})
}

func (s *EngagementService) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}
