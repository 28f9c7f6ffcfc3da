package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHILD COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// RegisterChildCommand creates a child profile.
type RegisterChildCommand struct {
	OwnerID     shared.UserID
	Name        string
	DateOfBirth time.Time
	Gender      growth.Gender

	// ScheduleReminders queues the twelve monthly photo reminders.
	ScheduleReminders bool
}

// AddMeasurementCommand appends a growth measurement.
type AddMeasurementCommand struct {
	OwnerID           shared.UserID
	ChildID           shared.ChildID
	Date              time.Time
	Weight            *float64
	Height            *float64
	HeadCircumference *float64
	CorrelationID     string
}

// Validate validates the command.
func (c AddMeasurementCommand) Validate() error {
	if !c.OwnerID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if !c.ChildID.IsValid() {
		return shared.NewDomainError("baby", "Validate", shared.ErrInvalidID, "child ID must be a UUID")
	}
	if c.Weight == nil && c.Height == nil && c.HeadCircumference == nil {
		return shared.NewDomainError("baby", "AddMeasurement", shared.ErrValidation, "at least one value is required")
	}
	return nil
}

// AddMeasurementResult contains the stored measurement and its percentiles.
type AddMeasurementResult struct {
	Measurement growth.Measurement
	AgeMonths   int
	Percentiles map[growth.MeasurementKind]float64
}

// ChildServiceConfig contains configuration for ChildService.
type ChildServiceConfig struct {
	Now func() time.Time
}

// ChildService runs child profile commands.
type ChildService struct {
	children  baby.Repository
	outbox    notification.Outbox
	engine    *growth.Engine
	publisher shared.EventPublisher
	log       *logger.Logger
	retrier   *retry.Retrier
	now       func() time.Time
}

// NewChildService creates a new ChildService. outbox may be nil.
func NewChildService(
	children baby.Repository,
	outbox notification.Outbox,
	engine *growth.Engine,
	publisher shared.EventPublisher,
	log *logger.Logger,
	config ChildServiceConfig,
) *ChildService {
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	if publisher == nil {
		publisher = shared.NoopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ChildService{
		children:  children,
		outbox:    outbox,
		engine:    engine,
		publisher: publisher,
		log:       log.With(logger.Component("child_service")),
		retrier:   retry.New(retry.StorePolicy(), retry.WithRetryIf(isTransient)),
		now:       config.Now,
	}
}

// RegisterChild handles RegisterChildCommand.
func (s *ChildService) RegisterChild(ctx context.Context, cmd RegisterChildCommand) (*baby.Child, error) {
	child, err := baby.NewChild(baby.NewChildParams{
		OwnerID:     cmd.OwnerID,
		Name:        cmd.Name,
		DateOfBirth: cmd.DateOfBirth,
		Gender:      cmd.Gender,
		Now:         s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("register_child: %w", err)
	}
	if err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.children.Save(ctx, child)
	}); err != nil {
		return nil, fmt.Errorf("register_child: save: %w", err)
	}

	if cmd.ScheduleReminders && s.outbox != nil {
		schedule, err := notification.GenerateMonthlyPhotoSchedule(child, s.now())
		if err != nil {
			return nil, fmt.Errorf("register_child: schedule: %w", err)
		}
		for _, r := range schedule {
			if err := s.outbox.Enqueue(ctx, r); err != nil && !errors.Is(err, shared.ErrReminderExists) {
				return nil, fmt.Errorf("register_child: enqueue reminder: %w", err)
			}
		}
	}

	s.log.Info("child registered",
		logger.ChildID(child.ID.String()),
		logger.UserID(child.OwnerID.String()),
	)
	return child, nil
}

// AddMeasurement handles AddMeasurementCommand.
func (s *ChildService) AddMeasurement(ctx context.Context, cmd AddMeasurementCommand) (*AddMeasurementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_measurement: validation failed: %w", err)
	}
	child, err := s.children.Get(ctx, cmd.ChildID)
	if err != nil {
		return nil, fmt.Errorf("add_measurement: get child: %w", err)
	}
	if child.OwnerID != cmd.OwnerID {
		return nil, shared.WrapError("baby", "Find", shared.ErrNotFound, "child not owned by user", shared.ErrChildNotFound)
	}

	date := cmd.Date
	if date.IsZero() {
		date = s.now()
	}
	m, err := child.AddMeasurement(growth.Measurement{
		Date:              date,
		Weight:            cmd.Weight,
		Height:            cmd.Height,
		HeadCircumference: cmd.HeadCircumference,
	})
	if err != nil {
		return nil, fmt.Errorf("add_measurement: %w", err)
	}
	if err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.children.AddMeasurement(ctx, child.ID, m)
	}); err != nil {
		return nil, fmt.Errorf("add_measurement: save: %w", err)
	}

	result := &AddMeasurementResult{
		Measurement: m,
		AgeMonths:   child.AgeInMonths(m.Date),
		Percentiles: make(map[growth.MeasurementKind]float64),
	}
	payload := make(map[string]float64)
	if child.HasGender() && s.engine != nil {
		for _, kind := range growth.MeasurementKinds {
			v, ok := m.ValueOf(kind)
			if !ok {
				continue
			}
			p := s.engine.ComputePercentile(v, result.AgeMonths, child.Gender, kind)
			result.Percentiles[kind] = p
			payload[kind.String()] = p
			s.log.Debug("percentile computed",
				logger.ChildID(child.ID.String()),
				logger.MeasurementKind(kind.String()),
				logger.AgeMonths(result.AgeMonths),
				logger.Percentile(p),
			)
		}
	}

	var event shared.Event = shared.NewMeasurementAddedEvent(child.ID.String(), m.ID, result.AgeMonths, payload, s.now())
	if cmd.CorrelationID != "" {
		event = withCorrelation(event, cmd.CorrelationID)
	}
	if err := s.publisher.Publish(event); err != nil {
		s.log.Warn("publish event failed", logger.ChildID(child.ID.String()), logger.Err(err))
	}
	return result, nil
}
