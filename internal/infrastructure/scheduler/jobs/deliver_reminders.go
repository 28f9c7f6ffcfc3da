// Package jobs contains the scheduled jobs of the Snuggle worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/pkg/circuitbreaker"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELIVER REMINDERS JOB
// Hands every pending reminder whose target date has passed to the sender and
// marks it delivered. A failed send leaves the reminder pending for the next
// run.
// ══════════════════════════════════════════════════════════════════════════════

// DeliverRemindersConfig configures DeliverRemindersJob.
type DeliverRemindersConfig struct {
	// BatchSize caps the reminders handled per run (0 = no cap).
	BatchSize int

	// Now overrides the clock in tests.
	Now func() time.Time
}

// DeliverRemindersJob implements scheduler.Job.
type DeliverRemindersJob struct {
	outbox notification.Outbox
	sender notification.Sender
	log    *logger.Logger
	config DeliverRemindersConfig
}

// NewDeliverRemindersJob creates the job.
func NewDeliverRemindersJob(
	outbox notification.Outbox,
	sender notification.Sender,
	log *logger.Logger,
	config DeliverRemindersConfig,
) *DeliverRemindersJob {
	if log == nil {
		log = logger.Nop()
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	return &DeliverRemindersJob{
		outbox: outbox,
		sender: sender,
		log:    log.With(logger.Component("deliver_reminders")),
		config: config,
	}
}

// Name implements scheduler.Job.
func (j *DeliverRemindersJob) Name() string { return "deliver_reminders" }

// Description implements scheduler.Job.
func (j *DeliverRemindersJob) Description() string {
	return "Sends due monthly photo reminders"
}

// Run implements scheduler.Job.
func (j *DeliverRemindersJob) Run(ctx context.Context) error {
	_, err := j.Deliver(ctx)
	return err
}

// Deliver runs one pass and returns the number of delivered reminders.
func (j *DeliverRemindersJob) Deliver(ctx context.Context) (int, error) {
	now := j.config.Now()
	due, err := j.outbox.Pending(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load pending reminders: %w", err)
	}
	if j.config.BatchSize > 0 && len(due) > j.config.BatchSize {
		due = due[:j.config.BatchSize]
	}

	delivered := 0
	var errs []error
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := j.sender.Send(ctx, r); err != nil {
			j.log.Warn("reminder send failed",
				logger.String("reminder_id", r.ID.String()),
				logger.ChildID(r.ChildID.String()),
				logger.Err(err),
			)
			errs = append(errs, fmt.Errorf("send %s: %w", r.ID, err))
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
				break
			}
			continue
		}
		if err := j.outbox.MarkDelivered(ctx, r.ID, now); err != nil {
			errs = append(errs, fmt.Errorf("mark %s delivered: %w", r.ID, err))
			continue
		}
		delivered++
	}

	j.log.Info("reminders delivered",
		logger.Int("due", len(due)),
		logger.Int("delivered", delivered),
	)
	return delivered, errors.Join(errs...)
}

// LogSender is a Sender that only logs. Used when no push service is wired.
type LogSender struct {
	Log *logger.Logger
}

// Send implements notification.Sender.
func (s LogSender) Send(_ context.Context, r notification.Reminder) error {
	if s.Log != nil {
		s.Log.Info(r.Message,
			logger.String("title", r.Title),
			logger.ChildID(r.ChildID.String()),
			logger.Date("target_date", r.TargetDate),
		)
	}
	return nil
}

// BreakerSender stops calling a failing sender until the breaker admits a
// trial call.
type BreakerSender struct {
	Sender  notification.Sender
	Breaker *circuitbreaker.CircuitBreaker
}

// Send implements notification.Sender.
func (s BreakerSender) Send(ctx context.Context, r notification.Reminder) error {
	return s.Breaker.Execute(ctx, func(ctx context.Context) error {
		return s.Sender.Send(ctx, r)
	})
}
