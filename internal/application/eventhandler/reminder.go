package eventhandler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/retry"
)

// ═══════════════════════════════════════════════════════════════════════════
// REMINDER HANDLER
// Stores reminder requests in the outbox. A reminder that is already queued
// is not an error: photo reminders have stable IDs so repeats collapse.
// ═══════════════════════════════════════════════════════════════════════════

// ReminderHandler handles ReminderRequestedEvent.
type ReminderHandler struct {
	outbox  notification.Outbox
	log     *logger.Logger
	retrier *retry.Retrier
	timeout time.Duration
}

// NewReminderHandler creates a new handler.
func NewReminderHandler(outbox notification.Outbox, log *logger.Logger) *ReminderHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ReminderHandler{
		outbox:  outbox,
		log:     log.With(logger.Component("reminder_handler")),
		retrier: retry.New(retry.StorePolicy(), retry.WithRetryIf(func(err error) bool {
			return errors.Is(err, shared.ErrServiceUnavailable)
		})),
		timeout: 5 * time.Second,
	}
}

// Handle implements shared.EventHandler.
func (h *ReminderHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.ReminderRequestedEvent)
	if !ok {
		return nil
	}
	r := notification.FromEvent(e)
	if err := r.Validate(); err != nil {
		return fmt.Errorf("reminder %s: %w", r.ID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		return h.outbox.Enqueue(ctx, r)
	})
	switch {
	case errors.Is(err, shared.ErrReminderExists):
		h.log.Debug("reminder already queued", logger.String("reminder_id", r.ID.String()))
		return nil
	case err != nil:
		return fmt.Errorf("enqueue reminder %s: %w", r.ID, err)
	}

	h.log.Info("reminder queued",
		logger.ChildID(r.ChildID.String()),
		logger.Int("month", r.Month),
		logger.Date("target_date", r.TargetDate),
	)
	return nil
}
