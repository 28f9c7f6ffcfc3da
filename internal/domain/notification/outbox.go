package notification

import (
	"context"
	"time"
)

// Outbox stores reminder requests until the notification collaborator
// picks them up.
type Outbox interface {
	// Enqueue stores a pending reminder.
	// Returns shared.ErrReminderExists if a reminder with the same ID is queued.
	Enqueue(ctx context.Context, r Reminder) error

	// Pending returns pending reminders whose target date is not after before,
	// ordered by target date.
	Pending(ctx context.Context, before time.Time) ([]Reminder, error)

	// MarkDelivered records that the reminder was handed over.
	MarkDelivered(ctx context.Context, id ReminderID, at time.Time) error
}

// Sender hands a due reminder to the device notification service.
type Sender interface {
	Send(ctx context.Context, r Reminder) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, r Reminder) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, r Reminder) error { return f(ctx, r) }
