package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// Outbox implements notification.Outbox.
type Outbox struct {
	mu        sync.Mutex
	reminders map[notification.ReminderID]notification.Reminder
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{reminders: make(map[notification.ReminderID]notification.Reminder)}
}

// Enqueue implements notification.Outbox.
func (o *Outbox) Enqueue(ctx context.Context, r notification.Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.reminders[r.ID]; ok {
		return shared.ErrReminderExists
	}
	o.reminders[r.ID] = r
	return nil
}

// Pending implements notification.Outbox.
func (o *Outbox) Pending(ctx context.Context, before time.Time) ([]notification.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []notification.Reminder
	for _, r := range o.reminders {
		if r.IsDue(before) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetDate.Before(out[j].TargetDate) })
	return out, nil
}

// MarkDelivered implements notification.Outbox.
func (o *Outbox) MarkDelivered(ctx context.Context, id notification.ReminderID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.reminders[id]
	if !ok {
		return shared.NewDomainError("notification", "MarkDelivered", shared.ErrNotFound, "reminder not found")
	}
	if err := r.MarkDelivered(at); err != nil {
		return err
	}
	o.reminders[id] = r
	return nil
}

// All returns every reminder regardless of status, ordered by target date.
func (o *Outbox) All() []notification.Reminder {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]notification.Reminder, 0, len(o.reminders))
	for _, r := range o.reminders {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetDate.Before(out[j].TargetDate) })
	return out
}
