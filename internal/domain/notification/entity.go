// Package notification models reminder requests the core hands to a
// notification collaborator as plain data. The core never delivers anything
// itself; reminders are queued in an Outbox and drained by whoever owns
// delivery on the device or server.
package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ReminderID is a UUID. Scheduled reminders get a name-based ID so that
// requesting the same reminder twice maps to the same row.
type ReminderID string

// IsValid checks the ID is a UUID.
func (id ReminderID) IsValid() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

// String returns the string representation of the ID.
func (id ReminderID) String() string {
	return string(id)
}

// reminderNamespace scopes name-based reminder IDs.
var reminderNamespace = uuid.MustParse("6f1c2a4e-94b7-4c1e-9d0a-3f1b2c8e7a51")

// StableReminderID derives the reminder ID for (child, kind, month).
func StableReminderID(childID shared.ChildID, kind Kind, month int) ReminderID {
	name := fmt.Sprintf("%s/%s/%d", childID, kind, month)
	return ReminderID(uuid.NewSHA1(reminderNamespace, []byte(name)).String())
}

// Kind is the reminder category.
type Kind string

const (
	// KindMonthlyPhoto asks the parent to take the month-n photo.
	KindMonthlyPhoto Kind = "monthly_photo"
)

// IsValid checks the kind is known.
func (k Kind) IsValid() bool {
	return k == KindMonthlyPhoto
}

// String returns the string representation of the kind.
func (k Kind) String() string { return string(k) }

// Status is the outbox lifecycle state.
type Status string

const (
	// StatusPending is queued and not yet handed over.
	StatusPending Status = "pending"
	// StatusDelivered was handed to the notification collaborator.
	StatusDelivered Status = "delivered"
	// StatusCancelled will never be delivered.
	StatusCancelled Status = "cancelled"
)

// IsValid checks the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsFinal reports whether no further transition is possible.
func (s Status) IsFinal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ══════════════════════════════════════════════════════════════════════════════
// REMINDER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Reminder is a scheduling request: deliver Message on TargetDate.
type Reminder struct {
	ID      ReminderID
	ChildID shared.ChildID
	Kind    Kind

	// Month is the child's age in months the reminder refers to (1..12).
	Month int

	// TargetDate is when the reminder should fire.
	TargetDate time.Time

	Title   string
	Message string

	Status      Status
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// Validate checks the reminder invariants.
func (r Reminder) Validate() error {
	invalid := func(msg string) error {
		return shared.NewDomainError("notification", "Validate", shared.ErrValidation, msg)
	}
	if !r.ID.IsValid() {
		return invalid("reminder ID must be a UUID")
	}
	if !r.ChildID.IsValid() {
		return invalid("child ID must be a UUID")
	}
	if !r.Kind.IsValid() {
		return invalid(fmt.Sprintf("unknown reminder kind %q", r.Kind))
	}
	if r.TargetDate.IsZero() {
		return invalid("target date is required")
	}
	if r.Message == "" {
		return invalid("message is required")
	}
	if !r.Status.IsValid() {
		return invalid(fmt.Sprintf("unknown status %q", r.Status))
	}
	return nil
}

// IsDue reports whether a pending reminder should fire at now.
func (r Reminder) IsDue(now time.Time) bool {
	return r.Status == StatusPending && !r.TargetDate.After(now)
}

// MarkDelivered moves a pending reminder to delivered.
func (r *Reminder) MarkDelivered(at time.Time) error {
	if r.Status != StatusPending {
		return shared.NewDomainError("notification", "MarkDelivered", shared.ErrValidation,
			fmt.Sprintf("cannot deliver reminder in status %s", r.Status))
	}
	r.Status = StatusDelivered
	r.DeliveredAt = &at
	return nil
}

// Cancel moves a non-final reminder to cancelled.
func (r *Reminder) Cancel() error {
	if r.Status.IsFinal() {
		return shared.NewDomainError("notification", "Cancel", shared.ErrValidation,
			fmt.Sprintf("cannot cancel reminder in status %s", r.Status))
	}
	r.Status = StatusCancelled
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// Event converts the reminder into the event published on the bus.
func (r Reminder) Event(at time.Time) shared.ReminderRequestedEvent {
	return shared.ReminderRequestedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventReminderRequested, r.ChildID.String(), at),
		ReminderID: r.ID.String(),
		ChildID:    r.ChildID.String(),
		Kind:       r.Kind.String(),
		Month:      r.Month,
		TargetDate: r.TargetDate,
		Title:      r.Title,
		Message:    r.Message,
	}
}

// FromEvent rebuilds a pending reminder from a published request.
func FromEvent(e shared.ReminderRequestedEvent) Reminder {
	return Reminder{
		ID:         ReminderID(e.ReminderID),
		ChildID:    shared.ChildID(e.ChildID),
		Kind:       Kind(e.Kind),
		Month:      e.Month,
		TargetDate: e.TargetDate,
		Title:      e.Title,
		Message:    e.Message,
		Status:     StatusPending,
		CreatedAt:  e.OccurredAt(),
	}
}
