package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REMINDER OUTBOX IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// Outbox implements notification.Outbox for PostgreSQL.
type Outbox struct {
	conn *Connection
}

// NewOutbox creates a new Outbox.
func NewOutbox(conn *Connection) *Outbox {
	return &Outbox{conn: conn}
}

// Enqueue implements notification.Outbox.
func (o *Outbox) Enqueue(ctx context.Context, r notification.Reminder) error {
	if err := r.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO reminders (id, child_id, kind, month, target_date, title, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := o.conn.Exec(ctx, query,
		r.ID.String(),
		r.ChildID.String(),
		string(r.Kind),
		r.Month,
		r.TargetDate,
		r.Title,
		r.Message,
		string(r.Status),
		createdAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrReminderExists
		}
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	return nil
}

// Pending implements notification.Outbox.
func (o *Outbox) Pending(ctx context.Context, before time.Time) ([]notification.Reminder, error) {
	rows, err := o.conn.Query(ctx, `
		SELECT id, child_id, kind, month, target_date, title, message, status, created_at, delivered_at
		FROM reminders
		WHERE status = 'pending' AND target_date <= $1
		ORDER BY target_date, id
	`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reminders: %w", err)
	}
	defer rows.Close()

	var out []notification.Reminder
	for rows.Next() {
		var (
			r                      notification.Reminder
			id, child, kind, state string
		)
		if err := rows.Scan(&id, &child, &kind, &r.Month, &r.TargetDate, &r.Title, &r.Message,
			&state, &r.CreatedAt, &r.DeliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.ID = notification.ReminderID(id)
		r.ChildID = shared.ChildID(child)
		r.Kind = notification.Kind(kind)
		r.Status = notification.Status(state)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkDelivered implements notification.Outbox.
func (o *Outbox) MarkDelivered(ctx context.Context, id notification.ReminderID, at time.Time) error {
	tag, err := o.conn.Exec(ctx, `
		UPDATE reminders SET status = 'delivered', delivered_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id.String(), at)
	if err != nil {
		return fmt.Errorf("failed to mark reminder delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("notification", "MarkDelivered", shared.ErrNotFound,
			"no pending reminder with that ID")
	}
	return nil
}
