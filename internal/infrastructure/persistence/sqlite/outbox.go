package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// Outbox implements notification.Outbox on SQLite.
type Outbox struct {
	store *Store
}

// NewOutbox creates an outbox over store.
func NewOutbox(store *Store) *Outbox {
	return &Outbox{store: store}
}

// Enqueue implements notification.Outbox.
func (o *Outbox) Enqueue(ctx context.Context, r notification.Reminder) error {
	if err := r.Validate(); err != nil {
		return err
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := o.store.db.ExecContext(ctx, `
		INSERT INTO reminders (id, child_id, kind, month, target_date, title, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID.String(),
		r.ChildID.String(),
		string(r.Kind),
		r.Month,
		formatTime(r.TargetDate),
		r.Title,
		r.Message,
		string(r.Status),
		formatTime(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrReminderExists
		}
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	return nil
}

// Pending implements notification.Outbox. Stored timestamps are fixed width
// UTC text, so the comparison runs in SQL.
func (o *Outbox) Pending(ctx context.Context, before time.Time) ([]notification.Reminder, error) {
	rows, err := o.store.db.QueryContext(ctx, `
		SELECT id, child_id, kind, month, target_date, title, message, status, created_at, delivered_at
		FROM reminders
		WHERE status = 'pending' AND target_date <= ?
		ORDER BY target_date, id
	`, formatTime(before))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reminders: %w", err)
	}
	defer rows.Close()

	var out []notification.Reminder
	for rows.Next() {
		var (
			r                       notification.Reminder
			id, child, kind, status string
			target, created         string
			delivered               sql.NullString
		)
		if err := rows.Scan(&id, &child, &kind, &r.Month, &target, &r.Title, &r.Message,
			&status, &created, &delivered); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.ID = notification.ReminderID(id)
		r.ChildID = shared.ChildID(child)
		r.Kind = notification.Kind(kind)
		r.Status = notification.Status(status)
		if r.TargetDate, err = parseTime(target); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if delivered.Valid {
			at, err := parseTime(delivered.String)
			if err != nil {
				return nil, err
			}
			r.DeliveredAt = &at
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkDelivered implements notification.Outbox.
func (o *Outbox) MarkDelivered(ctx context.Context, id notification.ReminderID, at time.Time) error {
	res, err := o.store.db.ExecContext(ctx, `
		UPDATE reminders SET status = 'delivered', delivered_at = ?
		WHERE id = ? AND status = 'pending'
	`, formatTime(at), id.String())
	if err != nil {
		return fmt.Errorf("failed to mark reminder delivered: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return shared.NewDomainError("notification", "MarkDelivered", shared.ErrNotFound,
			"no pending reminder with that ID")
	}
	return nil
}
