package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// ChildRepository implements baby.Repository on SQLite. The date of birth is
// stored as a calendar day and loads back at UTC midnight.
type ChildRepository struct {
	store *Store
}

// NewChildRepository creates a repository over store.
func NewChildRepository(store *Store) *ChildRepository {
	return &ChildRepository{store: store}
}

const childColumns = `id, owner_id, name, date_of_birth, gender, created_at, updated_at`

// Get implements baby.Repository.
func (r *ChildRepository) Get(ctx context.Context, id shared.ChildID) (*baby.Child, error) {
	c, err := scanChild(r.store.db.QueryRowContext(ctx,
		`SELECT `+childColumns+` FROM children WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrChildNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if c.Measurements, err = r.measurements(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// Save implements baby.Repository. Updating a child owned by another account
// is rejected.
func (r *ChildRepository) Save(ctx context.Context, c *baby.Child) error {
	if err := c.Validate(time.Time{}); err != nil {
		return err
	}
	res, err := r.store.db.ExecContext(ctx, `
		INSERT INTO children (`+childColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			date_of_birth = excluded.date_of_birth,
			gender = excluded.gender,
			updated_at = excluded.updated_at
		WHERE children.owner_id = excluded.owner_id
	`,
		c.ID.String(),
		c.OwnerID.String(),
		c.Name,
		shared.DateOf(c.DateOfBirth).String(),
		string(c.Gender),
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save child: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return shared.WrapError("baby", "Save", shared.ErrAlreadyExists,
			"child ID belongs to another account", shared.ErrInvalidChild)
	}
	return nil
}

// AddMeasurement implements baby.Repository.
func (r *ChildRepository) AddMeasurement(ctx context.Context, id shared.ChildID, m growth.Measurement) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO measurements (id, child_id, measured_at, weight, height, head_circumference)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, id.String(), formatTime(m.Date), nullFloat(m.Weight), nullFloat(m.Height), nullFloat(m.HeadCircumference))
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return shared.ErrChildNotFound
		case isUniqueViolation(err):
			return shared.NewDomainError("baby", "AddMeasurement", shared.ErrAlreadyExists,
				fmt.Sprintf("measurement %s already recorded", m.ID))
		}
		return fmt.Errorf("failed to add measurement: %w", err)
	}
	return nil
}

// ListByOwner implements baby.Repository.
func (r *ChildRepository) ListByOwner(ctx context.Context, owner shared.UserID) ([]*baby.Child, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT `+childColumns+` FROM children WHERE owner_id = ? ORDER BY created_at, id`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	var children []*baby.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range children {
		if c.Measurements, err = r.measurements(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	return children, nil
}

func (r *ChildRepository) measurements(ctx context.Context, id shared.ChildID) ([]growth.Measurement, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, measured_at, weight, height, head_circumference
		FROM measurements WHERE child_id = ? ORDER BY seq
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get measurements: %w", err)
	}
	defer rows.Close()

	var out []growth.Measurement
	for rows.Next() {
		var (
			m          growth.Measurement
			measuredAt string
			w, h, hc   sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &measuredAt, &w, &h, &hc); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		if m.Date, err = parseTime(measuredAt); err != nil {
			return nil, err
		}
		m.Weight, m.Height, m.HeadCircumference = floatPtr(w), floatPtr(h), floatPtr(hc)
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChild(row rowScanner) (*baby.Child, error) {
	var (
		c                      baby.Child
		id, owner, dob, gender string
		createdAt, updatedAt   string
	)
	if err := row.Scan(&id, &owner, &c.Name, &dob, &gender, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	birth, err := shared.ParseDate(dob)
	if err != nil {
		return nil, err
	}
	c.ID = shared.ChildID(id)
	c.OwnerID = shared.UserID(owner)
	c.DateOfBirth = birth.Time()
	c.Gender = growth.Gender(gender)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
