package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHILD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChildRepository implements baby.Repository for PostgreSQL. Dates of birth
// are stored as DATE and load back as UTC midnight.
type ChildRepository struct {
	conn *Connection
}

// NewChildRepository creates a new ChildRepository.
func NewChildRepository(conn *Connection) *ChildRepository {
	return &ChildRepository{conn: conn}
}

const childColumns = `id, owner_id, name, date_of_birth, gender, created_at, updated_at`

// Get implements baby.Repository.
func (r *ChildRepository) Get(ctx context.Context, id shared.ChildID) (*baby.Child, error) {
	if !id.IsValid() {
		return nil, shared.ErrChildNotFound
	}
	c, err := scanChild(r.conn.QueryRow(ctx, `SELECT `+childColumns+` FROM children WHERE id = $1`, id.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrChildNotFound
		}
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if c.Measurements, err = r.measurements(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// Save implements baby.Repository.
func (r *ChildRepository) Save(ctx context.Context, c *baby.Child) error {
	if err := c.Validate(time.Time{}); err != nil {
		return err
	}
	query := `
		INSERT INTO children (` + childColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			updated_at = EXCLUDED.updated_at
		WHERE children.owner_id = EXCLUDED.owner_id
	`
	tag, err := r.conn.Exec(ctx, query,
		c.ID.String(),
		c.OwnerID.String(),
		c.Name,
		dateOnly(c.DateOfBirth),
		string(c.Gender),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save child: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.WrapError("baby", "Save", shared.ErrAlreadyExists,
			"child ID belongs to another account", shared.ErrInvalidChild)
	}
	return nil
}

// AddMeasurement implements baby.Repository.
func (r *ChildRepository) AddMeasurement(ctx context.Context, id shared.ChildID, m growth.Measurement) error {
	if !id.IsValid() {
		return shared.ErrChildNotFound
	}
	query := `
		INSERT INTO measurements (id, child_id, measured_at, weight, height, head_circumference)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.conn.Exec(ctx, query, m.ID, id.String(), m.Date, m.Weight, m.Height, m.HeadCircumference)
	if err != nil {
		switch {
		case IsForeignKeyViolation(err):
			return shared.ErrChildNotFound
		case IsUniqueViolation(err):
			return shared.NewDomainError("baby", "AddMeasurement", shared.ErrAlreadyExists,
				fmt.Sprintf("measurement %s already recorded", m.ID))
		}
		return fmt.Errorf("failed to add measurement: %w", err)
	}
	return nil
}

// ListByOwner implements baby.Repository.
func (r *ChildRepository) ListByOwner(ctx context.Context, owner shared.UserID) ([]*baby.Child, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT `+childColumns+` FROM children WHERE owner_id = $1 ORDER BY created_at, id`, owner.String())
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
	rows, err := r.conn.Query(ctx, `
		SELECT id, measured_at, weight, height, head_circumference
		FROM measurements
		WHERE child_id = $1
		ORDER BY seq
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get measurements: %w", err)
	}
	defer rows.Close()

	var out []growth.Measurement
	for rows.Next() {
		var m growth.Measurement
		if err := rows.Scan(&m.ID, &m.Date, &m.Weight, &m.Height, &m.HeadCircumference); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChild(row rowScanner) (*baby.Child, error) {
	var (
		c      baby.Child
		id     string
		owner  string
		gender string
	)
	if err := row.Scan(&id, &owner, &c.Name, &c.DateOfBirth, &gender, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = shared.ChildID(id)
	c.OwnerID = shared.UserID(owner)
	c.Gender = growth.Gender(gender)
	c.DateOfBirth = dateOnly(c.DateOfBirth)
	return &c, nil
}

// dateOnly keeps the calendar day of t at UTC midnight.
func dateOnly(t time.Time) time.Time {
	return shared.DateOf(t).Time()
}
