package baby

import (
	"context"

	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// Repository persists child profiles and their measurement history.
type Repository interface {
	// Get returns the child with its measurements.
	// Returns shared.ErrChildNotFound if it does not exist.
	Get(ctx context.Context, id shared.ChildID) (*Child, error)

	// Save creates or updates the profile fields. Measurements are not touched.
	Save(ctx context.Context, child *Child) error

	// AddMeasurement appends one entry to the child's history.
	// Returns shared.ErrChildNotFound if the child does not exist.
	AddMeasurement(ctx context.Context, id shared.ChildID, m growth.Measurement) error

	// ListByOwner returns every child owned by the given account.
	ListByOwner(ctx context.Context, owner shared.UserID) ([]*Child, error)
}
