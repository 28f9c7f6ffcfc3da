package engagement

import (
	"context"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// Repository persists engagement state.
type Repository interface {
	// Get returns the state of userID.
	// Returns shared.ErrEngagementNotFound if the user has none yet.
	Get(ctx context.Context, userID shared.UserID) (State, error)

	// Save stores s if the stored version equals s.Version, then bumps the
	// version. Returns shared.ErrConcurrentModification on a version mismatch.
	// The returned state carries the new version.
	Save(ctx context.Context, s State) (State, error)
}
