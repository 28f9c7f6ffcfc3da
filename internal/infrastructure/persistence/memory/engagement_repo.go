// Package memory provides in-process repositories for tests and the CLI's
// ephemeral mode. All repositories are safe for concurrent use.
package memory

import (
	"context"
	"sync"

	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// EngagementRepository implements engagement.Repository.
type EngagementRepository struct {
	mu     sync.RWMutex
	states map[shared.UserID]engagement.State
}

// NewEngagementRepository creates an empty repository.
func NewEngagementRepository() *EngagementRepository {
	return &EngagementRepository{states: make(map[shared.UserID]engagement.State)}
}

// Get implements engagement.Repository.
func (r *EngagementRepository) Get(ctx context.Context, userID shared.UserID) (engagement.State, error) {
	if err := ctx.Err(); err != nil {
		return engagement.State{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[userID]
	if !ok {
		return engagement.State{}, shared.ErrEngagementNotFound
	}
	return s.Clone(), nil
}

// Save implements engagement.Repository.
func (r *EngagementRepository) Save(ctx context.Context, s engagement.State) (engagement.State, error) {
	if err := ctx.Err(); err != nil {
		return engagement.State{}, err
	}
	if err := s.Validate(); err != nil {
		return engagement.State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.states[s.UserID]
	current := 0
	if ok {
		current = stored.Version
	}
	if s.Version != current {
		return engagement.State{}, shared.NewDomainError("engagement", "Save", shared.ErrConcurrentModification,
			"state was modified concurrently")
	}
	saved := s.Clone()
	saved.Version = current + 1
	r.states[s.UserID] = saved
	return saved.Clone(), nil
}

// Len returns the number of stored states.
func (r *EngagementRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
