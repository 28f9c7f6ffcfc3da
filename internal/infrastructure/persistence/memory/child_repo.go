package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// ChildRepository implements baby.Repository.
type ChildRepository struct {
	mu       sync.RWMutex
	children map[shared.ChildID]*baby.Child
}

// NewChildRepository creates an empty repository.
func NewChildRepository() *ChildRepository {
	return &ChildRepository{children: make(map[shared.ChildID]*baby.Child)}
}

func copyChild(c *baby.Child) *baby.Child {
	cp := *c
	cp.Measurements = append([]growth.Measurement(nil), c.Measurements...)
	return &cp
}

// Get implements baby.Repository.
func (r *ChildRepository) Get(ctx context.Context, id shared.ChildID) (*baby.Child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.children[id]
	if !ok {
		return nil, shared.ErrChildNotFound
	}
	return copyChild(c), nil
}

// Save implements baby.Repository. Stored measurements are kept.
func (r *ChildRepository) Save(ctx context.Context, child *baby.Child) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := copyChild(child)
	if existing, ok := r.children[child.ID]; ok {
		cp.Measurements = existing.Measurements
	} else {
		cp.Measurements = nil
	}
	r.children[child.ID] = cp
	return nil
}

// AddMeasurement implements baby.Repository.
func (r *ChildRepository) AddMeasurement(ctx context.Context, id shared.ChildID, m growth.Measurement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.children[id]
	if !ok {
		return shared.ErrChildNotFound
	}
	for _, existing := range c.Measurements {
		if existing.ID == m.ID {
			return shared.NewDomainError("baby", "AddMeasurement", shared.ErrAlreadyExists, "measurement already recorded")
		}
	}
	c.Measurements = append(c.Measurements, m)
	return nil
}

// ListByOwner implements baby.Repository.
func (r *ChildRepository) ListByOwner(ctx context.Context, owner shared.UserID) ([]*baby.Child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*baby.Child
	for _, c := range r.children {
		if c.OwnerID == owner {
			out = append(out, copyChild(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
