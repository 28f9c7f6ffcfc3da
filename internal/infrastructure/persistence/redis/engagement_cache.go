package redis

import (
	"context"
	"errors"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/circuitbreaker"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT STATE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// StateCache is the subset of Cache the decorator needs.
type StateCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedEngagementRepository is a read-through, write-through cache in front
// of an engagement.Repository. The wrapped repository stays the source of
// truth: versions are always checked there, and any cache error falls back
// to it.
type CachedEngagementRepository struct {
	inner   engagement.Repository
	cache   StateCache
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	log     *logger.Logger
	ttl     time.Duration
}

// NewCachedEngagementRepository wraps inner. A nil breaker gets the default
// cache breaker; ttl <= 0 uses TTLEngagementState.
func NewCachedEngagementRepository(
	inner engagement.Repository,
	cache StateCache,
	breaker *circuitbreaker.CircuitBreaker,
	log *logger.Logger,
	ttl time.Duration,
) *CachedEngagementRepository {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("engagement_cache"))
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("cache breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
	}
	if ttl <= 0 {
		ttl = TTLEngagementState
	}
	return &CachedEngagementRepository{
		inner:   inner,
		cache:   cache,
		breaker: breaker,
		retrier: retry.New(retry.CachePolicy(), retry.WithRetryIf(isTransient)),
		log:     log,
		ttl:     ttl,
	}
}

func isTransient(err error) bool {
	return !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheSerialization) && !errors.Is(err, context.Canceled)
}

// call runs fn against the cache behind the breaker and retrier. Misses do
// not count as breaker failures.
func (r *CachedEngagementRepository) call(ctx context.Context, fn func(context.Context) error) error {
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		err := r.retrier.Do(ctx, fn)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		return err
	})
	return err
}

// Get implements engagement.Repository.
func (r *CachedEngagementRepository) Get(ctx context.Context, userID shared.UserID) (engagement.State, error) {
	key := EngagementKey(userID.String())

	var cached engagement.State
	hit := false
	err := r.call(ctx, func(ctx context.Context) error {
		if err := r.cache.Get(ctx, key, &cached); err != nil {
			return err
		}
		hit = true
		return nil
	})
	if err != nil {
		r.log.Debug("cache read skipped", logger.UserID(userID.String()), logger.Err(err))
	}
	if hit && cached.UserID == userID {
		if cached.Unlocked == nil {
			cached.Unlocked = make(map[engagement.AchievementID]time.Time)
		}
		return cached, nil
	}

	state, err := r.inner.Get(ctx, userID)
	if err != nil {
		return engagement.State{}, err
	}
	r.store(ctx, state)
	return state, nil
}

// Save implements engagement.Repository.
func (r *CachedEngagementRepository) Save(ctx context.Context, s engagement.State) (engagement.State, error) {
	saved, err := r.inner.Save(ctx, s)
	if err != nil {
		if errors.Is(err, shared.ErrConcurrentModification) {
			r.invalidate(ctx, s.UserID)
		}
		return engagement.State{}, err
	}
	r.store(ctx, saved)
	return saved, nil
}

func (r *CachedEngagementRepository) store(ctx context.Context, s engagement.State) {
	err := r.call(ctx, func(ctx context.Context) error {
		return r.cache.Set(ctx, EngagementKey(s.UserID.String()), s, r.ttl)
	})
	if err != nil {
		r.log.Debug("cache write skipped", logger.UserID(s.UserID.String()), logger.Err(err))
		// A stale snapshot must not survive a failed refresh.
		r.invalidate(ctx, s.UserID)
	}
}

func (r *CachedEngagementRepository) invalidate(ctx context.Context, userID shared.UserID) {
	err := r.call(ctx, func(ctx context.Context) error {
		return r.cache.Delete(ctx, EngagementKey(userID.String()))
	})
	if err != nil {
		r.log.Warn("cache invalidation failed", logger.UserID(userID.String()), logger.Err(err))
	}
}
