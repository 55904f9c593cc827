package aggregate

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/metrics"
)

// Options tune the effective set cache.
type Options struct {
	CacheSize int           // 0 disables the cache
	CacheTTL  time.Duration // upper bound of an entry's lifetime
}

type cacheKey struct {
	tenantID string
	userID   uint64
}

func (k cacheKey) String() string {
	return k.tenantID + "/" + strconv.FormatUint(k.userID, 10)
}

// Aggregator serves effective permission sets, caching them per (tenant, user).
//
// Returned sets are shared between callers and must not be modified.
type Aggregator struct {
	db    *gorm.DB
	cache *lru.LRU[cacheKey, *access.EffectivePermissionSet]
	group singleflight.Group
	gen   atomic.Uint64

	// Now returns the evaluation instant, UTC.
	Now func() time.Time
}

// New returns an aggregator reading from db.
func New(db *gorm.DB, opts Options) *Aggregator {
	a := &Aggregator{
		db:  db,
		Now: func() time.Time { return time.Now().UTC() },
	}

	if opts.CacheSize > 0 {
		a.cache = lru.NewLRU[cacheKey, *access.EffectivePermissionSet](opts.CacheSize, nil, opts.CacheTTL)
	}

	return a
}

// Compute evaluates the user at now without touching the cache.
func (a *Aggregator) Compute(ctx context.Context, tenantID string, userID uint64, now time.Time) (*access.EffectivePermissionSet, error) {
	return Compute(ctx, a.db, tenantID, userID, now)
}

// Effective returns the user's set at the current instant, from the cache while
// the cached set is still valid.
func (a *Aggregator) Effective(ctx context.Context, tenantID string, userID uint64) (*access.EffectivePermissionSet, error) {
	now := a.Now()

	if a.cache == nil {
		return a.Compute(ctx, tenantID, userID, now)
	}

	key := cacheKey{tenantID: tenantID, userID: userID}

	if set, ok := a.cache.Get(key); ok && set.StillValidAt(now) {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return set, nil
	}

	metrics.CacheLookups.WithLabelValues("miss").Inc()

	gen := a.gen.Load()

	ch := a.group.DoChan(key.String(), func() (any, error) {
		// joined callers must not inherit the first caller's cancellation
		set, err := a.Compute(context.WithoutCancel(ctx), tenantID, userID, now)
		if err != nil {
			return nil, err
		}

		// an invalidation while computing makes the result stale
		if a.gen.Load() == gen {
			a.cache.Add(key, set)
		}

		return set, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err() //nolint:wrapcheck
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err //nolint:wrapcheck
		}

		set, _ := res.Val.(*access.EffectivePermissionSet)

		return set, nil
	}
}

// Invalidate drops the cached set of the user.
func (a *Aggregator) Invalidate(tenantID string, userID uint64) {
	a.gen.Add(1)

	if a.cache == nil {
		return
	}

	key := cacheKey{tenantID: tenantID, userID: userID}
	a.cache.Remove(key)
	a.group.Forget(key.String())

	log.Trace().Str("tenant", tenantID).Uint64("user", userID).Msg("effective set invalidated")
}

// Purge drops every cached set.
func (a *Aggregator) Purge() {
	a.gen.Add(1)

	if a.cache != nil {
		a.cache.Purge()
	}
}
