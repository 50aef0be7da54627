// Package cache memoizes resolved authorization views.
//
// Entries have no TTL by default; they are cleared only by explicit invalidation driven by the
// mutation that made them stale. Every invalidation advances a generation counter first, so a
// value computed before the invalidation can never be stored after it. Puts hold a shared lock
// across the generation check and the backend write, invalidations hold it exclusively.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/accessd/accessd/internal/errs"
)

const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultError  = "error"
	resultBypass = "bypass"

	scopeUser = "user"
	scopeAll  = "all"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "accessd_authz_cache_requests_total",
		Help: "Authorization cache lookups by result.",
	}, []string{"result"})

	invalidations = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "accessd_authz_cache_invalidations_total",
		Help: "Authorization cache invalidations by scope and outcome.",
	}, []string{"scope", "outcome"})
)

// Ticket is issued by Get and must accompany the Put of a value computed after that Get.
type Ticket struct {
	gen   uint64
	stamp string
	valid bool
}

// Generation returns the generation the ticket was issued at.
func (t Ticket) Generation() uint64 {
	return t.gen
}

// Cache wraps a Backend with generation tracking and a bypass switch.
type Cache struct {
	backend Backend
	gen     atomic.Uint64
	bypass  atomic.Bool
	// mu orders puts against invalidations; it is never held across store queries.
	mu sync.RWMutex
}

// New returns a cache over backend.
func New(backend Backend) *Cache {
	return &Cache{backend: backend}
}

// Generation returns the current generation.
func (c *Cache) Generation() uint64 {
	return c.gen.Load()
}

// Bypassed reports whether a failed invalidation disabled the cache until the next Rebuild.
func (c *Cache) Bypassed() bool {
	return c.bypass.Load()
}

// Get looks key up. On a miss the returned ticket allows a later Put.
// Backend failures are returned as errs.Cache; callers recompute from the store.
// The ticket always carries the generation observed before the lookup.
func (c *Cache) Get(ctx context.Context, key Key) (Value, Ticket, bool, error) {
	const op = "cache.Get"

	t := Ticket{gen: c.gen.Load()}

	if c.bypass.Load() {
		requests.WithLabelValues(resultBypass).Inc()

		return Value{}, t, false, nil
	}

	v, stamp, found, err := c.backend.Get(ctx, key)
	if err != nil {
		requests.WithLabelValues(resultError).Inc()

		return Value{}, t, false, errs.E(errs.Cache, op, err)
	}

	if found {
		requests.WithLabelValues(resultHit).Inc()

		return v, t, true, nil
	}

	requests.WithLabelValues(resultMiss).Inc()

	t.stamp, t.valid = stamp, true

	return Value{}, t, false, nil
}

// Put stores v under key unless an invalidation happened since t was issued.
// It reports whether the value was handed to the backend.
func (c *Cache) Put(ctx context.Context, key Key, v Value, t Ticket) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !t.valid || c.bypass.Load() || t.gen != c.gen.Load() {
		return false, nil
	}

	if err := c.backend.Put(ctx, key, v, t.stamp); err != nil {
		return false, errs.E(errs.Cache, "cache.Put", err)
	}

	return true, nil
}

func (c *Cache) invalidated(scope string, err error) error {
	if err != nil {
		c.bypass.Store(true)
		invalidations.WithLabelValues(scope, resultError).Inc()
		log.Error().Err(err).Str("scope", scope).Msg("authorization cache invalidation failed, bypassing cache until rebuild")

		return errs.E(errs.Cache, "cache.Invalidate", err)
	}

	invalidations.WithLabelValues(scope, "ok").Inc()

	return nil
}

// InvalidateUser drops the entry of one user.
func (c *Cache) InvalidateUser(ctx context.Context, userID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen.Add(1)

	return c.invalidated(scopeUser, c.backend.DeleteUser(ctx, userID))
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen.Add(1)

	return c.invalidated(scopeAll, c.backend.Flush(ctx))
}

// Rebuild flushes the backend and leaves bypass mode when the flush succeeds.
func (c *Cache) Rebuild(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen.Add(1)

	if err := c.backend.Flush(ctx); err != nil {
		return c.invalidated(scopeAll, err)
	}

	c.bypass.Store(false)
	invalidations.WithLabelValues(scopeAll, "ok").Inc()

	return nil
}

// Reset returns the cache to an empty, enabled state. Used by test harnesses between cases.
func (c *Cache) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen.Add(1)
	_ = c.backend.Flush(ctx)
	c.bypass.Store(false)
}
