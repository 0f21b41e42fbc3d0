package engine

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hupe1980/spatio/core"
)

// Cleaner runs TTL-based expiry (cleanup_expired / count_expired, per
// spec §4.1 and §9 "TTL without background thread": expiry is evaluated
// lazily by readers and swept explicitly by a caller-driven cleanup, not
// a goroutine the engine spawns itself).
type Cleaner struct {
	e       *Engine
	group   singleflight.Group
	limiter *rate.Limiter
}

// NewCleaner wraps e. If limiter is nil, Cleanup never throttles.
func NewCleaner(e *Engine, limiter *rate.Limiter) *Cleaner {
	return &Cleaner{e: e, limiter: limiter}
}

// CountExpired reports how many live entries in ns are expired as of
// now, without removing them.
func (e *Engine) CountExpired(ns core.Namespace, now time.Time) int {
	s := e.namespace(ns)
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, loc := range s.objs {
		if loc.Expired(now) {
			n++
		}
	}
	return n
}

// CleanupExpired removes every expired entry from ns and returns how
// many were removed. Concurrent callers for the same namespace collapse
// onto a single sweep via singleflight, so a burst of callers triggered
// by the same tick don't all pay for a redundant full scan.
func (c *Cleaner) CleanupExpired(ctx context.Context, ns core.Namespace, now time.Time) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	v, err, _ := c.group.Do(string(ns), func() (interface{}, error) {
		return c.e.sweepExpired(ns, now), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (e *Engine) sweepExpired(ns core.Namespace, now time.Time) int {
	s := e.namespace(ns)
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []core.ObjectId
	for id, loc := range s.objs {
		if loc.Expired(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		loc := s.objs[id]
		delete(s.objs, id)
		s.pending[id] = loc.Point
		s.tombstones.Add(s.ordinalFor(id))
	}
	return len(expired)
}
