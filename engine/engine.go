package engine

import (
	"sync"
	"time"

	"github.com/hupe1980/spatio/core"
	"github.com/hupe1980/spatio/rtree"
)

// Engine is Spatio's Hot State: an independently-locked map of
// namespaces, each holding a current-location map and an R*-tree.
type Engine struct {
	registryMu sync.RWMutex
	namespaces map[core.Namespace]*namespaceState
	maxEntries int
}

// New creates an empty engine. maxEntries configures the spatial index's
// fan-out per namespace; <= 0 uses rtree.DefaultMaxEntries.
func New(maxEntries int) *Engine {
	return &Engine{
		namespaces: make(map[core.Namespace]*namespaceState),
		maxEntries: maxEntries,
	}
}

// namespace returns (creating if necessary) the state for ns. The fast
// path takes only the registry read lock; creation briefly upgrades to a
// write lock.
func (e *Engine) namespace(ns core.Namespace) *namespaceState {
	e.registryMu.RLock()
	s, ok := e.namespaces[ns]
	e.registryMu.RUnlock()
	if ok {
		return s
	}

	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	if s, ok = e.namespaces[ns]; ok {
		return s
	}
	s = newNamespaceState(e.maxEntries)
	e.namespaces[ns] = s
	return s
}

// Namespaces returns the set of namespaces known to the engine.
func (e *Engine) Namespaces() []core.Namespace {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()
	out := make([]core.Namespace, 0, len(e.namespaces))
	for ns := range e.namespaces {
		out = append(out, ns)
	}
	return out
}

// AllLocations returns every live current location in ns, for snapshot
// and compaction use (distinct from the query operations in query.go,
// which return core.Result and drop fields a query caller never needs
// like CreatedAt/TTL).
func (e *Engine) AllLocations(ns core.Namespace) []core.CurrentLocation {
	s := e.namespace(ns)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.CurrentLocation, 0, len(s.objs))
	for _, loc := range s.objs {
		out = append(out, loc)
	}
	return out
}

// Upsert inserts or replaces the current location of id, per spec §4.1
// upsert: "inserting if absent, replacing the point/metadata/TTL and
// moving the spatial index entry if present."
func (e *Engine) Upsert(ns core.Namespace, id core.ObjectId, p core.Point, metadata []byte, ttl time.Duration, now time.Time) error {
	if !core.ValidNamespace(ns) || !core.ValidObjectId(id) {
		return ErrInvalidArgument
	}
	if !core.ValidPoint(p) {
		return ErrInvalidArgument
	}

	s := e.namespace(ns)
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.objs[id]; ok {
		if old.Point != p {
			// Old tree entry may still be live (not yet compacted) or
			// already pending; either way remove it before inserting at
			// the new point so the index never carries two live entries
			// for the same object.
			if pendingPt, pending := s.pending[id]; pending {
				s.tree.Remove(string(id), pendingPt)
				delete(s.pending, id)
			} else {
				s.tree.Remove(string(id), old.Point)
			}
			s.tree.Insert(string(id), p)
		}
		created := old.CreatedAt
		s.objs[id] = core.CurrentLocation{
			Namespace: ns, ObjectId: id, Point: p, Metadata: metadata,
			CreatedAt: created, UpdatedAt: now, TTL: ttl,
		}
		return nil
	}

	// id is absent from objs, but a prior Delete may have left a stale,
	// not-yet-compacted tree entry and tombstone for it (Delete clears
	// objs immediately and defers the tree removal). Clear that first, or
	// the tree ends up with two live-looking entries for the same id.
	if pendingPt, pending := s.pending[id]; pending {
		s.tree.Remove(string(id), pendingPt)
		if o, ok := s.ordinals[id]; ok {
			s.tombstones.Remove(o)
			delete(s.ordinals, id)
		}
		delete(s.pending, id)
	}

	s.tree.Insert(string(id), p)
	s.objs[id] = core.CurrentLocation{
		Namespace: ns, ObjectId: id, Point: p, Metadata: metadata,
		CreatedAt: now, UpdatedAt: now, TTL: ttl,
	}
	return nil
}

// Get returns the current location of id, per spec §4.1 get.
func (e *Engine) Get(ns core.Namespace, id core.ObjectId) (core.CurrentLocation, error) {
	s := e.namespace(ns)
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.live(id)
	if !ok {
		return core.CurrentLocation{}, ErrNotFound
	}
	return loc, nil
}

// Delete removes id's current location, per spec §4.1 delete. The tree
// entry is tombstoned rather than removed synchronously; see
// namespaceState.compact.
func (e *Engine) Delete(ns core.Namespace, id core.ObjectId) error {
	if !core.ValidNamespace(ns) || !core.ValidObjectId(id) {
		return ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.objs[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.objs, id)
	s.pending[id] = loc.Point
	s.tombstones.Add(s.ordinalFor(id))
	return nil
}

// Compact sweeps tombstoned tree entries out of ns. It is safe, but not
// required, to call periodically; queries are always correct without it.
func (e *Engine) Compact(ns core.Namespace) {
	s := e.namespace(ns)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compact()
}

// Rebuild replaces ns's entire hot state with entries, bulk-loading the
// tree rather than inserting one at a time. Used by the recovery package
// after replaying the cold-state log, per spec §4.4.
func (e *Engine) Rebuild(ns core.Namespace, locations map[core.ObjectId]core.CurrentLocation) {
	s := e.namespace(ns)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objs = locations
	s.pending = make(map[core.ObjectId]core.Point)
	s.tombstones.Clear()
	s.ordinals = make(map[core.ObjectId]uint32)
	s.nextOrdinal = 0

	entries := make([]rtree.Entry, 0, len(locations))
	for id, loc := range locations {
		entries = append(entries, rtree.Entry{ID: string(id), Point: loc.Point})
	}
	s.tree.BulkLoad(entries)
}
