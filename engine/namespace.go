package engine

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/spatio/core"
	"github.com/hupe1980/spatio/rtree"
)

// namespaceState is the Hot State for a single namespace: a current-
// location map plus a spatial index over the same objects, covered by
// one rwlock, per spec §5 ("independent locks per namespace; one
// namespace's writers never block another's readers").
type namespaceState struct {
	mu   sync.RWMutex
	objs map[core.ObjectId]core.CurrentLocation
	tree *rtree.Tree

	// Tree removal is deferred: Delete drops the object from objs
	// immediately but leaves the stale tree entry in place until the next
	// compact, so a delete burst costs one map write instead of a
	// tree.Remove (with its CondenseTree rebalance) per object. Queries
	// filter stale entries by checking objs, so correctness never depends
	// on compact running. pending tracks the last known point for each
	// tombstoned object so compact can find and remove its tree entry;
	// tombstones gives Stats an O(1) pending-removal count instead of
	// len(pending) racing against concurrent compaction.
	pending     map[core.ObjectId]core.Point
	tombstones  *roaring.Bitmap
	ordinals    map[core.ObjectId]uint32
	nextOrdinal uint32
}

func newNamespaceState(maxEntries int) *namespaceState {
	return &namespaceState{
		objs:       make(map[core.ObjectId]core.CurrentLocation),
		tree:       rtree.New(maxEntries),
		pending:    make(map[core.ObjectId]core.Point),
		tombstones: roaring.New(),
		ordinals:   make(map[core.ObjectId]uint32),
	}
}

// ordinalFor returns the stable uint32 ordinal for id, assigning one on
// first use. Roaring bitmaps index uint32s, not arbitrary strings.
func (ns *namespaceState) ordinalFor(id core.ObjectId) uint32 {
	if o, ok := ns.ordinals[id]; ok {
		return o
	}
	o := ns.nextOrdinal
	ns.nextOrdinal++
	ns.ordinals[id] = o
	return o
}

// compact sweeps every tombstoned object out of the tree. Callers must
// hold ns.mu for writing.
func (ns *namespaceState) compact() {
	for id, pt := range ns.pending {
		ns.tree.Remove(string(id), pt)
		if o, ok := ns.ordinals[id]; ok {
			ns.tombstones.Remove(o)
			delete(ns.ordinals, id)
		}
	}
	ns.pending = make(map[core.ObjectId]core.Point)
}

// live reports whether id currently has a location (i.e. is not a stale
// tree entry awaiting compaction). Callers must hold ns.mu.
func (ns *namespaceState) live(id core.ObjectId) (core.CurrentLocation, bool) {
	loc, ok := ns.objs[id]
	return loc, ok
}
