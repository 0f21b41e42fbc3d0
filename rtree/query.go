package rtree

import (
	"container/heap"
	"iter"

	"github.com/hupe1980/spatio/core"
	"github.com/hupe1980/spatio/distance"
)

// QueryEnvelope returns every entry whose point lies within box
// (inclusive), descending the tree with AABB pruning, per spec §4.3
// query_envelope.
func (t *Tree) QueryEnvelope(box Rect) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		t.queryEnvelope(t.root, box, yield)
	}
}

func (t *Tree) queryEnvelope(n *node, box Rect, yield func(Entry) bool) bool {
	if n.leaf {
		for _, e := range n.entries {
			if box.containsPoint(e.point) {
				if !yield(Entry{ID: e.id, Point: e.point}) {
					return false
				}
			}
		}
		return true
	}
	for _, e := range n.entries {
		if !e.rect.intersects(box) {
			continue
		}
		if !t.queryEnvelope(e.child, box, yield) {
			return false
		}
	}
	return true
}

// heapItem is a best-first search frontier entry: either an unexpanded
// node or a concrete leaf candidate, ordered by MINDIST to the query
// point.
type heapItem struct {
	mindist float64
	node    *node
	entry   *nodeEntry // non-nil only for leaf candidates
}

type frontier []heapItem

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].mindist < f[j].mindist }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(heapItem)) }
func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// mindist returns an admissible lower bound on the real (haversine +
// altitude) distance from q to any point contained in r. Because
// Haversine distance increases monotonically with both |dLat| and |dLon|
// away from q independently, clamping each axis toward q before computing
// the real metric yields a valid — and usually tight — lower bound. This
// is what makes best-first traversal over a lon/lat-indexed, non-isotropic
// R*-tree still produce true ascending order, per spec §9.
func mindist(q core.Point, r Rect) float64 {
	clamp := func(v, lo, hi float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	c := core.Point{
		X: clamp(q.X, r.MinX, r.MaxX),
		Y: clamp(q.Y, r.MinY, r.MaxY),
		Z: clamp(q.Z, r.MinZ, r.MaxZ),
	}
	return distance.Combined3D(q, c)
}

// NearestIter returns entries in ascending distance from point, via
// best-first search using envelope MINDIST, per spec §4.3 nearest_iter.
func (t *Tree) NearestIter(point core.Point) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if t.size == 0 {
			return
		}
		pq := &frontier{{mindist: 0, node: t.root}}
		heap.Init(pq)

		for pq.Len() > 0 {
			item := heap.Pop(pq).(heapItem)

			if item.entry != nil {
				if !yield(Entry{ID: item.entry.id, Point: item.entry.point}) {
					return
				}
				continue
			}

			n := item.node
			if n.leaf {
				for _, e := range n.entries {
					d := distance.Combined3D(point, e.point)
					heap.Push(pq, heapItem{mindist: d, entry: e})
				}
				continue
			}
			for _, e := range n.entries {
				heap.Push(pq, heapItem{mindist: mindist(point, e.rect), node: e.child})
			}
		}
	}
}
