package rtree

import (
	"math"
	"sort"

	"github.com/hupe1980/spatio/core"
)

// reinsert implements R*-tree forced reinsertion: remove the p entries of
// n farthest from n's center, shrink n's MBR, then reinsert those entries
// from the top of the tree (so they may land in a different, better-fit
// node), per spec §4.3 ("forced reinsertion on overflow").
func (t *Tree) reinsert(n *node, overflowed map[int]bool) {
	center := centerOf(mbrOfEntries(n.entries))

	sort.Slice(n.entries, func(i, j int) bool {
		return distToCenter(n.entries[i].rect, center) > distToCenter(n.entries[j].rect, center)
	})

	p := int(math.Ceil(float64(len(n.entries)) * reinsertRatio))
	if p < 1 {
		p = 1
	}
	if p >= len(n.entries) {
		p = len(n.entries) - 1
	}

	removed := n.entries[:p]
	kept := n.entries[p:]
	n.entries = kept
	t.fixParentIndices(n)
	t.adjustAncestorRects(n)

	level := n.level
	// removed is sorted farthest-first; walking it backwards reinserts
	// the closest of the removed entries first ("close reinsert"), the
	// order the R*-tree paper recommends.
	for i := len(removed) - 1; i >= 0; i-- {
		e := removed[i]
		t.insertEntry(e, level, overflowed)
	}
}

func centerOf(r Rect) core.Point {
	return core.Point{
		X: (r.MinX + r.MaxX) / 2,
		Y: (r.MinY + r.MaxY) / 2,
		Z: (r.MinZ + r.MaxZ) / 2,
	}
}

func distToCenter(r Rect, center core.Point) float64 {
	c := centerOf(r)
	dx := c.X - center.X
	dy := c.Y - center.Y
	dz := c.Z - center.Z
	return dx*dx + dy*dy + dz*dz
}

// split performs an R*-tree node split: choose the axis minimizing the
// sum of margins over all valid distributions (chooseSplitAxis), then
// choose the distribution along that axis minimizing overlap, tie-broken
// by area (chooseSplitIndex). The overflowing node keeps one group; a new
// sibling node receives the other. If n is the root, a new root is
// created above both, growing the tree by one level.
func (t *Tree) split(n *node, overflowed map[int]bool) {
	axisEntries := chooseSplitAxis(n.entries, t.minEntries)
	groupA, groupB := chooseSplitIndex(axisEntries, t.minEntries)

	sibling := &node{leaf: n.leaf, level: n.level}
	n.entries = groupA
	sibling.entries = groupB
	t.fixParentIndices(n)
	t.fixParentIndices(sibling)

	if n.parent == nil {
		newRoot := &node{leaf: false, level: n.level + 1}
		n.parent, n.parentAt = newRoot, 0
		sibling.parent, sibling.parentAt = newRoot, 1
		newRoot.entries = []*nodeEntry{
			{rect: mbrOfEntries(n.entries), child: n},
			{rect: mbrOfEntries(sibling.entries), child: sibling},
		}
		t.root = newRoot
		return
	}

	parent := n.parent
	parent.entries[n.parentAt].rect = mbrOfEntries(n.entries)
	siblingEntry := &nodeEntry{rect: mbrOfEntries(sibling.entries), child: sibling}
	parent.entries = append(parent.entries, siblingEntry)
	sibling.parent, sibling.parentAt = parent, len(parent.entries)-1
	t.adjustAncestorRects(n)

	if len(parent.entries) > t.maxEntries {
		parentLevel := parent.level
		if !overflowed[parentLevel] && parent != t.root {
			overflowed[parentLevel] = true
			t.reinsert(parent, overflowed)
			return
		}
		overflowed[parentLevel] = true
		t.split(parent, overflowed)
	}
}

// chooseSplitAxis returns entries sorted along whichever of X, Y, Z
// minimizes the total margin (perimeter-like measure) summed over every
// valid split distribution, per the R*-tree split algorithm.
func chooseSplitAxis(entries []*nodeEntry, minEntries int) []*nodeEntry {
	type candidate struct {
		sorted []*nodeEntry
		margin float64
	}
	axes := []func(a, b *nodeEntry) bool{
		func(a, b *nodeEntry) bool { return a.rect.MinX < b.rect.MinX },
		func(a, b *nodeEntry) bool { return a.rect.MinY < b.rect.MinY },
		func(a, b *nodeEntry) bool { return a.rect.MinZ < b.rect.MinZ },
	}

	var best candidate
	best.margin = math.Inf(1)

	for _, less := range axes {
		sorted := make([]*nodeEntry, len(entries))
		copy(sorted, entries)
		sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

		margin := marginSumForDistributions(sorted, minEntries)
		if margin < best.margin {
			best = candidate{sorted: sorted, margin: margin}
		}
	}
	return best.sorted
}

func marginSumForDistributions(sorted []*nodeEntry, minEntries int) float64 {
	n := len(sorted)
	var sum float64
	for k := minEntries; k <= n-minEntries; k++ {
		groupA := sorted[:k]
		groupB := sorted[k:]
		sum += mbrOfEntries(groupA).margin() + mbrOfEntries(groupB).margin()
	}
	return sum
}

// chooseSplitIndex picks, among the valid distributions of the
// axis-sorted entries, the one minimizing overlap between the two
// resulting groups (tie-broken by minimizing total area).
func chooseSplitIndex(sorted []*nodeEntry, minEntries int) (groupA, groupB []*nodeEntry) {
	n := len(sorted)
	bestOverlap := math.Inf(1)
	bestArea := math.Inf(1)
	bestK := minEntries

	for k := minEntries; k <= n-minEntries; k++ {
		a := mbrOfEntries(sorted[:k])
		b := mbrOfEntries(sorted[k:])
		overlap := overlapArea(a, b)
		area := a.area() + b.area()
		if overlap < bestOverlap || (overlap == bestOverlap && area < bestArea) {
			bestOverlap = overlap
			bestArea = area
			bestK = k
		}
	}

	return sorted[:bestK], sorted[bestK:]
}
