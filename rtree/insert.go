package rtree

import (
	"math"

	"github.com/hupe1980/spatio/core"
)

// Insert adds a point under id. Two entries may share identical
// coordinates; each carries its own id and can be removed individually,
// per spec §4.3.
func (t *Tree) Insert(id string, p core.Point) {
	e := &nodeEntry{rect: RectOfPoint(p), id: id, point: p}
	t.insertEntry(e, 0, map[int]bool{})
	t.size++
}

// insertEntry inserts e at the given level (0 = leaf level), performing
// forced reinsertion on the first overflow seen at each level during this
// Insert call, and a node split thereafter, per the R*-tree algorithm.
func (t *Tree) insertEntry(e *nodeEntry, level int, overflowed map[int]bool) {
	target := t.chooseSubtree(t.root, e.rect, level)
	target.entries = append(target.entries, e)
	if e.child != nil {
		e.child.parent = target
		e.child.parentAt = len(target.entries) - 1
	}
	t.adjustAncestorRects(target)
	t.fixParentIndices(target)

	n := target
	if len(n.entries) <= t.maxEntries {
		return
	}
	nodeLevel := n.level
	if !overflowed[nodeLevel] && n != t.root {
		overflowed[nodeLevel] = true
		t.reinsert(n, overflowed)
		return
	}
	overflowed[nodeLevel] = true
	t.split(n, overflowed)
}

// chooseSubtree descends from n to find the best node at targetLevel to
// receive a new entry with rectangle er, per the R*-tree ChooseSubtree
// algorithm: minimize overlap enlargement at the level directly above
// leaves, and area enlargement (tie-broken by area) elsewhere.
func (t *Tree) chooseSubtree(n *node, er Rect, targetLevel int) *node {
	for n.level != targetLevel {
		if len(n.entries) == 0 {
			return n
		}
		childrenAreLeaves := n.level == targetLevel+1
		var best *nodeEntry
		if childrenAreLeaves {
			best = chooseByOverlapEnlargement(n.entries, er)
		} else {
			best = chooseByAreaEnlargement(n.entries, er)
		}
		n = best.child
	}
	return n
}

func chooseByAreaEnlargement(entries []*nodeEntry, er Rect) *nodeEntry {
	var best *nodeEntry
	bestEnlargement := math.Inf(1)
	bestArea := math.Inf(1)
	for _, e := range entries {
		enlarged := e.rect.union(er)
		enlargement := enlarged.area() - e.rect.area()
		if enlargement < bestEnlargement ||
			(enlargement == bestEnlargement && e.rect.area() < bestArea) {
			best = e
			bestEnlargement = enlargement
			bestArea = e.rect.area()
		}
	}
	return best
}

func chooseByOverlapEnlargement(entries []*nodeEntry, er Rect) *nodeEntry {
	var best *nodeEntry
	bestOverlapEnlargement := math.Inf(1)
	bestAreaEnlargement := math.Inf(1)
	bestArea := math.Inf(1)
	for _, e := range entries {
		enlarged := e.rect.union(er)
		before := overlapSum(entries, e, e.rect)
		after := overlapSum(entries, e, enlarged)
		overlapEnlargement := after - before
		areaEnlargement := enlarged.area() - e.rect.area()
		switch {
		case overlapEnlargement < bestOverlapEnlargement,
			overlapEnlargement == bestOverlapEnlargement && areaEnlargement < bestAreaEnlargement,
			overlapEnlargement == bestOverlapEnlargement && areaEnlargement == bestAreaEnlargement && e.rect.area() < bestArea:
			best = e
			bestOverlapEnlargement = overlapEnlargement
			bestAreaEnlargement = areaEnlargement
			bestArea = e.rect.area()
		}
	}
	return best
}

// overlapSum sums the pairwise overlap area between candidate (using rect
// in place of its stored rectangle) and every other sibling entry.
func overlapSum(entries []*nodeEntry, candidate *nodeEntry, rect Rect) float64 {
	var sum float64
	for _, o := range entries {
		if o == candidate {
			continue
		}
		sum += overlapArea(rect, o.rect)
	}
	return sum
}

func overlapArea(a, b Rect) float64 {
	dx := math.Max(0, math.Min(a.MaxX, b.MaxX)-math.Max(a.MinX, b.MinX))
	dy := math.Max(0, math.Min(a.MaxY, b.MaxY)-math.Max(a.MinY, b.MinY))
	dz := math.Max(0, math.Min(a.MaxZ, b.MaxZ)-math.Max(a.MinZ, b.MinZ))
	return dx * dy * dz
}

// adjustAncestorRects recomputes the MBR of n and every ancestor up to the
// root after n's entries changed.
func (t *Tree) adjustAncestorRects(n *node) {
	for n != nil {
		parent := n.parent
		if parent == nil {
			break
		}
		if len(n.entries) == 0 {
			n = parent
			continue
		}
		newRect := mbrOfEntries(n.entries)
		if n.parentAt < len(parent.entries) {
			parent.entries[n.parentAt].rect = newRect
		}
		n = parent
	}
}

// fixParentIndices restores child.parentAt for every child entry of n
// (needed after append, which may have reallocated n.entries' backing
// array so earlier indices are still valid, but kept here for safety
// after any entries slice mutation such as split/condense).
func (t *Tree) fixParentIndices(n *node) {
	for i, e := range n.entries {
		if e.child != nil {
			e.child.parent = n
			e.child.parentAt = i
		}
	}
}
