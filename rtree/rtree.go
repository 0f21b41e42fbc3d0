package rtree

// The tree follows the R* variant: forced reinsertion on overflow,
// minimum-overlap splits, envelope-area objective (see split.go). It
// stores only coordinates and an opaque back-reference id (spec §9,
// "Reference ownership in the tree") — never metadata or TTL. Callers
// join through the id back to their own object map while holding
// whatever lock protects both structures; the tree itself is not
// internally synchronized (the Hot State's per-namespace rwlock, per
// spec §5, is the only lock covering tree mutation).

import (
	"math"

	"github.com/hupe1980/spatio/core"
)

// DefaultMaxEntries is the fan-out (M) used when none is configured.
const DefaultMaxEntries = 8

// minFillRatio is the fraction of M used to derive the minimum fill (m),
// the standard R-tree/R*-tree choice of m ≈ 0.4M.
const minFillRatio = 0.4

// reinsertRatio is the fraction of entries forced back through Insert on
// overflow before falling back to a node split (the "p" parameter from the
// R*-tree paper), per spec §4.3 "forced reinsertion on overflow".
const reinsertRatio = 0.3

// Rect is an axis-aligned bounding rectangle in 3D. A point entry's rect
// has Min == Max on every axis.
type Rect struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// RectOfPoint returns the degenerate rectangle wrapping a single point.
func RectOfPoint(p core.Point) Rect {
	return Rect{p.X, p.Y, p.Z, p.X, p.Y, p.Z}
}

// area returns the rectangle's surface-proportional measure used for the
// R*-tree's area-enlargement objective. Flat axes (common once z is
// mostly 0) contribute their own dimension as a thin slab rather than
// collapsing the area to zero, so enlargement along a flat axis is still
// comparable to enlargement along a populated one.
func (r Rect) area() float64 {
	dx := math.Max(r.MaxX-r.MinX, 1e-9)
	dy := math.Max(r.MaxY-r.MinY, 1e-9)
	dz := math.Max(r.MaxZ-r.MinZ, 1e-9)
	return dx * dy * dz
}

func (r Rect) margin() float64 {
	dx := r.MaxX - r.MinX
	dy := r.MaxY - r.MinY
	dz := r.MaxZ - r.MinZ
	return dx + dy + dz
}

func (r Rect) intersects(o Rect) bool {
	return r.MinX <= o.MaxX && r.MaxX >= o.MinX &&
		r.MinY <= o.MaxY && r.MaxY >= o.MinY &&
		r.MinZ <= o.MaxZ && r.MaxZ >= o.MinZ
}

func (r Rect) contains(o Rect) bool {
	return r.MinX <= o.MinX && r.MaxX >= o.MaxX &&
		r.MinY <= o.MinY && r.MaxY >= o.MaxY &&
		r.MinZ <= o.MinZ && r.MaxZ >= o.MaxZ
}

func (r Rect) union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MinZ: math.Min(r.MinZ, o.MinZ),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
		MaxZ: math.Max(r.MaxZ, o.MaxZ),
	}
}

// containsPoint reports whether p lies inside r, inclusive of the
// boundary, per spec §8 invariant 2 ("inside B inclusive").
func (r Rect) containsPoint(p core.Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX &&
		p.Y >= r.MinY && p.Y <= r.MaxY &&
		p.Z >= r.MinZ && p.Z <= r.MaxZ
}

// Entry is a tree leaf entry: a point plus the caller's opaque id.
type Entry struct {
	ID    string
	Point core.Point
}

type node struct {
	leaf     bool
	level    int // 0 = leaf
	entries  []*nodeEntry
	parent   *node
	parentAt int // this node's index within parent.entries
}

// nodeEntry is either a leaf entry (child == nil, carries ID+Point) or an
// internal entry pointing at a child node, with rect the MBR of that
// child's contents.
type nodeEntry struct {
	rect  Rect
	id    string
	point core.Point
	child *node
}

// Tree is an R*-tree over 3D points.
type Tree struct {
	root       *node
	size       int
	maxEntries int
	minEntries int
}

// New creates an empty tree with the given fan-out. maxEntries <= 0 uses
// DefaultMaxEntries.
func New(maxEntries int) *Tree {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	minEntries := int(math.Ceil(float64(maxEntries) * minFillRatio))
	if minEntries < 2 {
		minEntries = 2
	}
	return &Tree{
		root:       &node{leaf: true},
		maxEntries: maxEntries,
		minEntries: minEntries,
	}
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int { return t.size }

func rectOfEntry(e *nodeEntry) Rect { return e.rect }

func mbrOfEntries(entries []*nodeEntry) Rect {
	r := entries[0].rect
	for _, e := range entries[1:] {
		r = r.union(e.rect)
	}
	return r
}
