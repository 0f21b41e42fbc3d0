package rtree

import "sort"

// BulkLoad replaces the tree's contents with entries, built bottom-up in
// O(n log n) rather than inserted one at a time, per spec §4.4 ("Recovery
// ... MAY bulk-load the tree from the final set of points"). Entries are
// ordered along a Z-order (Morton) curve over quantized (x, y, z) so that
// spatially close points land in the same leaf, giving query locality
// comparable to a packed R-tree without implementing full sort-tile-
// recursive packing.
func (t *Tree) BulkLoad(entries []Entry) {
	if len(entries) == 0 {
		t.root = &node{leaf: true}
		t.size = 0
		return
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return mortonCode(sorted[i]) < mortonCode(sorted[j])
	})

	leafEntries := make([]*nodeEntry, len(sorted))
	for i, e := range sorted {
		leafEntries[i] = &nodeEntry{rect: RectOfPoint(e.Point), id: e.ID, point: e.Point}
	}

	t.root = packLevel(leafEntries, t.maxEntries, true)
	assignLevels(t.root)
	t.size = len(entries)
}

// packLevel groups entries (leaf point entries or entries wrapping
// already-built child nodes) into nodes of at most maxEntries each, then
// recurses upward until a single root remains. Node.level is left at its
// zero value here; assignLevels fixes it up in one bottom-up pass once
// the whole tree shape is final.
func packLevel(entries []*nodeEntry, maxEntries int, leaf bool) *node {
	if len(entries) <= maxEntries {
		n := &node{leaf: leaf, entries: entries}
		for i, e := range n.entries {
			if e.child != nil {
				e.child.parent = n
				e.child.parentAt = i
			}
		}
		return n
	}

	numGroups := (len(entries) + maxEntries - 1) / maxEntries
	groupSize := (len(entries) + numGroups - 1) / numGroups

	var parentEntries []*nodeEntry
	for start := 0; start < len(entries); start += groupSize {
		end := start + groupSize
		if end > len(entries) {
			end = len(entries)
		}
		child := &node{leaf: leaf, entries: entries[start:end]}
		for i, e := range child.entries {
			if e.child != nil {
				e.child.parent = child
				e.child.parentAt = i
			}
		}
		parentEntries = append(parentEntries, &nodeEntry{rect: mbrOfEntries(child.entries), child: child})
	}

	return packLevel(parentEntries, maxEntries, false)
}

// assignLevels sets n.level (and every descendant's) bottom-up: leaves
// are level 0, each internal node is one more than its tallest child.
func assignLevels(n *node) int {
	if n.leaf {
		n.level = 0
		return 0
	}
	maxChild := 0
	for _, e := range n.entries {
		if e.child != nil {
			if lvl := assignLevels(e.child); lvl > maxChild {
				maxChild = lvl
			}
		}
	}
	n.level = maxChild + 1
	return n.level
}

// mortonCode interleaves the quantized bits of x, y, z into a single
// sortable key (a simplified Z-order curve), giving bulk-loaded leaves
// spatial locality without a full STR packing pass.
func mortonCode(e Entry) uint64 {
	qx := quantize(e.Point.X, -180, 180)
	qy := quantize(e.Point.Y, -90, 90)
	qz := quantize(e.Point.Z, -20000, 20000)
	return interleave3(qx, qy, qz)
}

func quantize(v, lo, hi float64) uint32 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	const bits = 1 << 21
	return uint32((v - lo) / (hi - lo) * (bits - 1))
}

// interleave3 interleaves the low 21 bits of x, y, z into a 63-bit Morton
// code.
func interleave3(x, y, z uint32) uint64 {
	return spread3(uint64(x)) | (spread3(uint64(y)) << 1) | (spread3(uint64(z)) << 2)
}

func spread3(v uint64) uint64 {
	v &= 0x1FFFFF
	v = (v | v<<32) & 0x1F00000000FFFF
	v = (v | v<<16) & 0x1F0000FF0000FF
	v = (v | v<<8) & 0x100F00F00F00F00F
	v = (v | v<<4) & 0x10C30C30C30C30C3
	v = (v | v<<2) & 0x1249249249249249
	return v
}
