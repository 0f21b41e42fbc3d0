package rtree

import "github.com/hupe1980/spatio/core"

// Remove deletes the entry with the given id at point p. p is required
// because the tree has no id index — the caller (the object map) already
// knows the current point, per spec §4.3 "Deletion by id".
//
// Remove reports whether an entry was found and removed.
func (t *Tree) Remove(id string, p core.Point) bool {
	leaf, idx := t.findLeaf(t.root, RectOfPoint(p), id)
	if leaf == nil {
		return false
	}
	leaf.entries = append(leaf.entries[:idx], leaf.entries[idx+1:]...)
	t.fixParentIndices(leaf)
	t.size--
	t.condense(leaf)
	return true
}

func (t *Tree) findLeaf(n *node, target Rect, id string) (*node, int) {
	if n.leaf {
		for i, e := range n.entries {
			if e.id == id {
				return n, i
			}
		}
		return nil, -1
	}
	for _, e := range n.entries {
		if !e.rect.intersects(target) {
			continue
		}
		if leaf, idx := t.findLeaf(e.child, target, id); leaf != nil {
			return leaf, idx
		}
	}
	return nil, -1
}

// condense re-balances the tree after a removal: nodes that underflow are
// emptied and their surviving descendant entries are collected for
// top-down reinsertion, the classic R-tree CondenseTree algorithm.
func (t *Tree) condense(n *node) {
	var orphans []*nodeEntry
	var orphanLevels []int

	cur := n
	for cur.parent != nil {
		parent := cur.parent
		if len(cur.entries) < t.minEntries && len(cur.entries) > 0 {
			orphans = append(orphans, cur.entries...)
			for range cur.entries {
				orphanLevels = append(orphanLevels, cur.level)
			}
			cur.entries = nil
		}
		if len(cur.entries) == 0 {
			parent.entries = append(parent.entries[:cur.parentAt], parent.entries[cur.parentAt+1:]...)
			t.fixParentIndices(parent)
		} else {
			parent.entries[cur.parentAt].rect = mbrOfEntries(cur.entries)
		}
		cur = parent
	}

	// Shrink a root that has become a single-child internal node.
	for !t.root.leaf && len(t.root.entries) == 1 {
		t.root = t.root.entries[0].child
		t.root.parent = nil
	}
	if !t.root.leaf && len(t.root.entries) == 0 {
		t.root = &node{leaf: true}
	}

	for i, e := range orphans {
		overflowed := map[int]bool{}
		t.insertEntry(e, orphanLevels[i], overflowed)
	}
}
