package rtree_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/hupe1980/spatio/core"
	"github.com/hupe1980/spatio/rtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndQueryEnvelope(t *testing.T) {
	tr := rtree.New(4)
	tr.Insert("a", core.Point{X: 0, Y: 0, Z: 0})
	tr.Insert("b", core.Point{X: 1, Y: 1, Z: 0})
	tr.Insert("c", core.Point{X: 10, Y: 10, Z: 0})

	require.Equal(t, 3, tr.Len())

	var ids []string
	for e := range tr.QueryEnvelope(rtree.Rect{MinX: -1, MinY: -1, MinZ: -1, MaxX: 2, MaxY: 2, MaxZ: 1}) {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestQueryEnvelope_InclusiveBoundary(t *testing.T) {
	tr := rtree.New(4)
	tr.Insert("edge", core.Point{X: 5, Y: 5, Z: 0})

	var found bool
	for e := range tr.QueryEnvelope(rtree.Rect{MinX: 0, MinY: 0, MinZ: 0, MaxX: 5, MaxY: 5, MaxZ: 0}) {
		if e.ID == "edge" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRemove(t *testing.T) {
	tr := rtree.New(4)
	p := core.Point{X: 3, Y: 4, Z: 0}
	tr.Insert("x", p)
	require.Equal(t, 1, tr.Len())

	ok := tr.Remove("x", p)
	assert.True(t, ok)
	assert.Equal(t, 0, tr.Len())

	ok = tr.Remove("x", p)
	assert.False(t, ok)
}

func TestRemove_DuplicateCoordinates(t *testing.T) {
	tr := rtree.New(4)
	p := core.Point{X: 1, Y: 1, Z: 1}
	tr.Insert("first", p)
	tr.Insert("second", p)
	require.Equal(t, 2, tr.Len())

	require.True(t, tr.Remove("first", p))
	require.Equal(t, 1, tr.Len())

	var remaining []string
	for e := range tr.QueryEnvelope(rtree.RectOfPoint(p)) {
		remaining = append(remaining, e.ID)
	}
	assert.Equal(t, []string{"second"}, remaining)
}

func TestNearestIter_AscendingOrder(t *testing.T) {
	tr := rtree.New(4)
	tr.Insert("a", core.Point{X: 0, Y: 0, Z: 0})
	tr.Insert("b", core.Point{X: 0, Y: 0, Z: 10})
	tr.Insert("c", core.Point{X: 0, Y: 0, Z: 50})

	var order []string
	for e := range tr.NearestIter(core.Point{X: 0, Y: 0, Z: 0}) {
		order = append(order, e.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestNearestIter_EarlyStop(t *testing.T) {
	tr := rtree.New(4)
	for i := 0; i < 100; i++ {
		tr.Insert(fmt.Sprintf("id-%d", i), core.Point{X: float64(i % 180), Y: 0, Z: 0})
	}

	count := 0
	for range tr.NearestIter(core.Point{X: 0, Y: 0, Z: 0}) {
		count++
		if count == 5 {
			break
		}
	}
	assert.Equal(t, 5, count)
}

func TestInsertManyAndQueryConsistency(t *testing.T) {
	tr := rtree.New(8)
	rng := rand.New(rand.NewSource(42))
	pts := make(map[string]core.Point)
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("obj-%d", i)
		p := core.Point{
			X: rng.Float64()*360 - 180,
			Y: rng.Float64()*180 - 90,
			Z: rng.Float64() * 1000,
		}
		pts[id] = p
		tr.Insert(id, p)
	}
	require.Equal(t, 500, tr.Len())

	box := rtree.Rect{MinX: -180, MinY: -90, MinZ: -1e9, MaxX: 180, MaxY: 90, MaxZ: 1e9}
	count := 0
	for range tr.QueryEnvelope(box) {
		count++
	}
	assert.Equal(t, 500, count)

	// Remove half, verify len and envelope both shrink consistently.
	i := 0
	for id, p := range pts {
		if i >= 250 {
			break
		}
		require.True(t, tr.Remove(id, p))
		i++
	}
	assert.Equal(t, 250, tr.Len())

	count = 0
	for range tr.QueryEnvelope(box) {
		count++
	}
	assert.Equal(t, 250, count)
}

func TestBulkLoad(t *testing.T) {
	entries := make([]rtree.Entry, 0, 200)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		entries = append(entries, rtree.Entry{
			ID: fmt.Sprintf("id-%d", i),
			Point: core.Point{
				X: rng.Float64()*360 - 180,
				Y: rng.Float64()*180 - 90,
				Z: rng.Float64() * 100,
			},
		})
	}

	tr := rtree.New(8)
	tr.BulkLoad(entries)
	require.Equal(t, 200, tr.Len())

	box := rtree.Rect{MinX: -180, MinY: -90, MinZ: -1e6, MaxX: 180, MaxY: 90, MaxZ: 1e6}
	count := 0
	for range tr.QueryEnvelope(box) {
		count++
	}
	assert.Equal(t, 200, count)
}

func TestBulkLoad_Empty(t *testing.T) {
	tr := rtree.New(8)
	tr.BulkLoad(nil)
	assert.Equal(t, 0, tr.Len())
}

func TestKNNViaNearestIter(t *testing.T) {
	tr := rtree.New(4)
	expected := []string{"a", "b", "c"}
	tr.Insert("c", core.Point{X: 0, Y: 0, Z: 50})
	tr.Insert("a", core.Point{X: 0, Y: 0, Z: 0})
	tr.Insert("b", core.Point{X: 0, Y: 0, Z: 10})
	tr.Insert("d", core.Point{X: 0, Y: 0, Z: 900})

	k := 3
	var got []string
	for e := range tr.NearestIter(core.Point{X: 0, Y: 0, Z: 0}) {
		got = append(got, e.ID)
		if len(got) == k {
			break
		}
	}
	assert.Equal(t, expected, got)
}
