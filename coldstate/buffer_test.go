package coldstate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatio/coldstate"
	"github.com/hupe1980/spatio/core"
)

func TestBufferEvictsOldestOnOverflow(t *testing.T) {
	b := coldstate.NewBuffer(2)
	now := time.Now()
	b.Push(coldstate.EncodeUpsert("fleet", "a", core.Point{X: 0, Y: 0, Z: 0}, nil, 0, now))
	b.Push(coldstate.EncodeUpsert("fleet", "b", core.Point{X: 0, Y: 0, Z: 0}, nil, 0, now))
	assert.Equal(t, int64(0), b.Evicted())

	b.Push(coldstate.EncodeUpsert("fleet", "c", core.Point{X: 0, Y: 0, Z: 0}, nil, 0, now))
	assert.Equal(t, int64(1), b.Evicted())

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, core.ObjectId("b"), snap[0].ObjectId)
	assert.Equal(t, core.ObjectId("c"), snap[1].ObjectId)
}

func TestBufferDefaultCapacity(t *testing.T) {
	b := coldstate.NewBuffer(0)
	assert.Empty(t, b.Snapshot())
}
