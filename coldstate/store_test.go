package coldstate_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatio/coldstate"
	"github.com/hupe1980/spatio/core"
)

func TestStoreOpenTwiceFails(t *testing.T) {
	dir := t.TempDir()
	s1, err := coldstate.Open(dir, coldstate.Options{})
	require.NoError(t, err)
	defer s1.Close()

	_, err = coldstate.Open(dir, coldstate.Options{})
	assert.ErrorIs(t, err, coldstate.ErrAlreadyOpen)
}

func TestStoreQueryTrajectoryFromBuffer(t *testing.T) {
	dir := t.TempDir()
	s, err := coldstate.Open(dir, coldstate.Options{BufferSize: 16})
	require.NoError(t, err)
	defer s.Close()

	base := time.Now()
	for i := 0; i < 3; i++ {
		rec := coldstate.EncodeUpsert("fleet", "truck-1", core.Point{X: float64(i), Y: 0, Z: 0}, nil, 0, base.Add(time.Duration(i)*time.Second))
		_, err := s.Append(rec)
		require.NoError(t, err)
	}

	recs, err := s.QueryTrajectory("fleet", "truck-1", base.Add(-time.Minute), base.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 0.0, recs[0].Point.X)
	assert.Equal(t, 2.0, recs[2].Point.X)

	limited, err := s.QueryTrajectory("fleet", "truck-1", base.Add(-time.Minute), base.Add(time.Minute), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 0.0, limited[0].Point.X)
	assert.Equal(t, 1.0, limited[1].Point.X)
}

func TestStoreQueryTrajectoryFallsBackToLogAfterEviction(t *testing.T) {
	dir := t.TempDir()
	s, err := coldstate.Open(dir, coldstate.Options{BufferSize: 2})
	require.NoError(t, err)
	defer s.Close()

	base := time.Now()
	for i := 0; i < 5; i++ {
		rec := coldstate.EncodeUpsert("fleet", "truck-1", core.Point{X: float64(i), Y: 0, Z: 0}, nil, 0, base.Add(time.Duration(i)*time.Second))
		_, err := s.Append(rec)
		require.NoError(t, err)
	}

	recs, err := s.QueryTrajectory("fleet", "truck-1", base.Add(-time.Minute), base.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, recs, 5, "full log fallback must recover records evicted from the buffer")
	assert.Equal(t, 0.0, recs[0].Point.X)
	assert.Equal(t, 4.0, recs[4].Point.X)
}

func TestStoreCompactArchivesAndTruncates(t *testing.T) {
	dir := t.TempDir()
	s, err := coldstate.Open(dir, coldstate.Options{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append(coldstate.EncodeUpsert("fleet", "a", core.Point{X: 1, Y: 1, Z: 0}, nil, 0, time.Now()))
	require.NoError(t, err)

	sizeBefore := mustStat(t, s.LogPath())

	locations := []core.CurrentLocation{
		{Namespace: "fleet", ObjectId: "a", Point: core.Point{X: 1, Y: 1, Z: 0}, UpdatedAt: time.Now()},
	}
	before, after, err := s.Compact(locations)
	require.NoError(t, err)
	assert.Equal(t, sizeBefore, before)
	assert.Positive(t, after)

	sizeAfterCompact := mustStat(t, s.LogPath())
	assert.Less(t, sizeAfterCompact, sizeBefore, "live log must shrink back to header size after compact")

	offset, restored, err := coldstate.ReadSnapshot(s.SnapshotPath())
	require.NoError(t, err)
	assert.Positive(t, offset)
	require.Len(t, restored, 1)
	assert.Equal(t, core.ObjectId("a"), restored[0].ObjectId)
}

func TestInsertTrajectoryDoesNotRequireExistingCurrentLocation(t *testing.T) {
	dir := t.TempDir()
	s, err := coldstate.Open(dir, coldstate.Options{})
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	err = s.InsertTrajectory([]core.TrajectoryRecord{
		{Namespace: "fleet", ObjectId: "historic", Point: core.Point{X: 1, Y: 1, Z: 0}, Timestamp: now.Add(-time.Hour)},
	})
	require.NoError(t, err)

	recs, err := s.QueryTrajectory("fleet", "historic", now.Add(-2*time.Hour), now, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func mustStat(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}
