package coldstate_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatio/coldstate"
	"github.com/hupe1980/spatio/core"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot")
	now := time.Now().Truncate(time.Nanosecond)

	locations := []core.CurrentLocation{
		{Namespace: "fleet", ObjectId: "a", Point: core.Point{X: 1, Y: 2, Z: 3}, Metadata: []byte("m"), CreatedAt: now, UpdatedAt: now, TTL: time.Minute},
		{Namespace: "fleet", ObjectId: "b", Point: core.Point{X: 4, Y: 5, Z: 6}, CreatedAt: now, UpdatedAt: now},
	}

	require.NoError(t, coldstate.WriteSnapshot(path, 42, locations))

	offset, got, err := coldstate.ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), offset)
	require.Len(t, got, 2)
	assert.Equal(t, locations[0].ObjectId, got[0].ObjectId)
	assert.Equal(t, locations[0].Point, got[0].Point)
	assert.Equal(t, locations[0].Metadata, got[0].Metadata)
	assert.Equal(t, locations[0].TTL, got[0].TTL)
	assert.True(t, locations[0].CreatedAt.Equal(got[0].CreatedAt))
	assert.Equal(t, locations[1].ObjectId, got[1].ObjectId)
}

func TestReadSnapshotMissingFileIsNotError(t *testing.T) {
	offset, locations, err := coldstate.ReadSnapshot(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Zero(t, offset)
	assert.Nil(t, locations)
}

func TestArchiveLogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "log")
	archivePath := filepath.Join(dir, "archive.zst")
	restoredPath := filepath.Join(dir, "restored")

	l, err := coldstate.OpenLog(logPath, coldstate.SyncAll, 1)
	require.NoError(t, err)
	_, err = l.Append(coldstate.EncodeUpsert("fleet", "a", core.Point{X: 1, Y: 1, Z: 0}, nil, 0, time.Now()))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	before, after, err := coldstate.ArchiveLog(logPath, archivePath)
	require.NoError(t, err)
	assert.Positive(t, before)
	assert.Positive(t, after)

	require.NoError(t, coldstate.RestoreArchivedLog(archivePath, restoredPath))

	records, truncated, err := coldstate.Replay(restoredPath)
	require.NoError(t, err)
	assert.False(t, truncated)
	require.Len(t, records, 1)
	assert.Equal(t, core.ObjectId("a"), records[0].ObjectId)
}
