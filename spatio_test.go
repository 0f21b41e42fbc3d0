package spatio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatio"
	"github.com/hupe1980/spatio/core"
)

func TestMemoryUpsertGetDelete(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, "fleet", "truck-1", core.Point{X: 1, Y: 2, Z: 0}, []byte("m"), 0))

	loc, err := db.Get(ctx, "fleet", "truck-1")
	require.NoError(t, err)
	assert.Equal(t, core.Point{X: 1, Y: 2, Z: 0}, loc.Point)

	require.NoError(t, db.Delete(ctx, "fleet", "truck-1"))
	_, err = db.Get(ctx, "fleet", "truck-1")
	assert.ErrorIs(t, err, spatio.ErrNotFound)
}

func TestUpsertRejectsInvalidPoint(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()

	err := db.Upsert(context.Background(), "fleet", "x", core.Point{X: 500, Y: 0, Z: 0}, nil, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, spatio.ErrInvalidArgument)

	var invalid *spatio.ErrInvalidPoint
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "x", invalid.Field)
}

func TestQueryRadiusEndToEnd(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, "fleet", "near", core.Point{X: 0, Y: 0, Z: 0}, nil, 0))
	require.NoError(t, db.Upsert(ctx, "fleet", "far", core.Point{X: 50, Y: 50, Z: 0}, nil, 0))

	seq, err := db.QueryRadius(ctx, "fleet", core.Point{X: 0, Y: 0, Z: 0}, 1000, 10)
	require.NoError(t, err)

	var ids []core.ObjectId
	for r := range seq {
		ids = append(ids, r.ObjectId)
	}
	assert.Equal(t, []core.ObjectId{"near"}, ids)
}

func TestQueryRadiusRejectsNegativeLimit(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()

	_, err := db.QueryRadius(context.Background(), "fleet", core.Point{X: 0, Y: 0, Z: 0}, 1000, -1)
	assert.ErrorIs(t, err, spatio.ErrInvalidArgument)
}

func TestKNNRejectsZero(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()

	_, err := db.KNN(context.Background(), "fleet", core.Point{X: 0, Y: 0, Z: 0}, 0)
	assert.ErrorIs(t, err, spatio.ErrInvalidArgument)
}

func TestQueryBBoxNearAndCylinderNearEndToEnd(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, "fleet", "origin", core.Point{X: 0, Y: 0, Z: 0}, nil, 0))
	require.NoError(t, db.Upsert(ctx, "fleet", "neighbor", core.Point{X: 0.001, Y: 0, Z: 5}, nil, 0))
	require.NoError(t, db.Upsert(ctx, "fleet", "far", core.Point{X: 50, Y: 50, Z: 0}, nil, 0))

	bboxSeq, err := db.QueryBBoxNear(ctx, "fleet", "origin", 1000, 1000, 10)
	require.NoError(t, err)
	var bboxIds []core.ObjectId
	for r := range bboxSeq {
		bboxIds = append(bboxIds, r.ObjectId)
	}
	assert.Equal(t, []core.ObjectId{"neighbor"}, bboxIds)

	cylSeq, err := db.QueryCylinderNear(ctx, "fleet", "origin", 0, 100, 1000, 10)
	require.NoError(t, err)
	var cylIds []core.ObjectId
	for r := range cylSeq {
		cylIds = append(cylIds, r.ObjectId)
	}
	assert.Equal(t, []core.ObjectId{"neighbor"}, cylIds)
}

func TestQueryWithinCylinderRejectsInvertedRange(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()

	_, err := db.QueryWithinCylinder(context.Background(), "fleet", core.Point{X: 0, Y: 0, Z: 0}, 1000, 100, 10, 0)
	require.Error(t, err)
	var invalid *spatio.ErrInvalidBoundingBox
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "z", invalid.Axis)
}

func TestKNN3DOrdering(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, "fleet", "a", core.Point{X: 0, Y: 0, Z: 0}, nil, 0))
	require.NoError(t, db.Upsert(ctx, "fleet", "b", core.Point{X: 0, Y: 0, Z: 100}, nil, 0))
	require.NoError(t, db.Upsert(ctx, "fleet", "c", core.Point{X: 0, Y: 0, Z: 10000}, nil, 0))

	seq, err := db.KNN3D(ctx, "fleet", core.Point{X: 0, Y: 0, Z: 0}, 2)
	require.NoError(t, err)

	var ids []core.ObjectId
	for r := range seq {
		ids = append(ids, r.ObjectId)
	}
	assert.Equal(t, []core.ObjectId{"a", "b"}, ids)
}

func TestTTLExpiryThroughPublicAPI(t *testing.T) {
	db := spatio.Memory(spatio.WithDefaultTTL(time.Millisecond))
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, "fleet", "short-lived", core.Point{X: 0, Y: 0, Z: 0}, nil, 0))
	time.Sleep(5 * time.Millisecond)

	_, err := db.Get(ctx, "fleet", "short-lived")
	assert.ErrorIs(t, err, spatio.ErrNotFound)

	assert.Equal(t, 1, db.CountExpired("fleet"))
	n, err := db.CleanupExpired(ctx, "fleet")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDurableOpenRecoversAfterRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := spatio.Open(dir, spatio.WithSyncMode(spatio.SyncAll))
	require.NoError(t, err)
	require.NoError(t, db.Upsert(ctx, "fleet", "a", core.Point{X: 1, Y: 1, Z: 0}, []byte("hello"), 0))
	require.NoError(t, db.Close())

	db2, err := spatio.Open(dir)
	require.NoError(t, err)
	defer db2.Close()

	loc, err := db2.Get(ctx, "fleet", "a")
	require.NoError(t, err)
	assert.Equal(t, core.Point{X: 1, Y: 1, Z: 0}, loc.Point)
	assert.Equal(t, []byte("hello"), loc.Metadata)
}

func TestSecondOpenOnSameDirFails(t *testing.T) {
	dir := t.TempDir()
	db, err := spatio.Open(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = spatio.Open(dir)
	assert.ErrorIs(t, err, spatio.ErrAlreadyOpen)
}

func TestQueryTrajectoryAndInsertTrajectory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	db, err := spatio.Open(dir)
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	require.NoError(t, db.Upsert(ctx, "fleet", "a", core.Point{X: 1, Y: 1, Z: 0}, nil, 0))

	recs, err := db.QueryTrajectory(ctx, "fleet", "a", now.Add(-time.Minute), now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	require.NoError(t, db.InsertTrajectory(ctx, []core.TrajectoryRecord{
		{Namespace: "fleet", ObjectId: "a", Point: core.Point{X: 2, Y: 2, Z: 0}, Timestamp: now.Add(-time.Hour)},
	}))

	recs, err = db.QueryTrajectory(ctx, "fleet", "a", now.Add(-2*time.Hour), now.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	limited, err := db.QueryTrajectory(ctx, "fleet", "a", now.Add(-2*time.Hour), now.Add(time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestQueryTrajectoryRejectsEmptyIds(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	db, err := spatio.Open(dir)
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	_, err = db.QueryTrajectory(ctx, "", "a", now.Add(-time.Minute), now, 0)
	assert.ErrorIs(t, err, spatio.ErrInvalidArgument)
	_, err = db.QueryTrajectory(ctx, "fleet", "", now.Add(-time.Minute), now, 0)
	assert.ErrorIs(t, err, spatio.ErrInvalidArgument)
}

func TestCompactThenRecoverPreservesState(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	db, err := spatio.Open(dir)
	require.NoError(t, err)

	require.NoError(t, db.Upsert(ctx, "fleet", "a", core.Point{X: 1, Y: 1, Z: 0}, []byte("m"), time.Hour))
	require.NoError(t, db.Compact(ctx))
	require.NoError(t, db.Close())

	db2, err := spatio.Open(dir)
	require.NoError(t, err)
	defer db2.Close()

	loc, err := db2.Get(ctx, "fleet", "a")
	require.NoError(t, err)
	assert.Equal(t, core.Point{X: 1, Y: 1, Z: 0}, loc.Point)
	assert.Equal(t, []byte("m"), loc.Metadata)
}

func TestBuilderOpensMemoryDB(t *testing.T) {
	db := spatio.NewBuilder().WithBufferSize(8).WithDefaultTTL(time.Minute).Memory()
	defer db.Close()

	require.NoError(t, db.Upsert(context.Background(), "fleet", "a", core.Point{X: 0, Y: 0, Z: 0}, nil, 0))
	loc, err := db.Get(context.Background(), "fleet", "a")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, loc.TTL)
}

func TestStatsReportsPerNamespace(t *testing.T) {
	db := spatio.Memory()
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, "fleet-a", "1", core.Point{X: 0, Y: 0, Z: 0}, nil, 0))
	require.NoError(t, db.Upsert(ctx, "fleet-b", "1", core.Point{X: 0, Y: 0, Z: 0}, nil, 0))

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats, 2)
}
