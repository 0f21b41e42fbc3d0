// Package spatio is documented in doc.go.
package spatio

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/hupe1980/spatio/coldstate"
	"github.com/hupe1980/spatio/core"
	"github.com/hupe1980/spatio/engine"
	"github.com/hupe1980/spatio/recovery"
)

// DB is an embedded spatio-temporal database handle.
type DB struct {
	opts    *options
	engine  *engine.Engine
	cleaner *engine.Cleaner
	store   *coldstate.Store // nil for an in-memory-only database
}

// toColdstateSyncMode converts the public SyncMode to coldstate's, which
// cannot import this package (coldstate.Store is imported by it, not the
// other way around). Both are plain two-value enums in the same order.
func toColdstateSyncMode(m SyncMode) coldstate.SyncMode {
	if m == SyncData {
		return coldstate.SyncData
	}
	return coldstate.SyncAll
}

// Open opens (creating if necessary) a durable database rooted at dir.
// It acquires an exclusive lock on dir for the lifetime of the handle
// and returns ErrAlreadyOpen if another handle already holds it.
func Open(dir string, opt ...Option) (*DB, error) {
	o := defaultOptions()
	for _, fn := range opt {
		fn(o)
	}

	store, err := coldstate.Open(dir, coldstate.Options{
		BufferSize:    o.bufferSize,
		SyncMode:      toColdstateSyncMode(o.syncMode),
		TimeIndex:     o.timeIndex,
		SyncBatchSize: o.syncBatchSize,
	})
	if err != nil {
		return nil, translateError(err)
	}

	eng := engine.New(0)
	res, err := recovery.Recover(eng, store.LogPath(), store.SnapshotPath())
	if err != nil {
		store.Close()
		return nil, translateError(err)
	}
	o.logger.LogRecovery(context.Background(), res.RecordsReplayed, res.TruncatedTail, nil)

	db := &DB{
		opts:    o,
		engine:  eng,
		cleaner: engine.NewCleaner(eng, o.cleanupLimit),
		store:   store,
	}
	return db, nil
}

// Memory opens a purely in-memory database: no log, no durability, no
// directory lock. Useful for tests and ephemeral workloads.
func Memory(opt ...Option) *DB {
	o := defaultOptions()
	for _, fn := range opt {
		fn(o)
	}
	eng := engine.New(0)
	return &DB{
		opts:    o,
		engine:  eng,
		cleaner: engine.NewCleaner(eng, o.cleanupLimit),
	}
}

// Close flushes any pending writes and releases the directory lock. A
// memory-only DB just discards its state.
func (db *DB) Close() error {
	if db.store == nil {
		return nil
	}
	return db.store.Close()
}

// Flush forces durable persistence of every write accepted so far.
func (db *DB) Flush() error {
	if db.store == nil {
		return nil
	}
	if err := db.store.Flush(); err != nil {
		db.opts.logger.LogFlush(context.Background(), 0, err)
		return translateError(err)
	}
	db.opts.logger.LogFlush(context.Background(), 0, nil)
	db.opts.metrics.IncFlush()
	return nil
}

// Upsert inserts or replaces id's current location, per spec §4.1
// upsert. ttl <= 0 uses the database's configured default TTL.
func (db *DB) Upsert(ctx context.Context, ns core.Namespace, id core.ObjectId, p core.Point, metadata []byte, ttl time.Duration) error {
	if !core.ValidNamespace(ns) || !core.ValidObjectId(id) {
		err := ErrInvalidArgument
		db.opts.logger.LogUpsert(ctx, ns, id, err)
		return err
	}
	if !core.ValidPoint(p) {
		err := &ErrInvalidPoint{Field: invalidField(p), Value: invalidValue(p)}
		db.opts.logger.LogUpsert(ctx, ns, id, err)
		return err
	}
	if ttl <= 0 {
		ttl = db.opts.defaultTTL
	}
	now := time.Now()

	if db.store != nil {
		rec := coldstate.EncodeUpsert(ns, id, p, metadata, ttl, now)
		offset, err := db.store.Append(rec)
		if err != nil {
			db.opts.logger.LogUpsert(ctx, ns, id, err)
			return translateError(err)
		}
		// A batch size of 1 (the default) means every write waits for its
		// own durable commit before returning; a larger batch size is the
		// caller opting into eventual durability via Flush instead.
		if db.opts.syncBatchSize <= 1 {
			if err := db.store.WaitFor(offset); err != nil {
				return translateError(err)
			}
		}
	}

	err := db.engine.Upsert(ns, id, p, metadata, ttl, now)
	db.opts.logger.LogUpsert(ctx, ns, id, err)
	if err != nil {
		return translateError(err)
	}
	db.opts.metrics.IncUpsert()
	return nil
}

// Get returns id's current location, per spec §4.1 get.
func (db *DB) Get(ctx context.Context, ns core.Namespace, id core.ObjectId) (core.CurrentLocation, error) {
	loc, err := db.engine.Get(ns, id)
	if err != nil {
		return core.CurrentLocation{}, translateError(err)
	}
	if loc.Expired(time.Now()) {
		return core.CurrentLocation{}, ErrNotFound
	}
	return loc, nil
}

// Delete removes id's current location, per spec §4.1 delete.
func (db *DB) Delete(ctx context.Context, ns core.Namespace, id core.ObjectId) error {
	if !core.ValidNamespace(ns) || !core.ValidObjectId(id) {
		err := ErrInvalidArgument
		db.opts.logger.LogDelete(ctx, ns, id, err)
		return err
	}

	if db.store != nil {
		rec := coldstate.EncodeDelete(ns, id, time.Now())
		if _, err := db.store.Append(rec); err != nil {
			db.opts.logger.LogDelete(ctx, ns, id, err)
			return translateError(err)
		}
	}

	err := db.engine.Delete(ns, id)
	db.opts.logger.LogDelete(ctx, ns, id, err)
	if err != nil {
		return translateError(err)
	}
	db.opts.metrics.IncDelete()
	return nil
}

// QueryRadius returns the first limit live objects within radiusMeters of
// center, ascending by distance, per spec §4.1 query_radius.
func (db *DB) QueryRadius(ctx context.Context, ns core.Namespace, center core.Point, radiusMeters float64, limit int) (iter.Seq[core.Result], error) {
	if !core.ValidPoint(center) {
		return nil, &ErrInvalidPoint{Field: invalidField(center), Value: invalidValue(center)}
	}
	seq, err := db.engine.QueryRadius(ns, center, radiusMeters, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("radius")
	return seq, nil
}

// QueryRadiusNear is QueryRadius relative to id's own current location,
// per spec §4.1 query_near, excluding id itself.
func (db *DB) QueryRadiusNear(ctx context.Context, ns core.Namespace, id core.ObjectId, radiusMeters float64, limit int) (iter.Seq[core.Result], error) {
	seq, err := db.engine.QueryRadiusNear(ns, id, radiusMeters, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("radius_near")
	return seq, nil
}

// QueryBBox returns the first limit live objects inside box, per spec
// §4.1 query_bbox.
func (db *DB) QueryBBox(ctx context.Context, ns core.Namespace, box core.BoundingBox2D, limit int) (iter.Seq[core.Result], error) {
	if !core.ValidBoundingBox2D(box) {
		if !(box.MinX <= box.MaxX) {
			return nil, &ErrInvalidBoundingBox{Axis: "x", Min: box.MinX, Max: box.MaxX}
		}
		return nil, &ErrInvalidBoundingBox{Axis: "y", Min: box.MinY, Max: box.MaxY}
	}
	seq, err := db.engine.QueryBBox(ns, box, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("bbox")
	return seq, nil
}

// QueryBBoxNear is QueryBBox relative to id's own current location: a box
// of total width w and height h centered on id's anchor, per spec §4.1
// query_bbox_near, excluding id itself.
func (db *DB) QueryBBoxNear(ctx context.Context, ns core.Namespace, id core.ObjectId, w, h float64, limit int) (iter.Seq[core.Result], error) {
	seq, err := db.engine.QueryBBoxNear(ns, id, w, h, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("bbox_near")
	return seq, nil
}

// QueryWithinBBox3D returns the first limit live objects inside box, per
// spec §4.1 query_within_bbox_3d.
func (db *DB) QueryWithinBBox3D(ctx context.Context, ns core.Namespace, box core.BoundingBox3D, limit int) (iter.Seq[core.Result], error) {
	if !core.ValidBoundingBox3D(box) {
		switch {
		case !(box.MinX <= box.MaxX):
			return nil, &ErrInvalidBoundingBox{Axis: "x", Min: box.MinX, Max: box.MaxX}
		case !(box.MinY <= box.MaxY):
			return nil, &ErrInvalidBoundingBox{Axis: "y", Min: box.MinY, Max: box.MaxY}
		default:
			return nil, &ErrInvalidBoundingBox{Axis: "z", Min: box.MinZ, Max: box.MaxZ}
		}
	}
	seq, err := db.engine.QueryWithinBBox3D(ns, box, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("bbox3d")
	return seq, nil
}

// QueryWithinCylinder returns the first limit live objects within
// radiusMeters (horizontal) of center whose altitude lies in [minZ, maxZ],
// per spec §4.1 query_within_cylinder. minZ > maxZ is rejected, per spec
// §9's resolved open question.
func (db *DB) QueryWithinCylinder(ctx context.Context, ns core.Namespace, center core.Point, radiusMeters, minZ, maxZ float64, limit int) (iter.Seq[core.Result], error) {
	if minZ > maxZ {
		return nil, &ErrInvalidBoundingBox{Axis: "z", Min: minZ, Max: maxZ}
	}
	seq, err := db.engine.QueryWithinCylinder(ns, center, radiusMeters, minZ, maxZ, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("cylinder")
	return seq, nil
}

// QueryCylinderNear is QueryWithinCylinder relative to id's own current
// location, per spec §4.1 query_cylinder_near, excluding id itself.
func (db *DB) QueryCylinderNear(ctx context.Context, ns core.Namespace, id core.ObjectId, minZ, maxZ, radiusMeters float64, limit int) (iter.Seq[core.Result], error) {
	if minZ > maxZ {
		return nil, &ErrInvalidBoundingBox{Axis: "z", Min: minZ, Max: maxZ}
	}
	seq, err := db.engine.QueryCylinderNear(ns, id, minZ, maxZ, radiusMeters, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("cylinder_near")
	return seq, nil
}

// QueryWithinSphere3D returns the first limit live objects within
// radiusMeters of center by combined 3D distance, per spec §4.1
// query_within_sphere_3d.
func (db *DB) QueryWithinSphere3D(ctx context.Context, ns core.Namespace, center core.Point, radiusMeters float64, limit int) (iter.Seq[core.Result], error) {
	seq, err := db.engine.QueryWithinSphere3D(ns, center, radiusMeters, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("sphere3d")
	return seq, nil
}

// KNN returns the k nearest live objects to center, per spec §4.1 knn.
func (db *DB) KNN(ctx context.Context, ns core.Namespace, center core.Point, k int) (iter.Seq[core.Result], error) {
	seq, err := db.engine.KNN(ns, center, k, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("knn")
	return seq, nil
}

// KNNNear is KNN relative to id's own current location, excluding id
// itself, per spec §4.1 knn_near.
func (db *DB) KNNNear(ctx context.Context, ns core.Namespace, id core.ObjectId, k int) (iter.Seq[core.Result], error) {
	seq, err := db.engine.KNNNear(ns, id, k, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("knn_near")
	return seq, nil
}

// KNN3D returns the k nearest live objects to center by combined 3D
// distance, per spec §4.1 knn_3d.
func (db *DB) KNN3D(ctx context.Context, ns core.Namespace, center core.Point, k int) (iter.Seq[core.Result], error) {
	seq, err := db.engine.KNN3D(ns, center, k, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("knn3d")
	return seq, nil
}

// QueryWithinPolygon returns the first limit live objects whose (x, y)
// lies inside the closed polygon, per spec §4.1 query_within_polygon.
func (db *DB) QueryWithinPolygon(ctx context.Context, ns core.Namespace, polygon []core.Point, limit int) (iter.Seq[core.Result], error) {
	seq, err := db.engine.QueryWithinPolygon(ns, polygon, limit, time.Now())
	if err != nil {
		return nil, translateError(err)
	}
	db.opts.metrics.IncQuery("polygon")
	return seq, nil
}

// QueryTrajectory returns the first limit trajectory records for (ns, id)
// with Timestamp in [from, to], per spec §4.1 query_trajectory. A
// memory-only database has no trajectory history to query. limit == 0
// returns no records; a negative limit is rejected with
// ErrInvalidArgument.
func (db *DB) QueryTrajectory(ctx context.Context, ns core.Namespace, id core.ObjectId, from, to time.Time, limit int) ([]core.TrajectoryRecord, error) {
	if !core.ValidNamespace(ns) || !core.ValidObjectId(id) {
		return nil, ErrInvalidArgument
	}
	if limit < 0 {
		return nil, ErrInvalidArgument
	}
	if limit == 0 {
		return nil, nil
	}
	if db.store == nil {
		return nil, nil
	}
	recs, err := db.store.QueryTrajectory(ns, id, from, to, limit)
	return recs, translateError(err)
}

// InsertTrajectory appends a batch of historical trajectory records
// directly to the log without touching the Hot State, per spec §4.1
// insert_trajectory.
func (db *DB) InsertTrajectory(ctx context.Context, records []core.TrajectoryRecord) error {
	if db.store == nil {
		return fmt.Errorf("spatio: InsertTrajectory requires a durable database: %w", ErrInvalidArgument)
	}
	return translateError(db.store.InsertTrajectory(records))
}

// CountExpired reports how many live entries in ns are expired as of
// now, per spec §4.1 count_expired.
func (db *DB) CountExpired(ns core.Namespace) int {
	return db.engine.CountExpired(ns, time.Now())
}

// CleanupExpired removes every expired entry from ns, per spec §4.1
// cleanup_expired.
func (db *DB) CleanupExpired(ctx context.Context, ns core.Namespace) (int, error) {
	n, err := db.cleaner.CleanupExpired(ctx, ns, time.Now())
	if err != nil {
		return 0, translateError(err)
	}
	db.opts.metrics.IncExpired(n)
	return n, nil
}

// Stats reports per-namespace Hot State sizing, per spec §6.
func (db *DB) Stats(ctx context.Context) ([]engine.NamespaceStats, error) {
	return db.engine.Stats(ctx)
}

// Compact snapshots the current hot state, archives the prior log
// contents, and truncates the live log, per spec §9's "single growing
// log file" design note: this is how an operator bounds that growth
// without introducing segmentation. A memory-only database has nothing
// to compact.
func (db *DB) Compact(ctx context.Context) error {
	if db.store == nil {
		return nil
	}
	var all []core.CurrentLocation
	for _, ns := range db.engine.Namespaces() {
		all = append(all, db.engine.AllLocations(ns)...)
	}
	before, after, err := db.store.Compact(all)
	db.opts.logger.LogCompaction(ctx, before, after, err)
	return translateError(err)
}

func invalidField(p core.Point) string {
	switch {
	case p.X < -180 || p.X > 180:
		return "x"
	case p.Y < -90 || p.Y > 90:
		return "y"
	default:
		return "z"
	}
}

func invalidValue(p core.Point) float64 {
	switch invalidField(p) {
	case "x":
		return p.X
	case "y":
		return p.Y
	default:
		return p.Z
	}
}
