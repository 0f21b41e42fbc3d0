// Package spatio provides an embedded spatio-temporal database for Go.
//
// Spatio tracks the current location of moving objects (the hot state)
// and their full trajectory history (the cold state) behind a single
// embedded handle, with no external server process.
//
// # Quick Start
//
//	db, _ := spatio.Open("./data", spatio.WithBufferSize(1024))
//	defer db.Close()
//
//	db.Upsert(ctx, "fleet", "truck-1", core.Point{X: -122.42, Y: 37.77, Z: 12}, nil, 0)
//
//	seq, _ := db.QueryRadius(ctx, "fleet", core.Point{X: -122.42, Y: 37.77, Z: 0}, 5000, 10)
//	for r := range seq {
//	    fmt.Println(r.ObjectId, r.Distance)
//	}
//
// # Durability Model
//
// Every Upsert and Delete is appended to a length-prefixed, CRC32-checked
// log before the in-memory hot state is updated. WithSyncBatchSize sets
// how many appends accumulate between syncs, and SyncMode chooses
// whether each sync is a full fsync or a data-only sync. A bounded
// in-memory buffer keeps the most recently appended records for
// trajectory reads. On Open, the snapshot written by the last Compact (if
// any) is loaded, the log is replayed from the start on top of it, and
// the hot state (current locations plus the spatial index) is rebuilt;
// a torn write at the tail
// from an unclean shutdown is detected by a failing length/CRC check and
// the tail is truncated rather than surfaced as an error.
//
// # Key Features
//
//   - R*-tree spatial index over 3D points, with exact best-first
//     k-nearest and radius/bounding-box/cylinder/sphere/polygon range
//     queries, plus anchor-relative variants (QueryRadiusNear, KNNNear, ...)
//   - Index traversal always measures by haversine plus altitude delta;
//     Vincenty geodesic, rhumb line, and planar Euclidean remain available
//     for explicit point-to-point distance.DistanceBetween calls
//   - Append-only trajectory log with CRC-checked framing and
//     crash-truncation recovery
//   - Per-namespace concurrency: independent rwlocks so one namespace's
//     writers never block another's readers
//   - TTL-based expiry of current locations without a background thread
package spatio
