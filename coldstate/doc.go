// Package coldstate implements Spatio's Cold State: a single, ever-
// growing append-only log of trajectory records (length-prefixed and
// CRC32-checked, per spec §4.2), a bounded in-memory read buffer over
// its most recent entries, an optional secondary time index, directory
// locking for AlreadyOpen semantics, and snapshot/archive compaction.
package coldstate
