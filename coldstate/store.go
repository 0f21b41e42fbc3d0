package coldstate

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/spatio/core"
)

// timeIndexKey scopes the optional secondary time index by namespace and
// object, per spec §4.2.
type timeIndexKey struct {
	ns core.Namespace
	id core.ObjectId
}

type timeIndexEntry struct {
	ts     int64 // UnixNano, index sort key
	offset int64 // log frame end offset, for diagnostics/debugging only
}

// Store is Spatio's Cold State: the append-only log, its in-memory read
// buffer, the directory's exclusive lock, and (optionally) a secondary
// time index of record timestamps per object, per spec §4.2. The index is
// filled on every Append and cleared by Compact; QueryTrajectory does not
// read it.
type Store struct {
	mu        sync.Mutex
	log       *Log
	buf       *Buffer
	lock      *FileLock
	dir       string
	timeIndex bool
	index     map[timeIndexKey][]timeIndexEntry
}

// Options configures Open.
type Options struct {
	BufferSize    int
	SyncMode      SyncMode
	TimeIndex     bool
	SyncBatchSize int
}

// Open opens (or creates) the cold state at dir: acquires the directory
// lock, opens the log, and primes the read buffer empty. Open does not
// replay the log into the buffer; the buffer only ever holds records
// appended through this Store.
func Open(dir string, opts Options) (*Store, error) {
	lock, err := AcquireFileLock(filepath.Join(dir, "LOCK"))
	if err != nil {
		return nil, err
	}

	l, err := OpenLog(filepath.Join(dir, "log"), opts.SyncMode, opts.SyncBatchSize)
	if err != nil {
		lock.Release()
		return nil, err
	}

	s := &Store{
		log:       l,
		buf:       NewBuffer(opts.BufferSize),
		lock:      lock,
		dir:       dir,
		timeIndex: opts.TimeIndex,
	}
	if opts.TimeIndex {
		s.index = make(map[timeIndexKey][]timeIndexEntry)
	}
	return s, nil
}

// LogPath returns the path of the underlying log file.
func (s *Store) LogPath() string { return filepath.Join(s.dir, "log") }

// SnapshotPath returns the path Compact writes its hot-state snapshot to.
func (s *Store) SnapshotPath() string { return filepath.Join(s.dir, "snapshot") }

// ArchivePath returns the path Compact archives the prior log's contents
// to.
func (s *Store) ArchivePath() string { return filepath.Join(s.dir, "archive.zst") }

// Append durably records rec: written to the log, then (once the log
// accepted it) mirrored into the read buffer and, if enabled, the time
// index.
func (s *Store) Append(rec LogRecord) (offset int64, err error) {
	offset, err = s.log.Append(rec)
	if err != nil {
		// Per spec §9's resolved open question, a failed buffer/index
		// write never rolls back an already-appended log record: the
		// log is the source of truth and recovery will see it on
		// replay regardless of what happens to these in-memory mirrors.
		// Here the log append itself failed, so there is nothing to
		// roll back.
		return 0, err
	}

	s.buf.Push(rec)

	if s.timeIndex {
		s.mu.Lock()
		key := timeIndexKey{ns: rec.Namespace, id: rec.ObjectId}
		s.index[key] = append(s.index[key], timeIndexEntry{ts: rec.Timestamp.UnixNano(), offset: offset})
		s.mu.Unlock()
	}

	return offset, nil
}

// WaitFor blocks until offset is durably synced, per the configured sync
// mode.
func (s *Store) WaitFor(offset int64) error { return s.log.WaitFor(offset) }

// Flush forces an fsync of everything appended so far.
func (s *Store) Flush() error { return s.log.Sync() }

// Close releases the directory lock and closes the log.
func (s *Store) Close() error {
	logErr := s.log.Close()
	lockErr := s.lock.Release()
	if logErr != nil {
		return logErr
	}
	return lockErr
}

// QueryTrajectory returns up to limit records for (ns, id) with Timestamp
// in [from, to], ascending, per spec §4.1 query_trajectory. The read
// buffer is checked first; if the time index reports matches older than
// anything currently buffered, the full log is scanned as a fallback,
// per spec §4.2's "read path: scan buffer then log". limit <= 0 returns
// every matching record.
func (s *Store) QueryTrajectory(ns core.Namespace, id core.ObjectId, from, to time.Time, limit int) ([]core.TrajectoryRecord, error) {
	var out []core.TrajectoryRecord
	seen := make(map[core.RecordID]bool)

	for _, rec := range s.buf.Snapshot() {
		if rec.Namespace != ns || rec.ObjectId != id || rec.Op != "upsert" {
			continue
		}
		if rec.Timestamp.Before(from) || rec.Timestamp.After(to) {
			continue
		}
		out = append(out, toTrajectoryRecord(rec))
		seen[rec.RecordID] = true
	}

	if s.buf.Evicted() > 0 {
		all, _, err := Replay(s.LogPath())
		if err != nil {
			return nil, err
		}
		for _, rec := range all {
			if rec.Namespace != ns || rec.ObjectId != id || rec.Op != "upsert" {
				continue
			}
			if rec.Timestamp.Before(from) || rec.Timestamp.After(to) {
				continue
			}
			if seen[rec.RecordID] {
				continue
			}
			out = append(out, toTrajectoryRecord(rec))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InsertTrajectory appends a batch of historical records directly to the
// log without touching the Hot State, per spec §4.1 insert_trajectory
// (backfill of trajectory history that was never a "current location").
func (s *Store) InsertTrajectory(records []core.TrajectoryRecord) error {
	for _, r := range records {
		rec := EncodeUpsert(r.Namespace, r.ObjectId, r.Point, r.Metadata, 0, r.Timestamp)
		if _, err := s.Append(rec); err != nil {
			return err
		}
	}
	return s.Flush()
}

func toTrajectoryRecord(rec LogRecord) core.TrajectoryRecord {
	return core.TrajectoryRecord{
		RecordID:  rec.RecordID,
		Namespace: rec.Namespace,
		ObjectId:  rec.ObjectId,
		Point:     rec.Point,
		Metadata:  rec.Metadata,
		Timestamp: rec.Timestamp,
	}
}

// Compact snapshots the current hot state, archives the existing log's
// contents, and truncates the live log back to empty. locations is
// supplied by the caller (the top-level database, which owns the Hot
// State); Store has no view of it on its own.
func (s *Store) Compact(locations []core.CurrentLocation) (bytesBefore, bytesAfter int64, err error) {
	if err := s.Flush(); err != nil {
		return 0, 0, err
	}

	offset := s.log.Size()
	if err := WriteSnapshot(s.SnapshotPath(), offset, locations); err != nil {
		return 0, 0, err
	}

	bytesBefore, bytesAfter, err = ArchiveLog(s.LogPath(), s.ArchivePath())
	if err != nil {
		return 0, 0, err
	}

	if err := s.log.Truncate(); err != nil {
		return bytesBefore, bytesAfter, err
	}

	s.mu.Lock()
	if s.timeIndex {
		s.index = make(map[timeIndexKey][]timeIndexEntry)
	}
	s.mu.Unlock()

	return bytesBefore, bytesAfter, nil
}
