package spatio

import (
	"time"

	"golang.org/x/time/rate"
)

// SyncMode controls what an fsync commits once sync_batch_size flushes
// have accumulated, per spec §6's configuration table. It is independent
// of sync_batch_size: the batch size says how often a sync happens, the
// mode says how thorough that sync is.
type SyncMode int

const (
	// SyncAll fsyncs both file data and metadata (os.File.Sync). This is
	// the default: strongest durability.
	SyncAll SyncMode = iota

	// SyncData syncs only file data (fdatasync where the platform
	// supports it, falling back to a full sync otherwise). Skips the
	// inode metadata flush a plain append rarely changes meaningfully,
	// trading a little durability for throughput.
	SyncData
)

func (m SyncMode) String() string {
	switch m {
	case SyncData:
		return "sync-data"
	default:
		return "sync-all"
	}
}

// options holds the resolved configuration built up by Option values.
// Unexported: callers only ever see the functional options below.
type options struct {
	bufferSize    int
	syncMode      SyncMode
	syncBatchSize int
	defaultTTL    time.Duration
	timeIndex     bool
	logger        *Logger
	metrics       MetricsCollector
	cleanupLimit  *rate.Limiter
}

func defaultOptions() *options {
	return &options{
		bufferSize:    512,
		syncMode:      SyncAll,
		syncBatchSize: 1,
		defaultTTL:    0,
		timeIndex:     false,
		logger:        NoopLogger(),
		metrics:       noopMetricsCollector{},
	}
}

// Option configures a database opened with Open or Memory.
type Option func(*options)

// WithBufferSize sets the capacity of the cold state's in-memory buffer
// (the most recently appended log records, kept for trajectory reads; a
// full buffer evicts its oldest record), per spec §4.2. n <= 0 is
// ignored.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithSyncMode selects whether the cold state log's periodic sync is a
// full fsync (SyncAll) or a data-only sync (SyncData), per spec §6.
func WithSyncMode(mode SyncMode) Option {
	return func(o *options) {
		o.syncMode = mode
	}
}

// WithSyncBatchSize sets how many flushes accumulate between syncs,
// per spec §6 ("Number of flushes between syncs", default 1). n <= 0 is
// ignored.
func WithSyncBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.syncBatchSize = n
		}
	}
}

// WithDefaultTTL sets the time-to-live applied to an Upsert that does not
// specify its own TTL. Zero means locations never expire by default, per
// spec §3 invariant 6.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.defaultTTL = ttl
	}
}

// WithTimeIndex enables the optional secondary time index over trajectory
// records, per spec §4.2. The index is filled on every append;
// QueryTrajectory does not consult it.
func WithTimeIndex(enabled bool) Option {
	return func(o *options) {
		o.timeIndex = enabled
	}
}

// WithLogger installs a structured logger. A nil logger is ignored.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector installs a metrics sink. A nil collector is
// ignored.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithCleanupRateLimit bounds how often CleanupExpired is allowed to run
// a sweep. One limiter is shared by all namespaces, smoothing out a
// caller that ticks it on a tight loop across many namespaces. ratePerSecond <= 0 disables the
// limit (the default).
func WithCleanupRateLimit(ratePerSecond float64, burst int) Option {
	return func(o *options) {
		if ratePerSecond > 0 {
			o.cleanupLimit = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
		}
	}
}
