package spatio

import "time"

// DBBuilder is a fluent alternative to passing Option values to Open or
// Memory directly, mirroring the original crate's builder surface
// (DBBuilder::new().with_buffer_size(...).build()).
type DBBuilder struct {
	opts []Option
}

// NewBuilder starts a fluent configuration chain.
func NewBuilder() *DBBuilder {
	return &DBBuilder{}
}

// WithBufferSize sets the cold state's in-memory buffer capacity.
func (b *DBBuilder) WithBufferSize(n int) *DBBuilder {
	b.opts = append(b.opts, WithBufferSize(n))
	return b
}

// WithSyncMode selects a full (SyncAll) or data-only (SyncData) fsync.
func (b *DBBuilder) WithSyncMode(mode SyncMode) *DBBuilder {
	b.opts = append(b.opts, WithSyncMode(mode))
	return b
}

// WithSyncBatchSize sets how many flushes accumulate between syncs.
func (b *DBBuilder) WithSyncBatchSize(n int) *DBBuilder {
	b.opts = append(b.opts, WithSyncBatchSize(n))
	return b
}

// WithDefaultTTL sets the TTL applied when Upsert doesn't specify one.
func (b *DBBuilder) WithDefaultTTL(ttl time.Duration) *DBBuilder {
	b.opts = append(b.opts, WithDefaultTTL(ttl))
	return b
}

// WithTimeIndex enables the optional secondary time index.
func (b *DBBuilder) WithTimeIndex(enabled bool) *DBBuilder {
	b.opts = append(b.opts, WithTimeIndex(enabled))
	return b
}

// WithLogger installs a structured logger.
func (b *DBBuilder) WithLogger(l *Logger) *DBBuilder {
	b.opts = append(b.opts, WithLogger(l))
	return b
}

// WithMetricsCollector installs a metrics sink.
func (b *DBBuilder) WithMetricsCollector(m MetricsCollector) *DBBuilder {
	b.opts = append(b.opts, WithMetricsCollector(m))
	return b
}

// WithCleanupRateLimit bounds CleanupExpired's sweep rate.
func (b *DBBuilder) WithCleanupRateLimit(ratePerSecond float64, burst int) *DBBuilder {
	b.opts = append(b.opts, WithCleanupRateLimit(ratePerSecond, burst))
	return b
}

// Open builds the accumulated options and opens a durable database at
// dir.
func (b *DBBuilder) Open(dir string) (*DB, error) {
	return Open(dir, b.opts...)
}

// Memory builds the accumulated options and opens an in-memory database.
func (b *DBBuilder) Memory() *DB {
	return Memory(b.opts...)
}
