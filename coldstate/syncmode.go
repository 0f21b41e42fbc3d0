package coldstate

// SyncMode selects how thorough the log's periodic sync is, per spec §6.
// It is orthogonal to the batch size that decides how often a sync
// happens at all.
type SyncMode int

const (
	// SyncAll fsyncs both file data and metadata.
	SyncAll SyncMode = iota
	// SyncData syncs only file data where the platform supports it
	// (fdatasync), falling back to a full sync otherwise.
	SyncData
)
