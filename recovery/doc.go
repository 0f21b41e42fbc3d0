// Package recovery rebuilds Spatio's Hot State from Cold State at
// startup, per spec §4.4: load the most recent snapshot (if any), then
// replay the log's records in order on top of it, then bulk-load each
// namespace's spatial index from the resulting current-location set.
package recovery
