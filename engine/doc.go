// Package engine implements Spatio's Hot State: a per-namespace
// current-location map paired with an R*-tree spatial index, plus every
// query operation defined in spec §4.1. The engine holds no durability
// logic of its own — callers (the top-level spatio package) are
// responsible for appending to the cold-state log before calling Upsert
// or Delete, and for replaying that log through this package at startup.
package engine
