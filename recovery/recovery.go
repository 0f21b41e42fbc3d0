package recovery

import (
	"github.com/hupe1980/spatio/coldstate"
	"github.com/hupe1980/spatio/core"
	"github.com/hupe1980/spatio/engine"
)

// Result summarizes one recovery pass, for logging and metrics.
type Result struct {
	RecordsReplayed int
	TruncatedTail   bool
	NamespaceCounts map[core.Namespace]int
}

// Recover rebuilds every namespace's Hot State in e from the cold state
// at logPath/snapshotPath: a snapshot (if present) seeds the starting
// current-location set, then every log record is applied in append
// order on top of it. Because Store.Compact always truncates the log to
// exactly the records written after its snapshot, the log never needs
// to be told where to skip to — replaying it in full, on top of the
// snapshot, is always correct.
func Recover(e *engine.Engine, logPath, snapshotPath string) (Result, error) {
	_, seed, err := coldstate.ReadSnapshot(snapshotPath)
	if err != nil {
		return Result{}, err
	}

	state := make(map[core.Namespace]map[core.ObjectId]core.CurrentLocation)
	for _, loc := range seed {
		ns := state[loc.Namespace]
		if ns == nil {
			ns = make(map[core.ObjectId]core.CurrentLocation)
			state[loc.Namespace] = ns
		}
		ns[loc.ObjectId] = loc
	}

	records, truncated, err := coldstate.Replay(logPath)
	if err != nil {
		return Result{}, err
	}

	for _, rec := range records {
		ns := state[rec.Namespace]
		if ns == nil {
			ns = make(map[core.ObjectId]core.CurrentLocation)
			state[rec.Namespace] = ns
		}
		switch rec.Op {
		case "upsert":
			existing, had := ns[rec.ObjectId]
			created := rec.Timestamp
			if had {
				created = existing.CreatedAt
			}
			ns[rec.ObjectId] = core.CurrentLocation{
				Namespace: rec.Namespace,
				ObjectId:  rec.ObjectId,
				Point:     rec.Point,
				Metadata:  rec.Metadata,
				CreatedAt: created,
				UpdatedAt: rec.Timestamp,
				TTL:       rec.TTL,
			}
		case "delete":
			delete(ns, rec.ObjectId)
		}
	}

	counts := make(map[core.Namespace]int, len(state))
	for ns, locations := range state {
		e.Rebuild(ns, locations)
		counts[ns] = len(locations)
	}

	return Result{
		RecordsReplayed: len(records),
		TruncatedTail:   truncated,
		NamespaceCounts: counts,
	}, nil
}
