package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/spatio/core"
)

// NamespaceStats reports the Hot State size for one namespace.
type NamespaceStats struct {
	Namespace    core.Namespace
	LiveObjects  int
	TreeEntries  int
	PendingCompact int
}

// Stats reports per-namespace sizing, per spec §6 "stats" external
// interface. Namespaces are fanned out across goroutines via errgroup so
// a database with many namespaces doesn't serialize on one rwlock at a
// time; each namespace's own lock still bounds that goroutine's work.
func (e *Engine) Stats(ctx context.Context) ([]NamespaceStats, error) {
	namespaces := e.Namespaces()
	out := make([]NamespaceStats, len(namespaces))

	g, ctx := errgroup.WithContext(ctx)
	for i, ns := range namespaces {
		i, ns := i, ns
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s := e.namespace(ns)
			s.mu.RLock()
			defer s.mu.RUnlock()
			out[i] = NamespaceStats{
				Namespace:      ns,
				LiveObjects:    len(s.objs),
				TreeEntries:    s.tree.Len(),
				PendingCompact: int(s.tombstones.GetCardinality()),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
