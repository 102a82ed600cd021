package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stocksense/internal/logger"
	"github.com/seenimoa/stocksense/internal/metrics"
)

// Tally counts items dropped by best-effort enrichment during one run.
type Tally struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add records n drops for domain/stage.
func (t *Tally) Add(domain string, stage Stage, n int) {
	if t == nil || n == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[domain+"."+string(stage)] += n
}

// Get returns the drops recorded for domain/stage.
func (t *Tally) Get(domain string, stage Stage) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[domain+"."+string(stage)]
}

// Total returns every drop recorded.
func (t *Tally) Total() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

type tallyKey struct{}

// WithTally attaches t to ctx so Each can report drops to it.
func WithTally(ctx context.Context, t *Tally) context.Context {
	return context.WithValue(ctx, tallyKey{}, t)
}

// TallyFrom returns the tally attached to ctx, or nil.
func TallyFrom(ctx context.Context) *Tally {
	t, _ := ctx.Value(tallyKey{}).(*Tally)
	return t
}

// EachOptions labels a fan-out for logs and metrics.
type EachOptions struct {
	Domain string
	Stage  Stage
	Limit  int
}

// Each applies fn to every item with at most opts.Limit calls in flight.
// Items whose fn fails are omitted: the failure is logged, counted in the
// enrichment_dropped metric and in the context's Tally. Survivors keep
// their input order.
func Each[T any](ctx context.Context, opts EachOptions, items []T, fn func(ctx context.Context, item T) (T, error)) ([]T, int) {
	if len(items) == 0 {
		return items, 0
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	type slot struct {
		val T
		ok  bool
	}
	results := make([]slot, len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			v, err := fn(ctx, item)
			if err != nil {
				logger.For(opts.Domain).WithField("stage", opts.Stage).Warnf("dropping item %d: %v", i, err)
				return nil
			}
			results[i] = slot{val: v, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]T, 0, len(items))
	for _, r := range results {
		if r.ok {
			kept = append(kept, r.val)
		}
	}
	dropped := len(items) - len(kept)
	if dropped > 0 {
		metrics.EnrichmentDropped.WithLabelValues(opts.Domain, string(opts.Stage)).Add(float64(dropped))
		TallyFrom(ctx).Add(opts.Domain, opts.Stage, dropped)
	}
	return kept, dropped
}

// Keep returns the items for which keep reports true, preserving order.
func Keep[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
