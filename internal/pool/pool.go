// Package pool implements component D: a task-scoped worker pool gated by a
// per-pass semaphore, built on golang.org/x/sync (semaphore.Weighted,
// errgroup), the way randalmurphal-orc uses x/sync across its own
// concurrent fan-out helpers.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs submitted jobs on up to `workers` goroutines while a semaphore
// capped at 2*workers gates submission, so the backlog (and therefore the
// walker feeding it) never outruns the pool by more than double its worker
// count (spec §4.C "Dispatch", §4.D, §5 backpressure).
type Pool struct {
	group *errgroup.Group
	sem   *semaphore.Weighted
	ctx   context.Context
}

// New creates a fresh pool for one sync pass. Workers is clamped to at
// least 1; the semaphore capacity is fixed at 2*workers per spec §4.C/§4.D.
func New(ctx context.Context, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	return &Pool{
		group: group,
		sem:   semaphore.NewWeighted(int64(2 * workers)),
		ctx:   gctx,
	}
}

// Submit acquires a semaphore permit (blocking if the backlog is full,
// applying backpressure to the caller) and runs fn on a pool goroutine. The
// permit is released when fn returns, regardless of outcome. Submit itself
// never returns fn's error; callers collect results via their own channel
// or callback, matching spec §4.C's "counters incremented only on success"
// being the caller's responsibility, not the pool's.
func (p *Pool) Submit(fn func()) error {
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		return err
	}
	p.group.Go(func() error {
		defer p.sem.Release(1)
		fn()
		return nil
	})
	return nil
}

// Wait blocks until every submitted job has completed (spec §4.D: "awaited
// to quiescence before the pass reports completion").
func (p *Pool) Wait() error {
	return p.group.Wait()
}
