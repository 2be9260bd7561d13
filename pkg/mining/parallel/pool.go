// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parallel provides the fork/merge range scheduler that drives
// prefix and extension mining across CPU workers.
//
// A task owns a contiguous index range [lo, hi). Ranges above the
// granularity split at the midpoint: the left half runs on a fresh
// goroutine when a worker token is available, otherwise inline (that keeps
// total concurrency bounded and degrades gracefully to sequential under
// load). The Go runtime's scheduler distributes the spawned halves across
// threads, which gives the work-stealing behaviour the algorithm relies on
// for load balancing.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// poolKeyType marks contexts whose work is already running inside a pool.
type poolKeyType struct{}

var poolKey poolKeyType

// InPool reports whether ctx belongs to a task already running under a
// Pool. Nested parallelism (extension-search tasks) is only worthwhile when
// the caller is a pool worker; otherwise the split overhead is pure loss.
func InPool(ctx context.Context) bool {
	return ctx.Value(poolKey) != nil
}

// RangeFunc processes the half-open index range [lo, hi) sequentially.
type RangeFunc func(ctx context.Context, lo, hi int)

// SkipFunc is consulted at every task root before splitting or processing.
// Returning true discards the whole range. The extension-search driver uses
// this for bulk-branch pruning: one threshold comparison can retire an
// entire subtree of tasks.
type SkipFunc func(lo, hi int) bool

// Pool is a bounded fork/merge executor.
//
// Thread Safety: Safe for concurrent use; ForkJoin may be called from
// multiple goroutines, including from inside a running task.
type Pool struct {
	workers int
	sem     *Semaphore

	tasksSubmitted atomic.Int64
	tasksCompleted atomic.Int64
}

// NewPool creates a pool with the given worker count. Zero or negative
// means runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		workers: workers,
		// One token is implicitly held by the calling goroutine, so the
		// semaphore hands out workers-1 additional slots.
		sem: NewSemaphore(max(workers-1, 1)),
	}
}

// Parallelism returns the configured worker count.
func (p *Pool) Parallelism() int {
	return p.workers
}

// TasksSubmitted returns the number of tasks created: one per ForkJoin root
// plus two per split.
func (p *Pool) TasksSubmitted() int64 {
	return p.tasksSubmitted.Load()
}

// TasksCompleted returns the number of leaf or skipped tasks finished.
func (p *Pool) TasksCompleted() int64 {
	return p.tasksCompleted.Load()
}

// ForkJoin runs leaf over [lo, hi) with fork/merge decomposition and waits
// for completion.
//
// Inputs:
//   - ctx: Cancellation signal; observed at every task boundary.
//   - lo, hi: The index range to cover.
//   - granularity: Ranges at or below this size run sequentially.
//   - skip: Optional bulk prune consulted at each task root. May be nil.
//   - leaf: The sequential worker for bottomed-out ranges.
//
// Outputs:
//   - error: The first worker panic, recovered and wrapped; nil otherwise.
//     Work already committed (e.g. top-K inserts) stays valid either way.
func (p *Pool) ForkJoin(ctx context.Context, lo, hi, granularity int, skip SkipFunc, leaf RangeFunc) error {
	if lo >= hi {
		return nil
	}
	if granularity < 1 {
		granularity = 1
	}
	ctx = context.WithValue(ctx, poolKey, p)
	p.tasksSubmitted.Add(1)

	var panicOnce sync.Once
	var panicErr error
	capture := func(r any, stack []byte) {
		panicOnce.Do(func() {
			panicErr = fmt.Errorf("parallel worker panic: %v\n%s", r, stack)
		})
	}

	p.run(ctx, lo, hi, granularity, skip, leaf, capture)
	return panicErr
}

func (p *Pool) run(ctx context.Context, lo, hi, granularity int, skip SkipFunc, leaf RangeFunc, capture func(any, []byte)) {
	if ctx.Err() != nil {
		return
	}
	if skip != nil && skip(lo, hi) {
		p.tasksCompleted.Add(1)
		return
	}
	if hi-lo <= granularity {
		// Recover at the leaf boundary: a panicking leaf kills only its own
		// range while every split above still joins cleanly.
		func() {
			defer func() {
				if r := recover(); r != nil {
					capture(r, debug.Stack())
				}
			}()
			leaf(ctx, lo, hi)
		}()
		p.tasksCompleted.Add(1)
		return
	}

	mid := lo + (hi-lo)/2
	p.tasksSubmitted.Add(2)

	if p.workers > 1 && p.sem.TryAcquire() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.sem.Release()
			defer func() {
				if r := recover(); r != nil {
					capture(r, debug.Stack())
				}
			}()
			p.run(ctx, lo, mid, granularity, skip, leaf, capture)
		}()
		p.run(ctx, mid, hi, granularity, skip, leaf, capture)
		wg.Wait()
		return
	}

	// No worker slot free: compute both halves on this goroutine.
	p.run(ctx, lo, mid, granularity, skip, leaf, capture)
	p.run(ctx, mid, hi, granularity, skip, leaf, capture)
}
