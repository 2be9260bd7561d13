// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the mining kernel: utility-list construction
// with the suffix-sum optimisation, the linear-merge join, multi-strategy
// pruning, and the depth-first search that enumerates itemset extensions
// against the rolling top-K threshold.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/probmine/pkg/mining/core"
	"github.com/AleutianAI/probmine/pkg/mining/parallel"
	"github.com/AleutianAI/probmine/pkg/mining/topk"
)

// ProgressFunc receives periodic progress during a run: top-level prefixes
// finished, total prefixes, and the current threshold.
type ProgressFunc func(done, total int, threshold float64)

// Miner owns one mining run: immutable inputs, the shared top-K maintainer
// and statistics, and the strategy objects every task receives by
// reference. A Miner is built per run and discarded afterwards; nothing
// persists between runs.
type Miner struct {
	profits map[int]float64
	k       int
	minProb float64

	topK    *topk.Manager
	stats   *Statistics
	pruner  *Pruner
	joiner  *Joiner
	builder *Builder
	pool    *parallel.Pool
	logger  *slog.Logger

	itemToRank map[int]int
	itemRTWU   map[int]float64

	peakMemory atomic.Uint64
	prefixDone atomic.Int64
	progress   ProgressFunc

	snapshot Snapshot
}

// Option configures a Miner.
type Option func(*minerConfig)

type minerConfig struct {
	workers         int
	adaptivePruning bool
	logger          *slog.Logger
	progress        ProgressFunc
}

// WithWorkers overrides the worker count (default runtime.NumCPU()).
func WithWorkers(n int) Option {
	return func(c *minerConfig) { c.workers = n }
}

// WithAdaptivePruning enables the heuristic RTWU factor adaptation.
func WithAdaptivePruning(enabled bool) Option {
	return func(c *minerConfig) { c.adaptivePruning = enabled }
}

// WithLogger sets the run logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(c *minerConfig) { c.logger = logger }
}

// WithProgress registers a progress callback. It may be invoked from worker
// goroutines and must be safe for concurrent use.
func WithProgress(fn ProgressFunc) Option {
	return func(c *minerConfig) { c.progress = fn }
}

// NewMiner validates the run parameters and assembles the mining context.
func NewMiner(profits map[int]float64, k int, minProb float64, opts ...Option) (*Miner, error) {
	if len(profits) == 0 {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, core.ErrEmptyProfitTable)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", core.ErrInvalidInput, k)
	}
	if minProb < 0 || minProb > 1 {
		return nil, fmt.Errorf("%w: minProb must be in [0,1], got %g", core.ErrInvalidInput, minProb)
	}

	cfg := minerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	topK := topk.NewManager(k)
	stats := &Statistics{}
	m := &Miner{
		profits:  profits,
		k:        k,
		minProb:  minProb,
		topK:     topK,
		stats:    stats,
		pruner:   NewPruner(topK, minProb, stats, cfg.adaptivePruning),
		joiner:   NewJoiner(topK, stats),
		builder:  NewBuilder(profits, minProb, stats, cfg.logger),
		pool:     parallel.NewPool(cfg.workers),
		logger:   cfg.logger,
		progress: cfg.progress,
	}

	m.logger.Info("miner initialized",
		"k", k, "min_probability", minProb, "workers", m.pool.Parallelism())
	return m, nil
}

// Parallelism returns the worker count the run will use.
func (m *Miner) Parallelism() int {
	return m.pool.Parallelism()
}

// Statistics returns the statistics block of the finished run.
func (m *Miner) Statistics() Snapshot {
	return m.snapshot
}

// Mine executes the full run and returns at most k itemsets ordered by the
// result comparator.
//
// Cancellation is observed at extension boundaries: on ctx cancellation the
// run stops descending, finalises, and returns the top-K resident at that
// point together with core.ErrCancelled.
func (m *Miner) Mine(ctx context.Context, database []core.Transaction) ([]core.Itemset, error) {
	if len(database) == 0 {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, core.ErrEmptyDatabase)
	}

	start := time.Now()
	m.logger.Info("mining started", "transactions", len(database))

	// Joins assume tid-ascending element lists; processing transactions in
	// tid order establishes that for every single-item list.
	sorted := slices.Clone(database)
	slices.SortFunc(sorted, func(a, b core.Transaction) int { return a.TID - b.TID })

	m.itemRTWU = m.builder.CalculateRTWU(sorted)
	var rankedItems []int
	m.itemToRank, rankedItems = m.builder.BuildRanking(m.itemRTWU)
	singleLists := m.builder.BuildUtilityLists(sorted, m.itemToRank, m.itemRTWU)

	// Keep only items that survived the probability filter, in rank order.
	sortedItems := make([]int, 0, len(singleLists))
	for _, item := range rankedItems {
		if _, ok := singleLists[item]; ok {
			sortedItems = append(sortedItems, item)
		}
	}

	if len(sortedItems) == 0 {
		m.logger.Warn("no items survived initialization")
		m.finalize(start, "sequential", "ok", nil)
		return nil, nil
	}
	m.logger.Info("utility lists built", "items", len(sortedItems))

	m.offerSingleItems(singleLists, sortedItems)

	mode := "sequential"
	if len(sortedItems) >= core.ParallelThreshold {
		mode = "parallel"
		err := m.pool.ForkJoin(ctx, 0, len(sortedItems), core.TaskGranularity, nil,
			func(ctx context.Context, lo, hi int) {
				for i := lo; i < hi; i++ {
					m.processPrefix(ctx, i, sortedItems, singleLists)
				}
			})
		if err != nil {
			// Accumulated top-K entries are still valid; redo the pass
			// sequentially. Duplicate offers are absorbed by the maintainer.
			m.logger.Error("parallel mining failed, falling back to sequential", "error", err)
			mode = "sequential"
			m.sequentialMining(ctx, sortedItems, singleLists)
		}
	} else {
		m.sequentialMining(ctx, sortedItems, singleLists)
	}

	results := m.topK.TopK()

	status := "ok"
	var runErr error
	if ctx.Err() != nil {
		status = "cancelled"
		runErr = fmt.Errorf("%w: %v", core.ErrCancelled, ctx.Err())
	}
	m.finalize(start, mode, status, results)

	m.logger.Info("mining completed",
		"itemsets", len(results),
		"duration_ms", m.snapshot.ExecutionTimeMs,
		"candidates", m.snapshot.CandidatesGenerated,
		"pruning_effectiveness", m.snapshot.PruningEffectiveness)
	return results, runErr
}

// offerSingleItems feeds qualifying single-item lists to the top-K before
// the extension search begins; an early threshold pays for itself across
// the whole run.
func (m *Miner) offerSingleItems(singleLists map[int]*core.UtilityList, sortedItems []int) {
	added := 0
	for _, item := range sortedItems {
		ul := singleLists[item]
		if m.pruner.QualifiesForTopK(ul.SumEU, ul.ExistProb) {
			if m.topK.TryAdd(ul.Items, ul.SumEU, ul.ExistProb, ul.Support()) {
				added++
			}
		}
	}
	m.logger.Debug("seeded top-K with single items", "added", added)
}

// sequentialMining is the plain driver used for small inputs and as the
// fallback path.
func (m *Miner) sequentialMining(ctx context.Context, sortedItems []int, singleLists map[int]*core.UtilityList) {
	for i := range sortedItems {
		if ctx.Err() != nil {
			return
		}
		m.processPrefix(ctx, i, sortedItems, singleLists)
	}
}

// processPrefix seeds the search with one top-level prefix: the single-item
// list at rank position i extended by everything ranked after it.
func (m *Miner) processPrefix(ctx context.Context, i int, sortedItems []int, singleLists map[int]*core.UtilityList) {
	if ctx.Err() != nil {
		return
	}
	item := sortedItems[i]
	prefix := singleLists[item]

	if m.pruner.ShouldPruneRTWU(m.itemRTWU[item]) {
		m.stats.AddBranchPruned(1)
		m.notePrefixDone(len(sortedItems))
		return
	}

	extensions := m.buildExtensions(sortedItems, i, singleLists)
	if len(extensions) > 0 {
		m.search(ctx, prefix, extensions)
	}
	m.notePrefixDone(len(sortedItems))
}

// buildExtensions collects the utility lists of items ranked after position
// i, dropping those whose RTWU already misses the threshold.
func (m *Miner) buildExtensions(sortedItems []int, i int, singleLists map[int]*core.UtilityList) []*core.UtilityList {
	threshold := m.topK.Threshold()
	extensions := make([]*core.UtilityList, 0, len(sortedItems)-i-1)
	for j := i + 1; j < len(sortedItems); j++ {
		ul := singleLists[sortedItems[j]]
		if ul.RTWU < threshold-core.Epsilon {
			m.stats.AddRTWUPruned(1)
			continue
		}
		extensions = append(extensions, ul)
	}
	return extensions
}

// search is the depth-first enumeration. extensions are already RTWU
// filtered against the threshold at collection time.
func (m *Miner) search(ctx context.Context, prefix *core.UtilityList, extensions []*core.UtilityList) {
	if ctx.Err() != nil || len(extensions) == 0 {
		return
	}
	if m.pruner.ShouldBulkPrune(prefix, extensions) {
		return
	}

	// Best-first: high-RTWU extensions raise the threshold early, which
	// feeds every later prune.
	slices.SortFunc(extensions, func(a, b *core.UtilityList) int {
		if a.RTWU != b.RTWU {
			if a.RTWU > b.RTWU {
				return -1
			}
			return 1
		}
		return 0
	})

	if len(extensions) >= core.ParallelThreshold && parallel.InPool(ctx) {
		m.parallelExtensionSearch(ctx, prefix, extensions)
		return
	}

	for i := range extensions {
		if ctx.Err() != nil {
			return
		}
		m.processExtension(ctx, prefix, extensions, i)
	}
}

// parallelExtensionSearch fans the extension list out as fork/merge tasks.
// The skip hook applies bulk-branch pruning at every subtree root, so a
// whole range of extensions dies on one threshold comparison.
func (m *Miner) parallelExtensionSearch(ctx context.Context, prefix *core.UtilityList, extensions []*core.UtilityList) {
	err := m.pool.ForkJoin(ctx, 0, len(extensions), core.TaskGranularity,
		func(lo, hi int) bool {
			if hi-lo <= 1 {
				return false
			}
			return m.pruner.ShouldBulkPrune(prefix, extensions[lo:hi])
		},
		func(ctx context.Context, lo, hi int) {
			for i := lo; i < hi; i++ {
				m.processExtension(ctx, prefix, extensions, i)
			}
		})
	if err != nil {
		m.logger.Error("parallel extension search failed, retrying sequentially", "error", err)
		for i := range extensions {
			m.processExtension(ctx, prefix, extensions, i)
		}
	}
}

// processExtension joins one extension onto the prefix, offers the result,
// and recurses with the surviving tail.
func (m *Miner) processExtension(ctx context.Context, prefix *core.UtilityList, extensions []*core.UtilityList, i int) {
	ext := extensions[i]
	if ext.RTWU < m.topK.Threshold()-core.Epsilon {
		m.stats.AddRTWUPruned(1)
		return
	}

	joined := m.joiner.Join(prefix, ext)
	if joined == nil || joined.Empty() {
		return
	}
	m.stats.AddUtilityListsCreated(1)
	m.stats.AddCandidatesGenerated(1)

	if m.pruner.ShouldPrune(joined) {
		return
	}
	if m.pruner.QualifiesForTopK(joined.SumEU, joined.ExistProb) {
		m.topK.TryAdd(joined.Items, joined.SumEU, joined.ExistProb, joined.Support())
	}

	if i+1 >= len(extensions) {
		return
	}
	threshold := m.topK.Threshold()
	next := make([]*core.UtilityList, 0, len(extensions)-i-1)
	for j := i + 1; j < len(extensions); j++ {
		if extensions[j].RTWU >= threshold-core.Epsilon {
			next = append(next, extensions[j])
		} else {
			m.stats.AddRTWUPruned(1)
		}
	}
	if len(next) > 0 {
		m.search(ctx, joined, next)
	}
}

// notePrefixDone advances the progress counter, sampling memory and
// reporting every ProgressInterval prefixes.
func (m *Miner) notePrefixDone(total int) {
	done := m.prefixDone.Add(1)
	if done%core.ProgressInterval != 0 && int(done) != total {
		return
	}
	m.samplePeakMemory()
	threshold := m.topK.Threshold()
	if m.progress != nil {
		m.progress(int(done), total, threshold)
	}
	m.logger.Debug("mining progress", "done", done, "total", total, "threshold", threshold)
}

// samplePeakMemory records the high-water heap mark.
func (m *Miner) samplePeakMemory() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	for {
		peak := m.peakMemory.Load()
		if ms.HeapAlloc <= peak || m.peakMemory.CompareAndSwap(peak, ms.HeapAlloc) {
			return
		}
	}
}

// finalize seals the statistics snapshot and publishes run metrics.
func (m *Miner) finalize(start time.Time, mode, status string, results []core.Itemset) {
	m.samplePeakMemory()
	elapsed := time.Since(start)

	snap := m.stats.snapshotCounters()
	snap.ExecutionTimeMs = elapsed.Milliseconds()
	snap.PeakMemoryBytes = m.peakMemory.Load()
	snap.SuccessfulUpdates = m.topK.SuccessfulUpdates()
	snap.CASRetries = m.topK.CASRetries()
	snap.CASEfficiency = m.topK.CASEfficiency()
	snap.TasksSubmitted = m.pool.TasksSubmitted()
	snap.TasksCompleted = m.pool.TasksCompleted()
	m.snapshot = snap

	observeRun(mode, status, elapsed.Seconds(), snap, len(results))
}
