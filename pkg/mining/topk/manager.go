// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package topk maintains the lock-free set of the K best itemsets seen so
// far and publishes the rolling acceptance threshold the pruning rules read.
//
// The maintainer is the only shared-mutable structure on the mining hot
// path. Writers race through compare-and-swap on individual slots of a
// K-sized array; readers of the threshold pay a single atomic load.
package topk

import (
	"math"
	"slices"
	"sync/atomic"

	"github.com/AleutianAI/probmine/pkg/mining/core"
)

// Manager holds up to k itemsets and a monotone non-decreasing threshold.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Successful updates are
// linearizable per slot (CAS); the threshold may briefly lag a concurrent
// replacement but never decreases.
type Manager struct {
	k     int
	slots []atomic.Pointer[core.Itemset]
	size  atomic.Int32

	// threshold stores math.Float64bits of the current k-th best expected
	// utility, 0 while fewer than k entries are resident. Updated with a
	// CAS-max loop so racing recomputations cannot publish a stale, lower
	// value.
	threshold atomic.Uint64

	// seq issues insertion sequence numbers for the final tie-break.
	seq atomic.Uint64

	casRetries        atomic.Int64
	successfulUpdates atomic.Int64
	failedUpdates     atomic.Int64
}

// NewManager creates a maintainer with capacity k. Panics if k <= 0; the
// engine validates k before construction.
func NewManager(k int) *Manager {
	if k <= 0 {
		panic("topk: capacity must be positive")
	}
	return &Manager{
		k:     k,
		slots: make([]atomic.Pointer[core.Itemset], k),
	}
}

// Threshold returns the current acceptance threshold.
func (m *Manager) Threshold() float64 {
	return math.Float64frombits(m.threshold.Load())
}

// Size returns the number of resident entries.
func (m *Manager) Size() int {
	return int(m.size.Load())
}

// TryAdd offers an itemset to the top-K.
//
// # Description
//
// Runs the three insertion cases in order: fill an empty slot, update a
// resident duplicate (only when the new expected utility is strictly higher
// by more than Epsilon, keeping the max of both probabilities), or replace
// the weakest resident entry once the array is full. The empty-slot scan
// runs before duplicate detection; a duplicate may therefore briefly occupy
// two slots while the array is filling, which later inserts correct. The
// duplicate-replace path gives up after one failed CAS because the loser's
// information is already subsumed by whatever won the race.
//
// # Inputs
//
//   - items: Member item ids. Copied; callers may reuse the slice.
//   - expectedUtility: The candidate's expected utility.
//   - probability: The candidate's existential probability.
//   - support: Number of transactions containing the itemset.
//
// # Outputs
//
//   - bool: True if the candidate became (or updated) a resident entry.
func (m *Manager) TryAdd(items []int, expectedUtility, probability float64, support int) bool {
	// Fast reject against the published threshold.
	if expectedUtility < m.Threshold()-core.Epsilon {
		m.failedUpdates.Add(1)
		return false
	}

	candidate := core.NewItemset(items, expectedUtility, probability, support)

	// Case 1: fill an empty slot.
	for i := range m.slots {
		if m.slots[i].Load() != nil {
			continue
		}
		entry := candidate
		entry.Seq = m.seq.Add(1)
		if m.slots[i].CompareAndSwap(nil, &entry) {
			m.size.Add(1)
			m.successfulUpdates.Add(1)
			m.updateThreshold()
			return true
		}
		// Another thread claimed the slot between the load and the CAS.
		m.casRetries.Add(1)
	}

	// Case 2: update a resident duplicate.
	for i := range m.slots {
		existing := m.slots[i].Load()
		if existing == nil || !existing.SameItems(candidate) {
			continue
		}
		if expectedUtility <= existing.ExpectedUtility+core.Epsilon {
			m.failedUpdates.Add(1)
			return false
		}
		updated := core.NewItemset(items, expectedUtility,
			math.Max(existing.Probability, probability), support)
		updated.Seq = m.seq.Add(1)
		if m.slots[i].CompareAndSwap(existing, &updated) {
			m.successfulUpdates.Add(1)
			m.updateThreshold()
			return true
		}
		// Lost the race; the winner holds an equal-or-better entry.
		m.casRetries.Add(1)
		m.failedUpdates.Add(1)
		return false
	}

	// Case 3: replace the weakest entry.
	if int(m.size.Load()) >= m.k {
		return m.tryReplaceWeakest(candidate)
	}

	m.failedUpdates.Add(1)
	return false
}

// tryReplaceWeakest retries the find-minimum-and-swap cycle until it wins,
// the candidate stops qualifying, or the retry budget is spent.
func (m *Manager) tryReplaceWeakest(candidate core.Itemset) bool {
	retries := min(m.k, core.MaxCASRetries)
	for attempt := 0; attempt < retries; attempt++ {
		weakestIdx := -1
		var weakest *core.Itemset
		for i := range m.slots {
			entry := m.slots[i].Load()
			if entry == nil {
				continue
			}
			if weakest == nil || entry.ExpectedUtility < weakest.ExpectedUtility {
				weakest = entry
				weakestIdx = i
			}
		}
		if weakest == nil || candidate.ExpectedUtility <= weakest.ExpectedUtility+core.Epsilon {
			m.failedUpdates.Add(1)
			return false
		}
		entry := candidate
		entry.Seq = m.seq.Add(1)
		if m.slots[weakestIdx].CompareAndSwap(weakest, &entry) {
			m.successfulUpdates.Add(1)
			m.updateThreshold()
			return true
		}
		m.casRetries.Add(1)
	}
	m.failedUpdates.Add(1)
	return false
}

// updateThreshold recomputes the minimum resident expected utility and
// publishes it once the array holds k entries. The CAS-max store keeps the
// threshold monotone even when recomputations race.
func (m *Manager) updateThreshold() {
	if int(m.size.Load()) < m.k {
		return
	}
	minEU := math.Inf(1)
	count := 0
	for i := range m.slots {
		entry := m.slots[i].Load()
		if entry == nil {
			continue
		}
		count++
		if entry.ExpectedUtility < minEU {
			minEU = entry.ExpectedUtility
		}
	}
	if count < m.k {
		return
	}
	for {
		cur := m.threshold.Load()
		if minEU <= math.Float64frombits(cur) {
			return
		}
		if m.threshold.CompareAndSwap(cur, math.Float64bits(minEU)) {
			return
		}
	}
}

// TopK snapshots the resident entries sorted by the result comparator:
// expected utility descending, probability descending, size ascending,
// insertion sequence ascending. The snapshot is not linearizable with
// in-flight adds but never contains torn entries; each slot read is a
// single pointer load of an immutable itemset.
func (m *Manager) TopK() []core.Itemset {
	result := make([]core.Itemset, 0, m.k)
	for i := range m.slots {
		if entry := m.slots[i].Load(); entry != nil {
			result = append(result, *entry)
		}
	}
	slices.SortFunc(result, func(a, b core.Itemset) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	return result
}

// CASRetries returns the number of failed compare-and-swap attempts.
func (m *Manager) CASRetries() int64 {
	return m.casRetries.Load()
}

// SuccessfulUpdates returns the number of committed inserts and updates.
func (m *Manager) SuccessfulUpdates() int64 {
	return m.successfulUpdates.Load()
}

// FailedUpdates returns the number of offers that did not change the set.
func (m *Manager) FailedUpdates() int64 {
	return m.failedUpdates.Load()
}

// CASEfficiency is successfulUpdates / (successfulUpdates + casRetries),
// 1.0 when nothing has been attempted.
func (m *Manager) CASEfficiency() float64 {
	successful := m.successfulUpdates.Load()
	total := successful + m.casRetries.Load()
	if total == 0 {
		return 1.0
	}
	return float64(successful) / float64(total)
}
