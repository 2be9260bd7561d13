// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"slices"

	"github.com/AleutianAI/probmine/pkg/mining/core"
	"github.com/AleutianAI/probmine/pkg/mining/topk"
)

// Joiner merges two utility lists that share a prefix and differ in one
// extension item. A nil result means the path is dead: pruned up front by
// RTWU or empty after the merge.
type Joiner struct {
	topK  *topk.Manager
	stats *Statistics
}

// NewJoiner wires a joiner against the shared top-K maintainer.
func NewJoiner(topK *topk.Manager, stats *Statistics) *Joiner {
	return &Joiner{topK: topK, stats: stats}
}

// Join merges a and b over their shared transaction ids.
//
// The joined RTWU is min(a.RTWU, b.RTWU); if that already falls below the
// current threshold the merge never runs. Matched transactions combine as
// utility sum, remaining min, log-probability sum; elements whose joined
// log-probability underflows LogEpsilon are dropped (a design-level prune,
// not an error). The merge walks both lists once and never terminates early
// on miss runs: a sparse stretch of tids says nothing about matches further
// on, and skipping them would silently lose valid elements.
func (j *Joiner) Join(a, b *core.UtilityList) *core.UtilityList {
	joinedRTWU := min(a.RTWU, b.RTWU)
	if joinedRTWU < j.topK.Threshold()-core.Epsilon {
		j.stats.AddRTWUPruned(1)
		return nil
	}
	if a.Empty() || b.Empty() {
		return nil
	}

	elements := j.mergeElements(a.Elements, b.Elements)
	if len(elements) == 0 {
		return nil
	}

	return core.NewUtilityList(unionSorted(a.Items, b.Items), elements, joinedRTWU)
}

// mergeElements is the two-pointer merge over tid-sorted element slices.
func (j *Joiner) mergeElements(ea, eb []core.Element) []core.Element {
	result := make([]core.Element, 0, estimateJoinCapacity(len(ea), len(eb)))

	i, k := 0, 0
	for i < len(ea) && k < len(eb) {
		switch {
		case ea[i].TID == eb[k].TID:
			logProb := ea[i].LogProbability + eb[k].LogProbability
			if logProb > core.LogEpsilon {
				result = append(result, core.Element{
					TID:            ea[i].TID,
					Utility:        ea[i].Utility + eb[k].Utility,
					Remaining:      min(ea[i].Remaining, eb[k].Remaining),
					LogProbability: logProb,
				})
			}
			i++
			k++
		case ea[i].TID < eb[k].TID:
			i++
		default:
			k++
		}
	}

	// Give back over-allocated capacity when the estimate was far off.
	if len(result) > 0 && len(result) <= cap(result)/3 {
		result = slices.Clip(slices.Clone(result))
	}
	return result
}

// estimateJoinCapacity sizes the merge buffer: joins typically retain a
// third of the smaller input, bounded to [4, 1024].
func estimateJoinCapacity(sizeA, sizeB int) int {
	estimate := min(sizeA, sizeB) / 3
	return max(4, min(estimate, 1024))
}

// unionSorted merges two ascending item slices into a new ascending slice
// without duplicates.
func unionSorted(a, b []int) []int {
	result := make([]int, 0, len(a)+len(b))
	i, k := 0, 0
	for i < len(a) && k < len(b) {
		switch {
		case a[i] == b[k]:
			result = append(result, a[i])
			i++
			k++
		case a[i] < b[k]:
			result = append(result, a[i])
			i++
		default:
			result = append(result, b[k])
			k++
		}
	}
	result = append(result, a[i:]...)
	result = append(result, b[k:]...)
	return result
}
