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
	"math"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/probmine/pkg/mining/core"
	"github.com/AleutianAI/probmine/pkg/mining/topk"
)

// adaptationInterval is how often the adaptive RTWU factor is re-evaluated.
const adaptationInterval = 10 * time.Second

// Pruner applies the admissible prune rules against the rolling top-K
// threshold. Every rule is an upper-bound argument: no itemset whose true
// expected utility clears the threshold can be discarded.
//
// The optional adaptive factor tightens or relaxes the RTWU test based on
// the observed prune rate. It is a heuristic; with adaptation disabled the
// factor is exactly 1.0 and the rules are the textbook ones.
type Pruner struct {
	topK    *topk.Manager
	minProb float64
	stats   *Statistics

	adaptive   bool
	factorBits atomic.Uint64 // math.Float64bits of the adaptive factor
	lastAdapt  atomic.Int64  // unix nanos of the last factor update
}

// NewPruner wires a pruner. With adaptive false the RTWU factor stays 1.0.
func NewPruner(topK *topk.Manager, minProb float64, stats *Statistics, adaptive bool) *Pruner {
	p := &Pruner{
		topK:     topK,
		minProb:  minProb,
		stats:    stats,
		adaptive: adaptive,
	}
	p.factorBits.Store(math.Float64bits(1.0))
	return p
}

func (p *Pruner) factor() float64 {
	return math.Float64frombits(p.factorBits.Load())
}

// ShouldPruneRTWU discards a branch whose RTWU bound cannot reach the
// threshold.
func (p *Pruner) ShouldPruneRTWU(rtwu float64) bool {
	if rtwu < p.topK.Threshold()*p.factor()-core.Epsilon {
		p.stats.AddRTWUPruned(1)
		return true
	}
	return false
}

// ShouldPruneEP discards an itemset below the existential probability
// minimum.
func (p *Pruner) ShouldPruneEP(probability float64) bool {
	if probability < p.minProb-core.Epsilon {
		p.stats.AddEPPruned(1)
		p.stats.AddCandidatesPruned(1)
		return true
	}
	return false
}

// ShouldPruneUpperBound discards an itemset whose sumEU + sumRemaining
// cannot reach the threshold.
func (p *Pruner) ShouldPruneUpperBound(sumEU, sumRemaining float64) bool {
	if sumEU+sumRemaining < p.topK.Threshold()-core.Epsilon {
		p.stats.AddEUPruned(1)
		p.stats.AddCandidatesPruned(1)
		return true
	}
	return false
}

// ShouldPrune runs the per-candidate rules cheapest-first: existential
// probability, then RTWU, then the upper bound.
func (p *Pruner) ShouldPrune(ul *core.UtilityList) bool {
	if p.ShouldPruneEP(ul.ExistProb) {
		return true
	}
	if p.ShouldPruneRTWU(ul.RTWU) {
		return true
	}
	if p.ShouldPruneUpperBound(ul.SumEU, ul.SumRemaining) {
		return true
	}
	if p.adaptive {
		p.maybeAdapt()
	}
	return false
}

// QualifiesForTopK reports whether an itemset may be offered to the
// maintainer: expected utility at the threshold and probability at the
// minimum, both within epsilon.
func (p *Pruner) QualifiesForTopK(sumEU, probability float64) bool {
	return sumEU >= p.topK.Threshold()-core.Epsilon &&
		probability >= p.minProb-core.Epsilon
}

// ShouldBulkPrune retires an entire extension slice in one comparison: the
// best any join can score is min(prefix RTWU, min extension RTWU), and when
// that falls below the threshold every extension dies together.
func (p *Pruner) ShouldBulkPrune(prefix *core.UtilityList, extensions []*core.UtilityList) bool {
	if len(extensions) == 0 {
		return true
	}
	minRTWU := math.Inf(1)
	for _, ext := range extensions {
		if ext.RTWU < minRTWU {
			minRTWU = ext.RTWU
		}
	}
	if min(prefix.RTWU, minRTWU) < p.topK.Threshold()-core.Epsilon {
		p.stats.AddBulkBranchPruned(1)
		p.stats.AddCandidatesPruned(int64(len(extensions)))
		return true
	}
	return false
}

// maybeAdapt recomputes the adaptive factor at most once per interval:
// +10% (capped at 2.0) when under half of candidates get pruned, -5%
// (floored at 0.8) when over 90% do.
func (p *Pruner) maybeAdapt() {
	now := time.Now().UnixNano()
	last := p.lastAdapt.Load()
	if now-last < int64(adaptationInterval) || !p.lastAdapt.CompareAndSwap(last, now) {
		return
	}

	generated := p.stats.CandidatesGenerated()
	if generated <= 1000 {
		return
	}
	pruneRate := float64(p.stats.CandidatesPruned()) / float64(generated)

	current := p.factor()
	next := current
	switch {
	case pruneRate < 0.5:
		next = math.Min(current*1.1, 2.0)
	case pruneRate > 0.9:
		next = math.Max(current*0.95, 0.8)
	}
	if next != current {
		p.factorBits.Store(math.Float64bits(next))
	}
}
