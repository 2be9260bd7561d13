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
	"testing"

	"github.com/AleutianAI/probmine/pkg/mining/core"
	"github.com/AleutianAI/probmine/pkg/mining/topk"
)

// warmPruner returns a pruner whose top-K (k=1) already holds an entry with
// the given EU, fixing the threshold.
func warmPruner(threshold, minProb float64) (*Pruner, *Statistics) {
	manager := topk.NewManager(1)
	manager.TryAdd([]int{99}, threshold, 1.0, 1)
	stats := &Statistics{}
	return NewPruner(manager, minProb, stats, false), stats
}

// TestShouldPruneRTWU verifies the branch-level bound.
func TestShouldPruneRTWU(t *testing.T) {
	p, stats := warmPruner(50, 0)
	if !p.ShouldPruneRTWU(49.9) {
		t.Error("RTWU below threshold should prune")
	}
	if p.ShouldPruneRTWU(50.0) {
		t.Error("RTWU at threshold should survive")
	}
	if stats.rtwuPruned.Load() != 1 {
		t.Errorf("rtwuPruned = %d, want 1", stats.rtwuPruned.Load())
	}
}

// TestShouldPruneEP verifies the existential probability floor.
func TestShouldPruneEP(t *testing.T) {
	p, stats := warmPruner(0, 0.4)
	if !p.ShouldPruneEP(0.39) {
		t.Error("probability below minimum should prune")
	}
	if p.ShouldPruneEP(0.4) {
		t.Error("probability at minimum should survive")
	}
	if stats.epPruned.Load() != 1 || stats.candidatesPruned.Load() != 1 {
		t.Errorf("epPruned = %d, candidatesPruned = %d, want 1 and 1",
			stats.epPruned.Load(), stats.candidatesPruned.Load())
	}
}

// TestShouldPruneUpperBound verifies the sumEU + sumRemaining bound.
func TestShouldPruneUpperBound(t *testing.T) {
	p, stats := warmPruner(30, 0)
	if !p.ShouldPruneUpperBound(10, 15) {
		t.Error("upper bound 25 should prune at threshold 30")
	}
	if p.ShouldPruneUpperBound(10, 25) {
		t.Error("upper bound 35 should survive at threshold 30")
	}
	if stats.euPruned.Load() != 1 {
		t.Errorf("euPruned = %d, want 1", stats.euPruned.Load())
	}
}

// TestQualifiesForTopK verifies both acceptance axes.
func TestQualifiesForTopK(t *testing.T) {
	p, _ := warmPruner(20, 0.5)
	if !p.QualifiesForTopK(20, 0.5) {
		t.Error("at-threshold candidate should qualify")
	}
	if p.QualifiesForTopK(19, 0.9) {
		t.Error("EU below threshold should not qualify")
	}
	if p.QualifiesForTopK(25, 0.4) {
		t.Error("probability below minimum should not qualify")
	}
}

// TestShouldBulkPrune reproduces the bulk-branch scenario: prefix rtwu 5,
// extensions {4, 4.5, 4.8}, threshold 6. All three die on one comparison
// and count as pruned candidates; no joins run.
func TestShouldBulkPrune(t *testing.T) {
	p, stats := warmPruner(6, 0)
	prefix := core.NewUtilityList([]int{1}, nil, 5)
	extensions := []*core.UtilityList{
		core.NewUtilityList([]int{2}, nil, 4),
		core.NewUtilityList([]int{3}, nil, 4.5),
		core.NewUtilityList([]int{4}, nil, 4.8),
	}

	if !p.ShouldBulkPrune(prefix, extensions) {
		t.Fatal("bulk prune should fire: min(5, 4) < 6")
	}
	if stats.bulkBranchPruned.Load() != 1 {
		t.Errorf("bulkBranchPruned = %d, want 1", stats.bulkBranchPruned.Load())
	}
	if stats.candidatesPruned.Load() != 3 {
		t.Errorf("candidatesPruned = %d, want 3 (the whole extension slice)",
			stats.candidatesPruned.Load())
	}
}

// TestShouldBulkPrune_Survives verifies a viable slice is kept.
func TestShouldBulkPrune_Survives(t *testing.T) {
	p, _ := warmPruner(6, 0)
	prefix := core.NewUtilityList([]int{1}, nil, 10)
	extensions := []*core.UtilityList{
		core.NewUtilityList([]int{2}, nil, 8),
		core.NewUtilityList([]int{3}, nil, 7),
	}
	if p.ShouldBulkPrune(prefix, extensions) {
		t.Error("bulk prune must not fire when min(10, 7) >= 6")
	}
}

// TestShouldPrune_Order verifies the combined check passes a clean candidate
// and prunes one that fails the existential-probability rule.
func TestShouldPrune_Order(t *testing.T) {
	p, _ := warmPruner(10, 0.5)

	clean := core.NewUtilityList([]int{1}, []core.Element{
		{TID: 1, Utility: 15, Remaining: 5, LogProbability: -0.1},
	}, 40)
	if p.ShouldPrune(clean) {
		t.Error("qualifying candidate should survive the combined check")
	}

	lowProb := core.NewUtilityList([]int{1}, []core.Element{
		{TID: 1, Utility: 15, Remaining: 5, LogProbability: -3.0},
	}, 40)
	if !p.ShouldPrune(lowProb) {
		t.Error("existProb ~0.05 should prune at minProb 0.5")
	}
}

// TestAdaptiveFactor_BaselineIsExact verifies the default factor is 1.0 so
// the RTWU rule matches the textbook bound exactly.
func TestAdaptiveFactor_BaselineIsExact(t *testing.T) {
	p, _ := warmPruner(100, 0)
	if got := p.factor(); got != 1.0 {
		t.Fatalf("factor() = %v, want exactly 1.0", got)
	}
	if p.ShouldPruneRTWU(100.0) {
		t.Error("with factor 1.0 an RTWU equal to the threshold must survive")
	}
}
