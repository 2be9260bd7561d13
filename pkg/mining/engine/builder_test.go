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
	"log/slog"
	"math"
	"testing"

	"github.com/AleutianAI/probmine/pkg/mining/core"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func mustTransaction(t *testing.T, tid int, items map[int]core.ItemOccurrence) core.Transaction {
	t.Helper()
	txn, err := core.NewTransaction(tid, items)
	if err != nil {
		t.Fatalf("NewTransaction(%d) error = %v", tid, err)
	}
	return txn
}

func testBuilder(profits map[int]float64, minProb float64) *Builder {
	return NewBuilder(profits, minProb, &Statistics{}, slog.Default())
}

// builderFixture: profits {1:5, 2:10, 3:-2}, two transactions.
//
//	t1 = {1:2@1.0, 3:1@0.5}   rtu = 10 (only item 1 is positive)
//	t2 = {1:1@0.9, 2:2@0.8}   rtu = 5 + 20 = 25
func builderFixture(t *testing.T) (map[int]float64, []core.Transaction) {
	t.Helper()
	profits := map[int]float64{1: 5, 2: 10, 3: -2}
	database := []core.Transaction{
		mustTransaction(t, 1, map[int]core.ItemOccurrence{
			1: {Quantity: 2, Probability: 1.0},
			3: {Quantity: 1, Probability: 0.5},
		}),
		mustTransaction(t, 2, map[int]core.ItemOccurrence{
			1: {Quantity: 1, Probability: 0.9},
			2: {Quantity: 2, Probability: 0.8},
		}),
	}
	return profits, database
}

// TestCalculateRTWU verifies each item's RTWU equals the sum of its
// transactions' positive-profit utilities.
func TestCalculateRTWU(t *testing.T) {
	profits, database := builderFixture(t)
	rtwu := testBuilder(profits, 0).CalculateRTWU(database)

	want := map[int]float64{1: 35, 2: 25, 3: 10}
	for item, w := range want {
		if !almostEqual(rtwu[item], w) {
			t.Errorf("rtwu[%d] = %v, want %v", item, rtwu[item], w)
		}
	}
}

// TestCalculateRTWU_SkipsZeroProbability verifies an impossible occurrence
// contributes nothing.
func TestCalculateRTWU_SkipsZeroProbability(t *testing.T) {
	profits := map[int]float64{1: 5, 2: 10}
	database := []core.Transaction{
		mustTransaction(t, 1, map[int]core.ItemOccurrence{
			1: {Quantity: 1, Probability: 0.0},
			2: {Quantity: 1, Probability: 1.0},
		}),
	}
	rtwu := testBuilder(profits, 0).CalculateRTWU(database)
	if _, ok := rtwu[1]; ok {
		t.Errorf("item with zero probability should have no RTWU, got %v", rtwu[1])
	}
	if !almostEqual(rtwu[2], 15) {
		t.Errorf("rtwu[2] = %v, want 15", rtwu[2])
	}
}

// TestBuildRanking verifies ascending (rtwu, item) order with tie-break.
func TestBuildRanking(t *testing.T) {
	b := testBuilder(map[int]float64{}, 0)
	itemToRank, sorted := b.BuildRanking(map[int]float64{7: 30, 2: 10, 9: 10, 4: 20})

	wantOrder := []int{2, 9, 4, 7} // rtwu 10 (id 2), 10 (id 9), 20, 30
	for i, item := range wantOrder {
		if sorted[i] != item {
			t.Fatalf("sorted[%d] = %d, want %d (full order %v)", i, sorted[i], item, sorted)
		}
		if itemToRank[item] != i {
			t.Errorf("itemToRank[%d] = %d, want %d", item, itemToRank[item], i)
		}
	}
}

// TestBuildUtilityLists_SuffixSums verifies element utilities, remaining
// values from the suffix pass, and log probabilities.
func TestBuildUtilityLists_SuffixSums(t *testing.T) {
	profits, database := builderFixture(t)
	b := testBuilder(profits, 0)
	rtwu := b.CalculateRTWU(database)
	itemToRank, _ := b.BuildRanking(rtwu)
	lists := b.BuildUtilityLists(database, itemToRank, rtwu)

	// Ranking: 3 (rtwu 10) < 2 (25) < 1 (35).
	// t1 ranked rows: [3, 1]; suffix for 3 is max(5,0)*2 = 10.
	// t2 ranked rows: [2, 1]; suffix for 2 is 5*1 = 5.
	ul3 := lists[3]
	if ul3 == nil || len(ul3.Elements) != 1 {
		t.Fatalf("lists[3] = %+v, want one element", ul3)
	}
	e := ul3.Elements[0]
	if e.TID != 1 || !almostEqual(e.Utility, -2) || !almostEqual(e.Remaining, 10) ||
		!almostEqual(e.LogProbability, math.Log(0.5)) {
		t.Errorf("item 3 element = %+v", e)
	}

	ul2 := lists[2]
	if ul2 == nil || len(ul2.Elements) != 1 {
		t.Fatalf("lists[2] = %+v, want one element", ul2)
	}
	e = ul2.Elements[0]
	if e.TID != 2 || !almostEqual(e.Utility, 20) || !almostEqual(e.Remaining, 5) {
		t.Errorf("item 2 element = %+v", e)
	}

	ul1 := lists[1]
	if ul1 == nil || len(ul1.Elements) != 2 {
		t.Fatalf("lists[1] = %+v, want two elements", ul1)
	}
	// Last-ranked item always has zero remaining.
	for _, e := range ul1.Elements {
		if !almostEqual(e.Remaining, 0) {
			t.Errorf("item 1 element remaining = %v, want 0", e.Remaining)
		}
	}
	if !ul1.CheckTIDOrder() {
		t.Error("item 1 elements must be tid-ascending")
	}
	if !almostEqual(ul1.SumEU, 10*1.0+5*0.9) {
		t.Errorf("item 1 SumEU = %v, want 14.5", ul1.SumEU)
	}
}

// TestBuildUtilityLists_MinProbFilter verifies items below the existential
// probability floor are dropped.
func TestBuildUtilityLists_MinProbFilter(t *testing.T) {
	profits := map[int]float64{1: 5, 2: 10}
	database := []core.Transaction{
		mustTransaction(t, 1, map[int]core.ItemOccurrence{
			1: {Quantity: 1, Probability: 0.2},
			2: {Quantity: 1, Probability: 0.95},
		}),
	}
	b := testBuilder(profits, 0.5)
	rtwu := b.CalculateRTWU(database)
	itemToRank, _ := b.BuildRanking(rtwu)
	lists := b.BuildUtilityLists(database, itemToRank, rtwu)

	if _, ok := lists[1]; ok {
		t.Error("item 1 (existProb 0.2) should be dropped at minProb 0.5")
	}
	if _, ok := lists[2]; !ok {
		t.Error("item 2 (existProb 0.95) should be kept at minProb 0.5")
	}
}

// TestBuildUtilityLists_UnknownItemIgnored verifies items without profits
// never appear in any list.
func TestBuildUtilityLists_UnknownItemIgnored(t *testing.T) {
	profits := map[int]float64{1: 5}
	database := []core.Transaction{
		mustTransaction(t, 1, map[int]core.ItemOccurrence{
			1: {Quantity: 1, Probability: 1.0},
			9: {Quantity: 4, Probability: 1.0},
		}),
	}
	b := testBuilder(profits, 0)
	rtwu := b.CalculateRTWU(database)
	itemToRank, _ := b.BuildRanking(rtwu)
	lists := b.BuildUtilityLists(database, itemToRank, rtwu)

	if _, ok := lists[9]; ok {
		t.Error("unprofiled item should not get a utility list")
	}
	if ul := lists[1]; ul == nil || !almostEqual(ul.SumEU, 5) {
		t.Errorf("lists[1] = %+v, want SumEU 5", ul)
	}
}
