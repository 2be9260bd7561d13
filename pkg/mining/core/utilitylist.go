// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package core

import "math"

// Element is one utility-list row: the itemset's footprint in a single
// transaction.
type Element struct {
	// TID is the transaction id. Elements within a list are strictly
	// tid-ascending; joins rely on that for the linear merge.
	TID int

	// Utility is the itemset's utility in this transaction (profit times
	// quantity summed over member items; may be negative).
	Utility float64

	// Remaining is the suffix-remaining utility: the sum of positive
	// utilities of items ranked strictly after the itemset's last item.
	Remaining float64

	// LogProbability is the log of the product of the member items'
	// existence probabilities in this transaction.
	LogProbability float64
}

// Probability returns the element's joint probability (not log-space).
func (e Element) Probability() float64 {
	return math.Exp(e.LogProbability)
}

// UtilityList holds the per-transaction rows for one itemset plus aggregates
// pre-computed once at construction for O(1) reads. Elements are never
// mutated after NewUtilityList returns.
type UtilityList struct {
	// Items holds the member item ids sorted ascending.
	Items []int

	// RTWU is the remaining transaction weighted utility bound. For a
	// joined list this is min of the operands' RTWU values.
	RTWU float64

	// Elements are the per-transaction rows, strictly tid-ascending.
	Elements []Element

	// SumEU is sum over elements of utility * exp(logProbability).
	SumEU float64

	// SumRemaining is the sum of element remaining utilities.
	SumRemaining float64

	// ExistProb is 1 - prod over elements of (1 - exp(logProbability)): the
	// chance the itemset occurs in at least one transaction.
	ExistProb float64
}

// NewUtilityList builds a list and computes its aggregates in one pass over
// elements. Elements must already be tid-sorted; callers construct them that
// way (the builder walks transactions in order, the join merges in order).
//
// The existential probability accumulates log(1 - P_t) so long databases
// cannot underflow the product of miss probabilities; a certain occurrence
// (P_t = 1) drives the sum to -Inf and the probability to exactly 1.
func NewUtilityList(items []int, elements []Element, rtwu float64) *UtilityList {
	var sumEU, sumRemaining, logNoneSum float64
	for _, e := range elements {
		p := math.Exp(e.LogProbability)
		sumEU += e.Utility * p
		sumRemaining += e.Remaining
		logNoneSum += math.Log1p(-p)
	}
	existProb := 0.0
	if len(elements) > 0 {
		existProb = 1.0 - math.Exp(logNoneSum)
	}
	return &UtilityList{
		Items:        items,
		RTWU:         rtwu,
		Elements:     elements,
		SumEU:        sumEU,
		SumRemaining: sumRemaining,
		ExistProb:    existProb,
	}
}

// UpperBound is the admissible bound sumEU + sumRemaining used by the
// upper-bound prune.
func (ul *UtilityList) UpperBound() float64 {
	return ul.SumEU + ul.SumRemaining
}

// Empty reports whether the list has no elements.
func (ul *UtilityList) Empty() bool {
	return len(ul.Elements) == 0
}

// Support returns the number of transactions the itemset occurs in.
func (ul *UtilityList) Support() int {
	return len(ul.Elements)
}

// ToItemset snapshots the list as a result candidate.
func (ul *UtilityList) ToItemset() Itemset {
	return NewItemset(ul.Items, ul.SumEU, ul.ExistProb, len(ul.Elements))
}

// CheckTIDOrder verifies the strict tid-ascending invariant. Used by tests;
// a violation is a bug, never data.
func (ul *UtilityList) CheckTIDOrder() bool {
	for i := 1; i < len(ul.Elements); i++ {
		if ul.Elements[i-1].TID >= ul.Elements[i].TID {
			return false
		}
	}
	return true
}
