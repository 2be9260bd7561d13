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

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Itemset is a scored result candidate: a non-empty set of item ids with its
// expected utility, existential probability, and support. Immutable after
// creation so the top-K maintainer can publish it across threads without
// synchronization beyond the slot CAS.
type Itemset struct {
	// Items holds the member item ids sorted ascending.
	Items []int

	// ExpectedUtility is the sum over transactions of the itemset's utility
	// weighted by its joint probability in that transaction.
	ExpectedUtility float64

	// Probability is the existential probability: the chance the itemset
	// occurs in at least one transaction.
	Probability float64

	// Support is the number of transactions containing every member item.
	Support int

	// Seq is the insertion sequence assigned by the top-K maintainer, used
	// as the final tie-break in the result ordering. Zero until resident.
	Seq uint64
}

// NewItemset copies and sorts items. Items must be non-empty.
func NewItemset(items []int, expectedUtility, probability float64, support int) Itemset {
	sorted := slices.Clone(items)
	slices.Sort(sorted)
	return Itemset{
		Items:           sorted,
		ExpectedUtility: expectedUtility,
		Probability:     probability,
		Support:         support,
	}
}

// SameItems reports whether both itemsets contain exactly the same items.
// Both sides must hold their items sorted, which NewItemset guarantees.
func (s Itemset) SameItems(other Itemset) bool {
	return slices.Equal(s.Items, other.Items)
}

// Less orders itemsets for the final result list: expected utility
// descending, then probability descending, then size ascending, then
// insertion sequence ascending.
func (s Itemset) Less(other Itemset) bool {
	if s.ExpectedUtility != other.ExpectedUtility {
		return s.ExpectedUtility > other.ExpectedUtility
	}
	if s.Probability != other.Probability {
		return s.Probability > other.Probability
	}
	if len(s.Items) != len(other.Items) {
		return len(s.Items) < len(other.Items)
	}
	return s.Seq < other.Seq
}

// String renders the itemset for logs and text export.
func (s Itemset) String() string {
	parts := make([]string, len(s.Items))
	for i, item := range s.Items {
		parts[i] = strconv.Itoa(item)
	}
	return fmt.Sprintf("{%s} EU=%.4f P=%.4f S=%d",
		strings.Join(parts, ","), s.ExpectedUtility, s.Probability, s.Support)
}
