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

import "fmt"

// ItemOccurrence records how an item appears in one transaction.
type ItemOccurrence struct {
	// Quantity purchased. Always >= 1 after validation.
	Quantity int

	// Probability that the item actually exists in the transaction, in [0,1].
	Probability float64
}

// Transaction is one row of the uncertain database: a unique tid and a
// non-empty set of item occurrences. Immutable after ingest; the mining
// pipeline shares transactions read-only across workers.
type Transaction struct {
	TID   int
	Items map[int]ItemOccurrence
}

// NewTransaction validates and builds a transaction.
//
// Inputs:
//   - tid: Unique positive transaction id.
//   - items: Non-empty map of item id to occurrence.
//
// Outputs:
//   - Transaction: The validated transaction.
//   - error: Wraps ErrInvalidInput on bad tid, empty items, quantity <= 0,
//     or probability outside [0,1].
func NewTransaction(tid int, items map[int]ItemOccurrence) (Transaction, error) {
	if tid <= 0 {
		return Transaction{}, fmt.Errorf("%w: transaction id %d must be positive", ErrInvalidInput, tid)
	}
	if len(items) == 0 {
		return Transaction{}, fmt.Errorf("%w: transaction %d has no items", ErrInvalidInput, tid)
	}
	for item, occ := range items {
		if occ.Quantity <= 0 {
			return Transaction{}, fmt.Errorf("%w: transaction %d item %d has quantity %d",
				ErrInvalidInput, tid, item, occ.Quantity)
		}
		if occ.Probability < 0 || occ.Probability > 1 {
			return Transaction{}, fmt.Errorf("%w: transaction %d item %d has probability %g",
				ErrInvalidInput, tid, item, occ.Probability)
		}
	}
	return Transaction{TID: tid, Items: items}, nil
}

// Size returns the number of distinct items in the transaction.
func (t Transaction) Size() int {
	return len(t.Items)
}

// Utility returns the transaction utility under the given profit table,
// counting every item the table knows about (negative profits included).
func (t Transaction) Utility(profits map[int]float64) float64 {
	var u float64
	for item, occ := range t.Items {
		if profit, ok := profits[item]; ok {
			u += profit * float64(occ.Quantity)
		}
	}
	return u
}
