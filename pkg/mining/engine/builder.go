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
	"slices"

	"github.com/AleutianAI/probmine/pkg/mining/core"
)

// Builder constructs the per-item RTWU table, the item ranking, and the
// single-item utility lists that seed the search.
type Builder struct {
	profits map[int]float64
	minProb float64
	stats   *Statistics
	logger  *slog.Logger
}

// NewBuilder wires a builder over an immutable profit table.
func NewBuilder(profits map[int]float64, minProb float64, stats *Statistics, logger *slog.Logger) *Builder {
	return &Builder{
		profits: profits,
		minProb: minProb,
		stats:   stats,
		logger:  logger,
	}
}

// CalculateRTWU computes the remaining transaction weighted utility of every
// item in a single database pass. For each transaction the redefined
// transaction utility (positive profits only) is accumulated onto every
// member item that can actually exist (probability > 0).
func (b *Builder) CalculateRTWU(database []core.Transaction) map[int]float64 {
	itemRTWU := make(map[int]float64)
	for _, txn := range database {
		rtu := 0.0
		for item, occ := range txn.Items {
			if profit, ok := b.profits[item]; ok && profit > 0 {
				rtu += profit * float64(occ.Quantity)
			}
		}
		for item, occ := range txn.Items {
			if occ.Probability > 0 {
				if _, ok := b.profits[item]; ok {
					itemRTWU[item] += rtu
				}
			}
		}
	}
	b.logger.Debug("calculated RTWU", "items", len(itemRTWU))
	return itemRTWU
}

// BuildRanking assigns each item its rank: position in the ascending
// (rtwu, item-id) order. The rank is the canonical extension direction for
// the whole search.
//
// Outputs:
//   - map[int]int: item id to rank position.
//   - []int: item ids in rank order.
func (b *Builder) BuildRanking(itemRTWU map[int]float64) (map[int]int, []int) {
	ranked := make([]int, 0, len(itemRTWU))
	for item := range itemRTWU {
		ranked = append(ranked, item)
	}
	slices.SortFunc(ranked, func(a, c int) int {
		if itemRTWU[a] != itemRTWU[c] {
			if itemRTWU[a] < itemRTWU[c] {
				return -1
			}
			return 1
		}
		return a - c
	})
	itemToRank := make(map[int]int, len(ranked))
	for pos, item := range ranked {
		itemToRank[item] = pos
	}
	return itemToRank, ranked
}

// rankedOccurrence is the per-transaction working row during list building.
type rankedOccurrence struct {
	item     int
	quantity int
	profit   float64
	logProb  float64
}

func (r rankedOccurrence) utility() float64 {
	return r.profit * float64(r.quantity)
}

// BuildUtilityLists builds the single-item utility lists with the
// suffix-sum optimisation and drops items whose existential probability
// falls below the minimum.
//
// The naive remaining-utility computation is quadratic in transaction
// length; one right-to-left suffix pass makes it linear and every later
// join inherits the prefix's remaining value without recomputation.
//
// The database must be tid-ascending (the Miner sorts it); elements are
// appended in that order, which establishes the tid-sorted invariant joins
// depend on.
func (b *Builder) BuildUtilityLists(database []core.Transaction, itemToRank map[int]int,
	itemRTWU map[int]float64) map[int]*core.UtilityList {

	itemElements := make(map[int][]core.Element)
	for _, txn := range database {
		b.appendTransactionElements(txn, itemToRank, itemElements)
	}

	lists := make(map[int]*core.UtilityList, len(itemElements))
	for item, elements := range itemElements {
		if len(elements) == 0 {
			continue
		}
		ul := core.NewUtilityList([]int{item}, elements, itemRTWU[item])
		if ul.ExistProb < b.minProb-core.Epsilon {
			continue
		}
		lists[item] = ul
		b.stats.AddUtilityListsCreated(1)
	}
	b.logger.Debug("built single-item utility lists", "kept", len(lists), "candidates", len(itemElements))
	return lists
}

// appendTransactionElements runs the suffix-sum pass for one transaction.
func (b *Builder) appendTransactionElements(txn core.Transaction, itemToRank map[int]int,
	itemElements map[int][]core.Element) {

	rows := b.extractRankedRows(txn, itemToRank)
	if len(rows) == 0 {
		return
	}

	// suffix[i] = sum of positive utilities of items ranked strictly after i.
	n := len(rows)
	suffix := make([]float64, n)
	for i := n - 2; i >= 0; i-- {
		next := rows[i+1]
		nextUtility := 0.0
		if next.profit > 0 {
			nextUtility = next.utility()
		}
		suffix[i] = suffix[i+1] + nextUtility
	}

	for i, row := range rows {
		if row.logProb <= core.LogEpsilon {
			continue
		}
		itemElements[row.item] = append(itemElements[row.item], core.Element{
			TID:            txn.TID,
			Utility:        row.utility(),
			Remaining:      suffix[i],
			LogProbability: row.logProb,
		})
	}
}

// extractRankedRows filters a transaction down to ranked, possible items and
// sorts them by rank ascending.
func (b *Builder) extractRankedRows(txn core.Transaction, itemToRank map[int]int) []rankedOccurrence {
	rows := make([]rankedOccurrence, 0, len(txn.Items))
	for item, occ := range txn.Items {
		if _, ok := itemToRank[item]; !ok {
			continue
		}
		profit, ok := b.profits[item]
		if !ok || occ.Probability <= 0 {
			continue
		}
		rows = append(rows, rankedOccurrence{
			item:     item,
			quantity: occ.Quantity,
			profit:   profit,
			logProb:  math.Log(occ.Probability),
		})
	}
	slices.SortFunc(rows, func(a, c rankedOccurrence) int {
		return itemToRank[a.item] - itemToRank[c.item]
	})
	return rows
}
