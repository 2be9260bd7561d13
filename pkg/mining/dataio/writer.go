// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/probmine/pkg/mining/core"
	"github.com/AleutianAI/probmine/pkg/mining/engine"
)

// Report bundles a finished run for export.
type Report struct {
	K              int             `json:"k"`
	MinProbability float64         `json:"min_probability"`
	Transactions   int             `json:"transactions"`
	Items          int             `json:"items"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Itemsets       []ItemsetRow    `json:"itemsets"`
	Statistics     engine.Snapshot `json:"statistics"`
}

// ItemsetRow is the export shape of one result itemset.
type ItemsetRow struct {
	Rank            int     `json:"rank"`
	Items           []int   `json:"items"`
	ExpectedUtility float64 `json:"expected_utility"`
	Probability     float64 `json:"probability"`
	Support         int     `json:"support"`
}

// NewReport assembles a report from run outputs.
func NewReport(k int, minProb float64, transactions, items int,
	results []core.Itemset, stats engine.Snapshot) Report {

	rows := make([]ItemsetRow, len(results))
	for i, itemset := range results {
		rows[i] = ItemsetRow{
			Rank:            i + 1,
			Items:           itemset.Items,
			ExpectedUtility: itemset.ExpectedUtility,
			Probability:     itemset.Probability,
			Support:         itemset.Support,
		}
	}
	return Report{
		K:              k,
		MinProbability: minProb,
		Transactions:   transactions,
		Items:          items,
		GeneratedAt:    time.Now().UTC(),
		Itemsets:       rows,
		Statistics:     stats,
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteCSV writes the itemset rows as CSV with a header line.
func WriteCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "items", "expected_utility", "probability", "support"}); err != nil {
		return err
	}
	for _, row := range report.Itemsets {
		parts := make([]string, len(row.Items))
		for i, item := range row.Items {
			parts[i] = strconv.Itoa(item)
		}
		record := []string{
			strconv.Itoa(row.Rank),
			strings.Join(parts, " "),
			strconv.FormatFloat(row.ExpectedUtility, 'f', 6, 64),
			strconv.FormatFloat(row.Probability, 'f', 6, 64),
			strconv.Itoa(row.Support),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes a human-readable result table followed by the run
// statistics.
func WriteText(w io.Writer, report Report) error {
	fmt.Fprintf(w, "Top-%d high-utility itemsets (minProb=%.4f, %d transactions, %d items)\n\n",
		report.K, report.MinProbability, report.Transactions, report.Items)

	if len(report.Itemsets) == 0 {
		fmt.Fprintln(w, "  no qualifying itemsets")
	}
	for _, row := range report.Itemsets {
		parts := make([]string, len(row.Items))
		for i, item := range row.Items {
			parts[i] = strconv.Itoa(item)
		}
		fmt.Fprintf(w, "%4d. {%s}  EU=%.4f  P=%.4f  support=%d\n",
			row.Rank, strings.Join(parts, ","), row.ExpectedUtility, row.Probability, row.Support)
	}

	s := report.Statistics
	fmt.Fprintf(w, "\nCandidates generated:  %d\n", s.CandidatesGenerated)
	fmt.Fprintf(w, "Utility lists created: %d\n", s.UtilityListsCreated)
	fmt.Fprintf(w, "Pruned: rtwu=%d ep=%d upper_bound=%d branch=%d bulk=%d (%.1f%% effective)\n",
		s.RTWUPruned, s.EPPruned, s.EUPruned, s.BranchPruned, s.BulkBranchPruned,
		s.PruningEffectiveness*100)
	fmt.Fprintf(w, "Top-K updates: %d successful, %d CAS retries (%.1f%% efficient)\n",
		s.SuccessfulUpdates, s.CASRetries, s.CASEfficiency*100)
	fmt.Fprintf(w, "Execution: %d ms, peak memory %d MiB\n",
		s.ExecutionTimeMs, s.PeakMemoryBytes/(1024*1024))
	return nil
}
