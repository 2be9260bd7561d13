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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Mining Runs
// =============================================================================

var (
	// runDuration measures wall-clock mining time.
	// Labels: mode (parallel, sequential), status (ok, cancelled, error)
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "probmine",
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "Mining run wall-clock duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"mode", "status"})

	// runCandidates counts candidates generated per run outcome.
	// Labels: outcome (generated, pruned)
	runCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probmine",
		Subsystem: "engine",
		Name:      "candidates_total",
		Help:      "Candidate itemsets generated and pruned across runs",
	}, []string{"outcome"})

	// runPrunes counts prune firings by rule.
	// Labels: rule (rtwu, ep, upper_bound, branch, bulk_branch)
	runPrunes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probmine",
		Subsystem: "engine",
		Name:      "prunes_total",
		Help:      "Prune rule firings across runs",
	}, []string{"rule"})

	// runItemsets tracks how many itemsets runs return.
	runItemsets = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "probmine",
		Subsystem: "engine",
		Name:      "result_itemsets",
		Help:      "Itemsets returned per mining run",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	// casRetriesTotal accumulates top-K CAS retries across runs.
	casRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "probmine",
		Subsystem: "engine",
		Name:      "topk_cas_retries_total",
		Help:      "Compare-and-swap retries in the top-K maintainer",
	})
)

// observeRun publishes one finished run to Prometheus.
func observeRun(mode, status string, seconds float64, snap Snapshot, resultCount int) {
	runDuration.WithLabelValues(mode, status).Observe(seconds)
	runCandidates.WithLabelValues("generated").Add(float64(snap.CandidatesGenerated))
	runCandidates.WithLabelValues("pruned").Add(float64(snap.CandidatesPruned))
	runPrunes.WithLabelValues("rtwu").Add(float64(snap.RTWUPruned))
	runPrunes.WithLabelValues("ep").Add(float64(snap.EPPruned))
	runPrunes.WithLabelValues("upper_bound").Add(float64(snap.EUPruned))
	runPrunes.WithLabelValues("branch").Add(float64(snap.BranchPruned))
	runPrunes.WithLabelValues("bulk_branch").Add(float64(snap.BulkBranchPruned))
	runItemsets.Observe(float64(resultCount))
	casRetriesTotal.Add(float64(snap.CASRetries))
}
