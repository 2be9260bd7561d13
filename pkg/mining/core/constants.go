// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package core defines the data model for top-K high-utility itemset mining
// over uncertain transaction databases: transactions with per-item quantities
// and existence probabilities, itemsets scored by expected utility, and
// utility lists with pre-computed aggregates.
package core

// Numerical constants shared by the mining pipeline.
const (
	// Epsilon guards floating-point comparisons against the threshold.
	Epsilon = 1e-10

	// LogEpsilon is the floor for log-space probabilities. A joined element
	// whose log-probability drops to or below this value has effectively
	// probability zero and is discarded rather than propagated.
	LogEpsilon = -700.0

	// DefaultProbability is assumed when a database entry omits one.
	DefaultProbability = 1.0
)

// Performance tuning constants.
const (
	// ParallelThreshold is the minimum item (or extension) count before the
	// scheduler forks parallel tasks instead of running sequentially.
	ParallelThreshold = 30

	// TaskGranularity is the slice size at which fork/merge decomposition
	// bottoms out and a task processes its range sequentially.
	TaskGranularity = 7

	// MaxCASRetries bounds the replace-weakest loop in the top-K maintainer.
	MaxCASRetries = 100

	// ProgressInterval is the number of top-level prefixes between progress
	// reports (and peak-memory samples).
	ProgressInterval = 10
)
