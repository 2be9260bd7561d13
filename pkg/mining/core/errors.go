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

import "errors"

var (
	// ErrInvalidInput covers malformed run inputs: empty database or profit
	// table, non-positive k, minProb outside [0,1], transactions with no
	// items, non-positive quantities, or probabilities outside [0,1].
	// Surfaced at run start and fatal to the run.
	ErrInvalidInput = errors.New("invalid mining input")

	// ErrEmptyDatabase indicates a database with no transactions.
	ErrEmptyDatabase = errors.New("transaction database is empty")

	// ErrEmptyProfitTable indicates a profit table with no entries.
	ErrEmptyProfitTable = errors.New("profit table is empty")

	// ErrCancelled indicates the run observed a cancel signal. The top-K
	// resident at that point is still returned alongside this error.
	ErrCancelled = errors.New("mining run cancelled")

	// ErrInvariantViolation indicates an internal bug, such as a utility
	// list whose elements are not tid-ordered. Never masked.
	ErrInvariantViolation = errors.New("internal invariant violation")
)
