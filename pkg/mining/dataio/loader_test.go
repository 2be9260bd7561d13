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
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/probmine/pkg/mining/core"
)

// TestParseProfits reads a table with comments, blanks, negatives, and a
// malformed line.
func TestParseProfits(t *testing.T) {
	input := `# profit table
1 5.0

2 -3.5
bogus line with words
3 10
`
	profits, err := NewLoader(nil).ParseProfits(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseProfits() error = %v", err)
	}
	want := map[int]float64{1: 5.0, 2: -3.5, 3: 10}
	if len(profits) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(profits), len(want), profits)
	}
	for item, profit := range want {
		if profits[item] != profit {
			t.Errorf("profits[%d] = %v, want %v", item, profits[item], profit)
		}
	}
}

// TestParseProfits_Empty maps to invalid input.
func TestParseProfits_Empty(t *testing.T) {
	_, err := NewLoader(nil).ParseProfits(strings.NewReader("# nothing here\n"))
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("ParseProfits() error = %v, want ErrInvalidInput", err)
	}
}

// TestParseDatabase covers default probability, explicit probability, tid
// assignment, and skipping of malformed entries.
func TestParseDatabase(t *testing.T) {
	input := `# db
1:2:0.9 2:4
3:1:0.5

4:0:0.5 5:2:1.5 6:3
`
	database, err := NewLoader(nil).ParseDatabase(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDatabase() error = %v", err)
	}
	if len(database) != 3 {
		t.Fatalf("got %d transactions, want 3", len(database))
	}

	first := database[0]
	if first.TID != 1 {
		t.Errorf("first tid = %d, want 1", first.TID)
	}
	if occ := first.Items[1]; occ.Quantity != 2 || occ.Probability != 0.9 {
		t.Errorf("item 1 = %+v, want quantity 2 probability 0.9", occ)
	}
	// Omitted probability defaults to 1.0.
	if occ := first.Items[2]; occ.Quantity != 4 || occ.Probability != 1.0 {
		t.Errorf("item 2 = %+v, want quantity 4 probability 1.0", occ)
	}

	// Line three: zero quantity and probability > 1 are skipped; only item
	// 6 survives. Tids stay dense over accepted transactions.
	third := database[2]
	if third.TID != 3 {
		t.Errorf("third tid = %d, want 3", third.TID)
	}
	if third.Size() != 1 {
		t.Fatalf("third transaction = %+v, want only item 6", third.Items)
	}
	if occ := third.Items[6]; occ.Quantity != 3 || occ.Probability != 1.0 {
		t.Errorf("item 6 = %+v", occ)
	}
}

// TestParseDatabase_AllInvalid yields an empty-database error.
func TestParseDatabase_AllInvalid(t *testing.T) {
	input := "a:b:c\n0:0\n"
	_, err := NewLoader(nil).ParseDatabase(strings.NewReader(input))
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("ParseDatabase() error = %v, want ErrInvalidInput", err)
	}
}

// TestLoadMissingFiles verifies open failures surface.
func TestLoadMissingFiles(t *testing.T) {
	loader := NewLoader(nil)
	if _, err := loader.LoadProfits("/nonexistent/profits.txt"); err == nil {
		t.Error("LoadProfits() on a missing file should fail")
	}
	if _, err := loader.LoadDatabase("/nonexistent/db.txt"); err == nil {
		t.Error("LoadDatabase() on a missing file should fail")
	}
}
