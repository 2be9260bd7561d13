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
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/AleutianAI/probmine/pkg/mining/core"
	"github.com/AleutianAI/probmine/pkg/mining/engine"
)

// mineDataset generates a seeded dataset once, loads it, and mines it with
// the given worker count.
func mineDataset(t *testing.T, workers int) []core.Itemset {
	t.Helper()

	cfg := DefaultGeneratorConfig()
	cfg.NumTransactions = 300
	cfg.NumItems = 60 // above the parallel threshold, so workers matter

	files, err := NewGenerator(cfg, 2024, nil).GenerateDataset(t.TempDir(), "determinism")
	if err != nil {
		t.Fatalf("GenerateDataset() error = %v", err)
	}
	loader := NewLoader(nil)
	profits, err := loader.LoadProfits(files.ProfitFile)
	if err != nil {
		t.Fatalf("LoadProfits() error = %v", err)
	}
	database, err := loader.LoadDatabase(files.DatabaseFile)
	if err != nil {
		t.Fatalf("LoadDatabase() error = %v", err)
	}

	miner, err := engine.NewMiner(profits, 20, 0.2, engine.WithWorkers(workers))
	if err != nil {
		t.Fatalf("NewMiner() error = %v", err)
	}
	results, err := miner.Mine(context.Background(), database)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	return results
}

// itemsetKeys renders a canonical, order-insensitive view of a result set.
func itemsetKeys(results []core.Itemset) []string {
	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = fmt.Sprintf("%v eu=%.9f p=%.9f", r.Items, r.ExpectedUtility, r.Probability)
	}
	sort.Strings(keys)
	return keys
}

// TestMining_SerialParallelAgree mines the same seeded dataset with one
// worker and with eight; the returned sets must match exactly.
func TestMining_SerialParallelAgree(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping determinism sweep in short mode")
	}

	serial := mineDataset(t, 1)
	parallel := mineDataset(t, 8)

	if len(serial) == 0 {
		t.Fatal("serial run returned no itemsets; fixture is too restrictive")
	}
	serialKeys := itemsetKeys(serial)
	parallelKeys := itemsetKeys(parallel)
	if len(serialKeys) != len(parallelKeys) {
		t.Fatalf("serial returned %d itemsets, parallel %d", len(serialKeys), len(parallelKeys))
	}
	for i := range serialKeys {
		if serialKeys[i] != parallelKeys[i] {
			t.Errorf("result sets diverge:\n  serial:   %s\n  parallel: %s",
				serialKeys[i], parallelKeys[i])
		}
	}
}

// TestMining_RepeatedRunsDeterministic re-mines the same dataset twice with
// the same worker count; the returned sets must be identical.
func TestMining_RepeatedRunsDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping determinism sweep in short mode")
	}

	first := mineDataset(t, 4)
	second := mineDataset(t, 4)

	firstKeys := itemsetKeys(first)
	secondKeys := itemsetKeys(second)
	if len(firstKeys) != len(secondKeys) {
		t.Fatalf("run sizes differ: %d vs %d", len(firstKeys), len(secondKeys))
	}
	for i := range firstKeys {
		if firstKeys[i] != secondKeys[i] {
			t.Errorf("repeated runs diverge at %d:\n  %s\n  %s", i, firstKeys[i], secondKeys[i])
		}
	}
}
