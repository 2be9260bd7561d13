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
	"os"
	"testing"
)

// TestGenerateDataset_RoundTrip generates a dataset and loads it back
// through the loader.
func TestGenerateDataset_RoundTrip(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.NumTransactions = 50
	cfg.NumItems = 20

	dir := t.TempDir()
	files, err := NewGenerator(cfg, 1, nil).GenerateDataset(dir, "roundtrip")
	if err != nil {
		t.Fatalf("GenerateDataset() error = %v", err)
	}

	loader := NewLoader(nil)
	profits, err := loader.LoadProfits(files.ProfitFile)
	if err != nil {
		t.Fatalf("LoadProfits() error = %v", err)
	}
	if len(profits) != cfg.NumItems {
		t.Errorf("loaded %d profits, want %d", len(profits), cfg.NumItems)
	}

	database, err := loader.LoadDatabase(files.DatabaseFile)
	if err != nil {
		t.Fatalf("LoadDatabase() error = %v", err)
	}
	if len(database) != cfg.NumTransactions {
		t.Errorf("loaded %d transactions, want %d", len(database), cfg.NumTransactions)
	}
	for _, txn := range database {
		if txn.Size() < cfg.MinItemsPerTxn || txn.Size() > cfg.MaxItemsPerTxn {
			t.Errorf("transaction %d has %d items, want between %d and %d",
				txn.TID, txn.Size(), cfg.MinItemsPerTxn, cfg.MaxItemsPerTxn)
		}
		for item, occ := range txn.Items {
			if item < 1 || item > cfg.NumItems {
				t.Errorf("transaction %d references unknown item %d", txn.TID, item)
			}
			if occ.Probability < cfg.MinProbability-0.001 || occ.Probability > cfg.MaxProbability {
				t.Errorf("transaction %d item %d probability %v out of configured range",
					txn.TID, item, occ.Probability)
			}
		}
	}
}

// TestGenerateDataset_Deterministic verifies the same seed yields
// byte-identical files.
func TestGenerateDataset_Deterministic(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.NumTransactions = 30
	cfg.NumItems = 10

	dirA, dirB := t.TempDir(), t.TempDir()
	filesA, err := NewGenerator(cfg, 99, nil).GenerateDataset(dirA, "seeded")
	if err != nil {
		t.Fatalf("GenerateDataset() error = %v", err)
	}
	filesB, err := NewGenerator(cfg, 99, nil).GenerateDataset(dirB, "seeded")
	if err != nil {
		t.Fatalf("GenerateDataset() error = %v", err)
	}

	for _, pair := range [][2]string{
		{filesA.DatabaseFile, filesB.DatabaseFile},
		{filesA.ProfitFile, filesB.ProfitFile},
	} {
		a, err := os.ReadFile(pair[0])
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", pair[0], err)
		}
		b, err := os.ReadFile(pair[1])
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", pair[1], err)
		}
		if string(a) != string(b) {
			t.Errorf("same seed produced different content for %s", pair[0])
		}
	}
}

// TestGenerateDataset_Zipf verifies the power-law path still emits valid
// files.
func TestGenerateDataset_Zipf(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.NumTransactions = 40
	cfg.NumItems = 15
	cfg.UseZipfDistribution = true

	files, err := NewGenerator(cfg, 5, nil).GenerateDataset(t.TempDir(), "zipf")
	if err != nil {
		t.Fatalf("GenerateDataset() error = %v", err)
	}
	database, err := NewLoader(nil).LoadDatabase(files.DatabaseFile)
	if err != nil {
		t.Fatalf("LoadDatabase() error = %v", err)
	}
	if len(database) != cfg.NumTransactions {
		t.Errorf("loaded %d transactions, want %d", len(database), cfg.NumTransactions)
	}
}

// TestPresets verifies every named preset is self-consistent.
func TestPresets(t *testing.T) {
	for name, cfg := range Presets() {
		if cfg.NumTransactions <= 0 || cfg.NumItems <= 0 {
			t.Errorf("preset %q has empty dimensions: %+v", name, cfg)
		}
		if cfg.MinItemsPerTxn > cfg.MaxItemsPerTxn {
			t.Errorf("preset %q has inverted item bounds", name)
		}
		if cfg.MaxItemsPerTxn > cfg.NumItems {
			t.Errorf("preset %q cannot fill a transaction from its item pool", name)
		}
	}
}
