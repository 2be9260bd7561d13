// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	databaseFile   string
	profitFile     string
	topKCount      int
	minProbability float64
	workerCount    int
	adaptivePrune  bool
	outputFormat   string // text, json, csv
	outputFile     string
	quietOutput    bool

	genPreset string
	genSeed   int64
	genOutDir string
	genTxns   int
	genItems  int

	rootCmd = &cobra.Command{
		Use:   "probmine",
		Short: "A cli to mine top-K high-utility itemsets from uncertain databases",
		Long: `ProbMine mines the K itemsets with the highest expected utility from an
uncertain transaction database with positive and negative per-item profits,
subject to a minimum existential probability.`,
	}

	mineCmd = &cobra.Command{
		Use:   "mine",
		Short: "Run a mining pass over a database and profit table",
		Run:   runMine, // Defined in cmd_mine.go
	}

	generateCmd = &cobra.Command{
		Use:   "generate [name]",
		Short: "Generate a seeded synthetic dataset (database + profit table)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runGenerate, // Defined in cmd_generate.go
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a dataset without mining it",
		Run:   runInspect, // Defined in cmd_inspect.go
	}
)

func init() {
	mineCmd.Flags().StringVar(&databaseFile, "db", "", "Path to the transaction database file")
	mineCmd.Flags().StringVar(&profitFile, "profits", "", "Path to the profit table file")
	mineCmd.Flags().IntVarP(&topKCount, "top", "k", 10, "Number of itemsets to return")
	mineCmd.Flags().Float64Var(&minProbability, "min-prob", 0.1, "Minimum existential probability in [0,1]")
	mineCmd.Flags().IntVar(&workerCount, "workers", 0, "Worker threads (0 = mining.workers from config; all CPUs if that is 0 too)")
	mineCmd.Flags().BoolVar(&adaptivePrune, "adaptive", false, "Enable heuristic adaptive RTWU pruning")
	mineCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json, or csv")
	mineCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Write results to a file instead of stdout")
	mineCmd.Flags().BoolVarP(&quietOutput, "quiet", "q", false, "Suppress log output")
	_ = mineCmd.MarkFlagRequired("db")
	_ = mineCmd.MarkFlagRequired("profits")

	generateCmd.Flags().StringVar(&genPreset, "preset", "", "Preset: small, medium, large, dense, or sparse")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 42, "RNG seed for reproducible datasets")
	generateCmd.Flags().StringVar(&genOutDir, "dir", "data/generated", "Output directory")
	generateCmd.Flags().IntVar(&genTxns, "transactions", 0, "Transaction count (overrides preset)")
	generateCmd.Flags().IntVar(&genItems, "items", 0, "Item count (overrides preset)")

	inspectCmd.Flags().StringVar(&databaseFile, "db", "", "Path to the transaction database file")
	inspectCmd.Flags().StringVar(&profitFile, "profits", "", "Path to the profit table file")
	_ = inspectCmd.MarkFlagRequired("db")
	_ = inspectCmd.MarkFlagRequired("profits")

	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
}
