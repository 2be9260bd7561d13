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
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/probmine/cmd/probmine/config"
	"github.com/AleutianAI/probmine/pkg/mining/core"
	"github.com/AleutianAI/probmine/pkg/mining/dataio"
	"github.com/AleutianAI/probmine/pkg/mining/engine"
)

func runMine(cmd *cobra.Command, args []string) {
	logger := cliLogger.Slog()
	loader := dataio.NewLoader(logger)

	profits, err := loader.LoadProfits(profitFile)
	if err != nil {
		exitError("failed to load profit table", err)
	}
	database, err := loader.LoadDatabase(databaseFile)
	if err != nil {
		exitError("failed to load database", err)
	}

	workers := workerCount
	if workers == 0 {
		workers = config.Global.Mining.Workers
	}
	adaptive := adaptivePrune || config.Global.Mining.AdaptivePruning

	miner, err := engine.NewMiner(profits, topKCount, minProbability,
		engine.WithWorkers(workers),
		engine.WithAdaptivePruning(adaptive),
		engine.WithLogger(logger),
	)
	if err != nil {
		exitError("invalid mining parameters", err)
	}

	// Ctrl-C cancels the run; the itemsets resident at that point are still
	// reported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := miner.Mine(ctx, database)
	if err != nil && !errors.Is(err, core.ErrCancelled) {
		exitError("mining failed", err)
	}
	if errors.Is(err, core.ErrCancelled) {
		cliLogger.Warn("run cancelled, reporting partial results", "itemsets", len(results))
	}

	report := dataio.NewReport(topKCount, minProbability,
		len(database), len(profits), results, miner.Statistics())

	var out io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			exitError("failed to create output file", err)
		}
		defer f.Close()
		out = f
	}

	switch outputFormat {
	case "json":
		err = dataio.WriteJSON(out, report)
	case "csv":
		err = dataio.WriteCSV(out, report)
	default:
		err = dataio.WriteText(out, report)
	}
	if err != nil {
		exitError("failed to write results", err)
	}
}
