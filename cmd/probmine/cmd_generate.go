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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/probmine/pkg/mining/dataio"
)

func runGenerate(cmd *cobra.Command, args []string) {
	name := "dataset"
	if len(args) == 1 {
		name = args[0]
	}

	cfg := dataio.DefaultGeneratorConfig()
	if genPreset != "" {
		preset, ok := dataio.Presets()[genPreset]
		if !ok {
			keys := make([]string, 0, len(dataio.Presets()))
			for k := range dataio.Presets() {
				keys = append(keys, k)
			}
			exitError("unknown preset", fmt.Errorf("%q is not one of: %s", genPreset, strings.Join(keys, ", ")))
		}
		cfg = preset
		if name == "dataset" {
			name = genPreset
		}
	}
	if genTxns > 0 {
		cfg.NumTransactions = genTxns
	}
	if genItems > 0 {
		cfg.NumItems = genItems
	}

	generator := dataio.NewGenerator(cfg, genSeed, cliLogger.Slog())
	files, err := generator.GenerateDataset(genOutDir, name)
	if err != nil {
		exitError("failed to generate dataset", err)
	}

	fmt.Printf("Generated dataset %q (seed %d)\n", name, genSeed)
	fmt.Printf("  database: %s\n", files.DatabaseFile)
	fmt.Printf("  profits:  %s\n", files.ProfitFile)
}
