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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/probmine/pkg/mining/dataio"
)

func runInspect(cmd *cobra.Command, args []string) {
	loader := dataio.NewLoader(cliLogger.Slog())

	profits, err := loader.LoadProfits(profitFile)
	if err != nil {
		exitError("failed to load profit table", err)
	}
	database, err := loader.LoadDatabase(databaseFile)
	if err != nil {
		exitError("failed to load database", err)
	}

	negative := 0
	for _, profit := range profits {
		if profit < 0 {
			negative++
		}
	}

	totalEntries := 0
	uncertain := 0
	distinct := make(map[int]struct{})
	for _, txn := range database {
		totalEntries += txn.Size()
		for item, occ := range txn.Items {
			distinct[item] = struct{}{}
			if occ.Probability < 1.0 {
				uncertain++
			}
		}
	}

	fmt.Printf("Transactions:        %d\n", len(database))
	fmt.Printf("Profit table items:  %d (%d negative)\n", len(profits), negative)
	fmt.Printf("Distinct items seen: %d\n", len(distinct))
	fmt.Printf("Avg items per txn:   %.2f\n", float64(totalEntries)/float64(len(database)))
	fmt.Printf("Uncertain entries:   %d of %d (%.1f%%)\n",
		uncertain, totalEntries, 100*float64(uncertain)/float64(totalEntries))
}
