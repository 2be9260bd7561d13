// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataio loads and writes the text formats the miner consumes and
// produces, and generates synthetic datasets for testing and benchmarks.
//
// Profit table: one `<item-id> <profit>` pair per line. Transaction
// database: one transaction per line, whitespace-separated entries of the
// form `item:quantity[:probability]`; a missing probability means 1.0.
// Blank lines and lines starting with '#' are ignored in both formats.
package dataio

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/probmine/pkg/mining/core"
)

// Loader reads profit tables and transaction databases. Malformed entries
// are logged and skipped rather than failing the whole file; an empty
// result is an input error.
type Loader struct {
	logger *slog.Logger
}

// NewLoader builds a loader. A nil logger means slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadProfits reads a profit table file.
func (l *Loader) LoadProfits(path string) (map[int]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profit table: %w", err)
	}
	defer f.Close()

	profits, err := l.ParseProfits(f)
	if err != nil {
		return nil, fmt.Errorf("profit table %s: %w", path, err)
	}
	l.logger.Info("loaded profit table", "path", path, "items", len(profits))
	return profits, nil
}

// ParseProfits parses profit table content from a reader.
func (l *Loader) ParseProfits(r io.Reader) (map[int]float64, error) {
	profits := make(map[int]float64)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			l.logger.Warn("invalid profit entry", "line", lineNo, "content", line)
			continue
		}
		item, err := strconv.Atoi(fields[0])
		if err != nil {
			l.logger.Warn("invalid item id in profit table", "line", lineNo, "value", fields[0])
			continue
		}
		profit, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			l.logger.Warn("invalid profit value", "line", lineNo, "value", fields[1])
			continue
		}
		if _, dup := profits[item]; dup {
			l.logger.Warn("duplicate profit entry, overwriting", "line", lineNo, "item", item)
		}
		profits[item] = profit
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read profit table: %w", err)
	}
	if len(profits) == 0 {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, core.ErrEmptyProfitTable)
	}
	return profits, nil
}

// LoadDatabase reads a transaction database file. Transactions receive tids
// starting at 1 in file order.
func (l *Loader) LoadDatabase(path string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer f.Close()

	database, err := l.ParseDatabase(f)
	if err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	l.logger.Info("loaded transaction database", "path", path, "transactions", len(database))
	return database, nil
}

// ParseDatabase parses transaction database content from a reader.
func (l *Loader) ParseDatabase(r io.Reader) ([]core.Transaction, error) {
	var database []core.Transaction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	tid := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		txn, ok := l.parseTransaction(line, tid, lineNo)
		if !ok {
			continue
		}
		database = append(database, txn)
		tid++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}
	if len(database) == 0 {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, core.ErrEmptyDatabase)
	}
	return database, nil
}

// parseTransaction parses one `item:quantity[:probability]` line. Invalid
// entries are dropped; a line with no valid entries yields no transaction.
func (l *Loader) parseTransaction(line string, tid, lineNo int) (core.Transaction, bool) {
	items := make(map[int]core.ItemOccurrence)
	for _, entry := range strings.Fields(line) {
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			l.logger.Warn("invalid transaction entry", "line", lineNo, "entry", entry)
			continue
		}
		item, err := strconv.Atoi(parts[0])
		if err != nil {
			l.logger.Warn("invalid item id", "line", lineNo, "entry", entry)
			continue
		}
		quantity, err := strconv.Atoi(parts[1])
		if err != nil || quantity <= 0 {
			l.logger.Warn("invalid quantity", "line", lineNo, "entry", entry)
			continue
		}
		probability := core.DefaultProbability
		if len(parts) == 3 {
			probability, err = strconv.ParseFloat(parts[2], 64)
			if err != nil || probability < 0 || probability > 1 {
				l.logger.Warn("invalid probability", "line", lineNo, "entry", entry)
				continue
			}
		}
		items[item] = core.ItemOccurrence{Quantity: quantity, Probability: probability}
	}
	if len(items) == 0 {
		l.logger.Warn("transaction with no valid entries skipped", "line", lineNo)
		return core.Transaction{}, false
	}
	txn, err := core.NewTransaction(tid, items)
	if err != nil {
		l.logger.Warn("transaction rejected", "line", lineNo, "error", err)
		return core.Transaction{}, false
	}
	return txn, true
}
