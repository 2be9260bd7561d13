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
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// GeneratorConfig controls synthetic dataset shape.
type GeneratorConfig struct {
	NumTransactions       int     `yaml:"num_transactions"`
	NumItems              int     `yaml:"num_items"`
	MinItemsPerTxn        int     `yaml:"min_items_per_txn"`
	MaxItemsPerTxn        int     `yaml:"max_items_per_txn"`
	MinQuantity           int     `yaml:"min_quantity"`
	MaxQuantity           int     `yaml:"max_quantity"`
	MinProbability        float64 `yaml:"min_probability"`
	MaxProbability        float64 `yaml:"max_probability"`
	MinProfit             float64 `yaml:"min_profit"`
	MaxProfit             float64 `yaml:"max_profit"`
	NegativeProfitRatio   float64 `yaml:"negative_profit_ratio"`
	UseZipfDistribution   bool    `yaml:"use_zipf"`
	ZipfExponent          float64 `yaml:"zipf_exponent"`
}

// DefaultGeneratorConfig mirrors the shape of a typical retail benchmark:
// mostly positive profits with a 10% negative tail.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		NumTransactions:     1000,
		NumItems:            100,
		MinItemsPerTxn:      2,
		MaxItemsPerTxn:      10,
		MinQuantity:         1,
		MaxQuantity:         5,
		MinProbability:      0.3,
		MaxProbability:      1.0,
		MinProfit:           -10.0,
		MaxProfit:           50.0,
		NegativeProfitRatio: 0.1,
		ZipfExponent:        1.5,
	}
}

// Presets returns the named standard dataset configurations.
func Presets() map[string]GeneratorConfig {
	small := DefaultGeneratorConfig()
	small.NumTransactions, small.NumItems, small.MaxItemsPerTxn = 100, 20, 5

	medium := DefaultGeneratorConfig()
	medium.NumTransactions, medium.NumItems = 10000, 100

	large := DefaultGeneratorConfig()
	large.NumTransactions, large.NumItems, large.MaxItemsPerTxn = 100000, 500, 15
	large.UseZipfDistribution = true

	dense := DefaultGeneratorConfig()
	dense.NumTransactions, dense.NumItems = 5000, 50
	dense.MinItemsPerTxn, dense.MaxItemsPerTxn = 15, 25

	sparse := DefaultGeneratorConfig()
	sparse.NumTransactions, sparse.NumItems = 10000, 1000
	sparse.MinItemsPerTxn, sparse.MaxItemsPerTxn = 2, 5

	return map[string]GeneratorConfig{
		"small":  small,
		"medium": medium,
		"large":  large,
		"dense":  dense,
		"sparse": sparse,
	}
}

// DatasetFiles names the two files a generated dataset consists of.
type DatasetFiles struct {
	DatabaseFile string `json:"database_file"`
	ProfitFile   string `json:"profit_file"`
}

// Generator produces seeded synthetic datasets, so the same seed and config
// always yield byte-identical files.
type Generator struct {
	cfg    GeneratorConfig
	rng    *rand.Rand
	zipfCD []float64 // cumulative Zipf distribution over item positions
	logger *slog.Logger
}

// NewGenerator builds a generator with a fixed seed.
func NewGenerator(cfg GeneratorConfig, seed int64, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
	if cfg.UseZipfDistribution {
		g.zipfCD = zipfCumulative(cfg.NumItems, cfg.ZipfExponent)
	}
	return g
}

// zipfCumulative precomputes the normalised cumulative power-law weights
// once; per-transaction selection is then a single uniform draw.
func zipfCumulative(n int, exponent float64) []float64 {
	weights := make([]float64, n)
	sum := 0.0
	for i := range weights {
		weights[i] = 1.0 / math.Pow(float64(i+1), exponent)
		sum += weights[i]
	}
	cumulative := 0.0
	for i := range weights {
		cumulative += weights[i] / sum
		weights[i] = cumulative
	}
	return weights
}

// GenerateDataset writes `<name>_db.txt` and `<name>_profits.txt` under dir.
// Line content is produced deterministically up front; the two files are
// written concurrently.
func (g *Generator) GenerateDataset(dir, name string) (DatasetFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DatasetFiles{}, fmt.Errorf("create output directory: %w", err)
	}

	files := DatasetFiles{
		DatabaseFile: filepath.Join(dir, name+"_db.txt"),
		ProfitFile:   filepath.Join(dir, name+"_profits.txt"),
	}

	dbLines := g.databaseLines()
	profitLines := g.profitLines()

	var eg errgroup.Group
	eg.Go(func() error { return writeLines(files.DatabaseFile, dbLines) })
	eg.Go(func() error { return writeLines(files.ProfitFile, profitLines) })
	if err := eg.Wait(); err != nil {
		return DatasetFiles{}, err
	}

	g.logger.Info("generated dataset", "name", name,
		"transactions", g.cfg.NumTransactions, "items", g.cfg.NumItems)
	return files, nil
}

// databaseLines renders all transaction lines including the header comment.
func (g *Generator) databaseLines() []string {
	lines := make([]string, 0, g.cfg.NumTransactions+3)
	lines = append(lines,
		"# Transaction Database",
		fmt.Sprintf("# Transactions: %d, Items: %d", g.cfg.NumTransactions, g.cfg.NumItems),
		"# Format: item:quantity:probability ...")
	for tid := 1; tid <= g.cfg.NumTransactions; tid++ {
		lines = append(lines, g.transactionLine())
	}
	return lines
}

// profitLines renders the profit table including the header comment.
func (g *Generator) profitLines() []string {
	lines := make([]string, 0, g.cfg.NumItems+3)
	lines = append(lines,
		"# Profit Table",
		fmt.Sprintf("# Items: %d, Negative ratio: %.2f", g.cfg.NumItems, g.cfg.NegativeProfitRatio),
		"# Format: item profit")
	for item := 1; item <= g.cfg.NumItems; item++ {
		lines = append(lines, fmt.Sprintf("%d %.2f", item, g.profit()))
	}
	return lines
}

func (g *Generator) transactionLine() string {
	count := g.cfg.MinItemsPerTxn
	if spread := g.cfg.MaxItemsPerTxn - g.cfg.MinItemsPerTxn; spread > 0 {
		count += g.rng.Intn(spread + 1)
	}

	selected := make(map[int]struct{}, count)
	for len(selected) < count {
		selected[g.pickItem()] = struct{}{}
	}

	buf := make([]byte, 0, count*16)
	first := true
	for item := 1; item <= g.cfg.NumItems; item++ {
		if _, ok := selected[item]; !ok {
			continue
		}
		if !first {
			buf = append(buf, ' ')
		}
		first = false
		quantity := g.cfg.MinQuantity
		if spread := g.cfg.MaxQuantity - g.cfg.MinQuantity; spread > 0 {
			quantity += g.rng.Intn(spread + 1)
		}
		probability := g.cfg.MinProbability +
			(g.cfg.MaxProbability-g.cfg.MinProbability)*g.rng.Float64()
		buf = fmt.Appendf(buf, "%d:%d:%.3f", item, quantity, probability)
	}
	return string(buf)
}

func (g *Generator) pickItem() int {
	if g.zipfCD == nil {
		return g.rng.Intn(g.cfg.NumItems) + 1
	}
	draw := g.rng.Float64()
	for i, cumulative := range g.zipfCD {
		if draw <= cumulative {
			return i + 1
		}
	}
	return g.cfg.NumItems
}

func (g *Generator) profit() float64 {
	if g.rng.Float64() < g.cfg.NegativeProfitRatio {
		return g.cfg.MinProfit * g.rng.Float64()
	}
	return g.cfg.MaxProfit * g.rng.Float64()
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
