// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

type ProbMineConfig struct {
	// Logging: destinations and verbosity for the CLI and service
	Logging LoggingConfig `yaml:"logging"`

	// Mining: default knobs for mining runs
	Mining MiningConfig `yaml:"mining"`

	// Server: miner service listen and storage settings
	Server ServerConfig `yaml:"server"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`   // e.g. ~/.probmine/logs; empty disables file logs
}

type MiningConfig struct {
	Workers         int  `yaml:"workers"`          // 0 means all CPUs
	AdaptivePruning bool `yaml:"adaptive_pruning"` // heuristic RTWU factor
}

type ServerConfig struct {
	Port              int    `yaml:"port"`                // default 12310
	DataDir           string `yaml:"data_dir"`            // uploaded/generated datasets + job store
	MaxConcurrentJobs int    `yaml:"max_concurrent_jobs"` // bound on parallel mining jobs
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ProbMineConfig {
	return ProbMineConfig{
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.probmine/logs",
		},
		Mining: MiningConfig{
			Workers:         0,
			AdaptivePruning: false,
		},
		Server: ServerConfig{
			Port:              12310,
			DataDir:           "~/.probmine/data",
			MaxConcurrentJobs: 2,
		},
	}
}
