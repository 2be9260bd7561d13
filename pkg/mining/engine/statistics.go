// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "sync/atomic"

// Statistics collects run counters. All counters are monotone and updated
// with atomic increments; intermediate values from different counters are
// not mutually consistent, only the final snapshot after Mine returns is.
type Statistics struct {
	candidatesGenerated atomic.Int64
	candidatesPruned    atomic.Int64
	utilityListsCreated atomic.Int64

	euPruned         atomic.Int64
	epPruned         atomic.Int64
	rtwuPruned       atomic.Int64
	branchPruned     atomic.Int64
	bulkBranchPruned atomic.Int64
}

func (s *Statistics) AddCandidatesGenerated(n int64) { s.candidatesGenerated.Add(n) }
func (s *Statistics) AddCandidatesPruned(n int64)    { s.candidatesPruned.Add(n) }
func (s *Statistics) AddUtilityListsCreated(n int64) { s.utilityListsCreated.Add(n) }
func (s *Statistics) AddEUPruned(n int64)            { s.euPruned.Add(n) }
func (s *Statistics) AddEPPruned(n int64)            { s.epPruned.Add(n) }
func (s *Statistics) AddRTWUPruned(n int64)          { s.rtwuPruned.Add(n) }
func (s *Statistics) AddBranchPruned(n int64)        { s.branchPruned.Add(n) }
func (s *Statistics) AddBulkBranchPruned(n int64)    { s.bulkBranchPruned.Add(n) }

func (s *Statistics) CandidatesGenerated() int64 { return s.candidatesGenerated.Load() }
func (s *Statistics) CandidatesPruned() int64    { return s.candidatesPruned.Load() }

// Snapshot is the read-only statistics block handed to callers after a run.
type Snapshot struct {
	CandidatesGenerated  int64   `json:"candidates_generated"`
	CandidatesPruned     int64   `json:"candidates_pruned"`
	UtilityListsCreated  int64   `json:"utility_lists_created"`
	RTWUPruned           int64   `json:"rtwu_pruned"`
	EUPruned             int64   `json:"eu_pruned"`
	EPPruned             int64   `json:"ep_pruned"`
	BranchPruned         int64   `json:"branch_pruned"`
	BulkBranchPruned     int64   `json:"bulk_branch_pruned"`
	PruningEffectiveness float64 `json:"pruning_effectiveness"`

	ExecutionTimeMs int64  `json:"execution_time_ms"`
	PeakMemoryBytes uint64 `json:"peak_memory_bytes"`

	SuccessfulUpdates int64   `json:"successful_updates"`
	CASRetries        int64   `json:"cas_retries"`
	CASEfficiency     float64 `json:"cas_efficiency"`

	TasksSubmitted int64 `json:"tasks_submitted"`
	TasksCompleted int64 `json:"tasks_completed"`
}

// snapshotCounters captures the pruning counters and the derived
// effectiveness ratio. The engine fills in timing, memory, top-K, and
// scheduler figures.
func (s *Statistics) snapshotCounters() Snapshot {
	generated := s.candidatesGenerated.Load()
	pruned := s.candidatesPruned.Load()
	effectiveness := 0.0
	if generated > 0 {
		effectiveness = float64(pruned) / float64(generated)
	}
	return Snapshot{
		CandidatesGenerated:  generated,
		CandidatesPruned:     pruned,
		UtilityListsCreated:  s.utilityListsCreated.Load(),
		RTWUPruned:           s.rtwuPruned.Load(),
		EUPruned:             s.euPruned.Load(),
		EPPruned:             s.epPruned.Load(),
		BranchPruned:         s.branchPruned.Load(),
		BulkBranchPruned:     s.bulkBranchPruned.Load(),
		PruningEffectiveness: effectiveness,
	}
}
