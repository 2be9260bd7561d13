// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jobs runs mining jobs asynchronously: one goroutine per job,
// bounded by a semaphore, with cancel support and progress fan-out to
// WebSocket subscribers.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/probmine/pkg/mining/core"
	"github.com/AleutianAI/probmine/pkg/mining/dataio"
	"github.com/AleutianAI/probmine/pkg/mining/engine"
	"github.com/AleutianAI/probmine/pkg/mining/parallel"
	"github.com/AleutianAI/probmine/services/miner/storage"
)

// SubmitRequest carries the validated parameters of a new job.
type SubmitRequest struct {
	DatabaseFile    string
	ProfitFile      string
	K               int
	MinProbability  float64
	AdaptivePruning bool
}

// ProgressEvent is one progress update streamed to subscribers.
type ProgressEvent struct {
	JobID     string            `json:"job_id"`
	Status    storage.JobStatus `json:"status"`
	Done      int               `json:"done"`
	Total     int               `json:"total"`
	Threshold float64           `json:"threshold"`
}

// Manager owns the lifecycle of mining jobs.
//
// Thread Safety: Safe for concurrent use.
type Manager struct {
	store   *storage.Store
	logger  *slog.Logger
	workers int
	sem     *parallel.Semaphore

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	subs    map[string]map[chan ProgressEvent]struct{}

	wg sync.WaitGroup
}

// NewManager builds a manager. maxConcurrent bounds simultaneously running
// jobs; workers is passed through to each run's miner (0 = all CPUs).
func NewManager(store *storage.Store, maxConcurrent, workers int, logger *slog.Logger) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   store,
		logger:  logger,
		workers: workers,
		sem:     parallel.NewSemaphore(maxConcurrent),
		cancels: make(map[string]context.CancelFunc),
		subs:    make(map[string]map[chan ProgressEvent]struct{}),
	}
}

// Submit persists a PENDING job and schedules its execution. Returns the
// new job id.
func (m *Manager) Submit(req SubmitRequest) (string, error) {
	jobID := uuid.New().String()
	job := storage.JobRecord{
		ID:             jobID,
		K:              req.K,
		MinProbability: req.MinProbability,
		DatabaseFile:   req.DatabaseFile,
		ProfitFile:     req.ProfitFile,
		Status:         storage.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.store.PutJob(job); err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[jobID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.execute(ctx, job, req)

	m.logger.Info("mining job submitted", "job_id", jobID, "k", req.K,
		"min_probability", req.MinProbability)
	return jobID, nil
}

// Cancel signals a running (or queued) job to stop. Returns false for
// unknown or already-finished jobs.
func (m *Manager) Cancel(jobID string) bool {
	m.mu.Lock()
	cancel, ok := m.cancels[jobID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Subscribe registers a progress listener for a job. The returned cancel
// function must be called to release the channel.
func (m *Manager) Subscribe(jobID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)
	m.mu.Lock()
	if m.subs[jobID] == nil {
		m.subs[jobID] = make(map[chan ProgressEvent]struct{})
	}
	m.subs[jobID][ch] = struct{}{}
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		if set, ok := m.subs[jobID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(m.subs, jobID)
			}
		}
		m.mu.Unlock()
	}
}

// Close cancels every in-flight job and waits for them to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// publish fans an event out to the job's subscribers. Slow subscribers drop
// events rather than stall the run.
func (m *Manager) publish(event ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[event.JobID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// execute runs one job to completion and persists the outcome.
func (m *Manager) execute(ctx context.Context, job storage.JobRecord, req SubmitRequest) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.cancels, job.ID)
		m.mu.Unlock()
	}()

	if err := m.sem.Acquire(ctx); err != nil {
		m.finish(job, storage.StatusCancelled, "cancelled before start", nil, nil)
		return
	}
	defer m.sem.Release()

	logger := m.logger.With("job_id", job.ID)

	job.Status = storage.StatusRunning
	job.StartedAt = time.Now().UTC()
	if err := m.store.PutJob(job); err != nil {
		logger.Error("failed to persist job start", "error", err)
	}
	m.publish(ProgressEvent{JobID: job.ID, Status: storage.StatusRunning})

	loader := dataio.NewLoader(logger)
	profits, err := loader.LoadProfits(req.ProfitFile)
	if err != nil {
		m.finish(job, storage.StatusFailed, err.Error(), nil, nil)
		return
	}
	database, err := loader.LoadDatabase(req.DatabaseFile)
	if err != nil {
		m.finish(job, storage.StatusFailed, err.Error(), nil, nil)
		return
	}
	job.TransactionCount = len(database)
	job.ItemCount = len(profits)

	miner, err := engine.NewMiner(profits, req.K, req.MinProbability,
		engine.WithWorkers(m.workers),
		engine.WithAdaptivePruning(req.AdaptivePruning),
		engine.WithLogger(logger),
		engine.WithProgress(func(done, total int, threshold float64) {
			m.publish(ProgressEvent{
				JobID:     job.ID,
				Status:    storage.StatusRunning,
				Done:      done,
				Total:     total,
				Threshold: threshold,
			})
		}),
	)
	if err != nil {
		m.finish(job, storage.StatusFailed, err.Error(), nil, nil)
		return
	}

	results, runErr := miner.Mine(ctx, database)
	snap := miner.Statistics()

	status := storage.StatusCompleted
	errMsg := ""
	switch {
	case errors.Is(runErr, core.ErrCancelled):
		status = storage.StatusCancelled
		errMsg = "cancelled"
	case runErr != nil:
		status = storage.StatusFailed
		errMsg = runErr.Error()
	}

	report := dataio.NewReport(req.K, req.MinProbability,
		len(database), len(profits), results, snap)
	m.finish(job, status, errMsg, report.Itemsets, &snap)

	logger.Info("mining job finished", "status", status,
		"itemsets", len(results), "duration_ms", snap.ExecutionTimeMs)
}

// finish seals the job record, stores results when present, and notifies
// subscribers of the terminal state.
func (m *Manager) finish(job storage.JobRecord, status storage.JobStatus,
	errMsg string, rows []dataio.ItemsetRow, snap *engine.Snapshot) {

	job.Status = status
	job.Error = errMsg
	job.CompletedAt = time.Now().UTC()
	if snap != nil {
		job.Statistics = *snap
		job.ExecutionTimeMs = snap.ExecutionTimeMs
	}
	job.ItemsetsFound = len(rows)

	if len(rows) > 0 {
		if err := m.store.PutResults(job.ID, rows); err != nil {
			m.logger.Error("failed to persist results", "job_id", job.ID, "error", err)
		}
	}
	if err := m.store.PutJob(job); err != nil {
		m.logger.Error("failed to persist job completion", "job_id", job.ID, "error", err)
	}
	m.publish(ProgressEvent{JobID: job.ID, Status: status})
}
