// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/probmine/pkg/mining/dataio"
	"github.com/AleutianAI/probmine/services/miner/storage"
	badgerstore "github.com/AleutianAI/probmine/services/miner/storage/badger"
)

func testManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	db, stop, err := badgerstore.Open(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		stop()
		_ = db.Close()
	})
	store := storage.NewStore(db)
	manager := NewManager(store, 2, 2, nil)
	t.Cleanup(manager.Close)
	return manager, store
}

// generateFixture writes a small dataset and returns its file paths.
func generateFixture(t *testing.T) dataio.DatasetFiles {
	t.Helper()
	cfg := dataio.DefaultGeneratorConfig()
	cfg.NumTransactions = 40
	cfg.NumItems = 12
	files, err := dataio.NewGenerator(cfg, 7, nil).GenerateDataset(t.TempDir(), "jobs")
	require.NoError(t, err)
	return files
}

// waitTerminal polls until the job reaches a terminal status.
func waitTerminal(t *testing.T, store *storage.Store, jobID string) storage.JobRecord {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(jobID)
		require.NoError(t, err)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
	return storage.JobRecord{}
}

func TestManager_SubmitAndComplete(t *testing.T) {
	manager, store := testManager(t)
	files := generateFixture(t)

	jobID, err := manager.Submit(SubmitRequest{
		DatabaseFile:   files.DatabaseFile,
		ProfitFile:     files.ProfitFile,
		K:              5,
		MinProbability: 0.1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitTerminal(t, store, jobID)
	assert.Equal(t, storage.StatusCompleted, job.Status)
	assert.Equal(t, 40, job.TransactionCount)
	assert.Equal(t, 12, job.ItemCount)
	assert.False(t, job.StartedAt.IsZero())
	assert.False(t, job.CompletedAt.IsZero())

	rows, err := store.GetResults(jobID)
	require.NoError(t, err)
	assert.Equal(t, job.ItemsetsFound, len(rows))
	assert.LessOrEqual(t, len(rows), 5)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
	}
}

func TestManager_FailsOnMissingFiles(t *testing.T) {
	manager, store := testManager(t)

	jobID, err := manager.Submit(SubmitRequest{
		DatabaseFile:   "/nonexistent/db.txt",
		ProfitFile:     "/nonexistent/profits.txt",
		K:              5,
		MinProbability: 0.1,
	})
	require.NoError(t, err)

	job := waitTerminal(t, store, jobID)
	assert.Equal(t, storage.StatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}

func TestManager_Cancel(t *testing.T) {
	manager, store := testManager(t)
	files := generateFixture(t)

	jobID, err := manager.Submit(SubmitRequest{
		DatabaseFile:   files.DatabaseFile,
		ProfitFile:     files.ProfitFile,
		K:              5,
		MinProbability: 0.1,
	})
	require.NoError(t, err)

	// Cancel immediately; the run observes the signal at its next
	// checkpoint and lands in CANCELLED or finishes first in COMPLETED.
	manager.Cancel(jobID)
	job := waitTerminal(t, store, jobID)
	assert.Contains(t, []storage.JobStatus{storage.StatusCancelled, storage.StatusCompleted}, job.Status)

	// Unknown jobs cannot be cancelled.
	assert.False(t, manager.Cancel("unknown"))
}

func TestManager_SubscribeReceivesTerminalEvent(t *testing.T) {
	manager, store := testManager(t)
	files := generateFixture(t)

	jobID, err := manager.Submit(SubmitRequest{
		DatabaseFile:   files.DatabaseFile,
		ProfitFile:     files.ProfitFile,
		K:              3,
		MinProbability: 0.1,
	})
	require.NoError(t, err)

	events, unsubscribe := manager.Subscribe(jobID)
	defer unsubscribe()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			assert.Equal(t, jobID, event.JobID)
			if event.Status.Terminal() {
				return
			}
		case <-deadline:
			// The job may have finished before we subscribed; the store is
			// the source of truth either way.
			job := waitTerminal(t, store, jobID)
			assert.True(t, job.Status.Terminal())
			return
		}
	}
}
