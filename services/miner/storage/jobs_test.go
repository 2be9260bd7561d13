// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/probmine/pkg/mining/dataio"
	badgerstore "github.com/AleutianAI/probmine/services/miner/storage/badger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, stop, err := badgerstore.Open(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		stop()
		require.NoError(t, db.Close())
	})
	return NewStore(db)
}

func TestStore_PutGetJob(t *testing.T) {
	store := testStore(t)

	job := JobRecord{
		ID:             "abc",
		K:              10,
		MinProbability: 0.3,
		DatabaseFile:   "db.txt",
		ProfitFile:     "profits.txt",
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.PutJob(job))

	got, err := store.GetJob("abc")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.K, got.K)
	assert.Equal(t, StatusPending, got.Status)
	assert.True(t, job.CreatedAt.Equal(got.CreatedAt))
}

func TestStore_GetJob_NotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetJob("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStore_ListJobs_NewestFirst(t *testing.T) {
	store := testStore(t)

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.PutJob(JobRecord{
			ID:        id,
			Status:    StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	jobs, err := store.ListJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "new", jobs[0].ID)
	assert.Equal(t, "mid", jobs[1].ID)
	assert.Equal(t, "old", jobs[2].ID)
}

func TestStore_Results(t *testing.T) {
	store := testStore(t)

	rows := []dataio.ItemsetRow{
		{Rank: 1, Items: []int{1, 2}, ExpectedUtility: 36, Probability: 0.72, Support: 1},
		{Rank: 2, Items: []int{2}, ExpectedUtility: 32, Probability: 0.8, Support: 1},
	}
	require.NoError(t, store.PutResults("abc", rows))

	got, err := store.GetResults("abc")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rows[0], got[0])
	assert.Equal(t, rows[1], got[1])

	// Unknown job: empty result, no error.
	empty, err := store.GetResults("missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_DeleteJob(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.PutJob(JobRecord{ID: "gone", Status: StatusCompleted, CreatedAt: time.Now()}))
	require.NoError(t, store.PutResults("gone", []dataio.ItemsetRow{{Rank: 1, Items: []int{1}}}))
	require.NoError(t, store.DeleteJob("gone"))

	_, err := store.GetJob("gone")
	assert.ErrorIs(t, err, ErrJobNotFound)
	rows, err := store.GetResults("gone")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
