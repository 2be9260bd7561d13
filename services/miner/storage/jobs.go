// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage persists mining job metadata and results in BadgerDB.
//
// Keys: `job:<id>` holds the JSON-encoded JobRecord, `results:<id>` the
// JSON-encoded ranked itemset rows. Everything about a job is small; full
// reads and rewrites per update keep the model simple.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/probmine/pkg/mining/dataio"
	"github.com/AleutianAI/probmine/pkg/mining/engine"
)

// ErrJobNotFound is returned for lookups of unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle state of a mining job.
type JobStatus string

const (
	StatusPending   JobStatus = "PENDING"
	StatusRunning   JobStatus = "RUNNING"
	StatusCompleted JobStatus = "COMPLETED"
	StatusFailed    JobStatus = "FAILED"
	StatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// JobRecord is the persisted metadata of one mining job.
type JobRecord struct {
	ID             string  `json:"id"`
	K              int     `json:"k"`
	MinProbability float64 `json:"min_probability"`
	DatabaseFile   string  `json:"database_file"`
	ProfitFile     string  `json:"profit_file"`

	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`

	TransactionCount int   `json:"transaction_count"`
	ItemCount        int   `json:"item_count"`
	ItemsetsFound    int   `json:"itemsets_found"`
	ExecutionTimeMs  int64 `json:"execution_time_ms"`

	Statistics engine.Snapshot `json:"statistics"`
}

// Store is the badger-backed job repository.
//
// Thread Safety: Safe for concurrent use; badger transactions provide
// isolation.
type Store struct {
	db *badger.DB
}

// NewStore wraps an opened badger database.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

func jobKey(id string) []byte     { return []byte("job:" + id) }
func resultsKey(id string) []byte { return []byte("results:" + id) }

// PutJob writes (or overwrites) a job record.
func (s *Store) PutJob(job JobRecord) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(jobKey(job.ID), data)
	})
}

// GetJob fetches one job record.
func (s *Store) GetJob(id string) (JobRecord, error) {
	var job JobRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	return job, err
}

// ListJobs returns all jobs, newest first.
func (s *Store) ListJobs() ([]JobRecord, error) {
	var jobs []JobRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("job:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var job JobRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			})
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(jobs, func(a, b JobRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return jobs, nil
}

// PutResults writes the ranked itemset rows for a job.
func (s *Store) PutResults(id string, rows []dataio.ItemsetRow) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode results %s: %w", id, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(resultsKey(id), data)
	})
}

// GetResults fetches the ranked itemset rows for a job. A job without
// stored results yields an empty slice, not an error.
func (s *Store) GetResults(id string) ([]dataio.ItemsetRow, error) {
	var rows []dataio.ItemsetRow
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultsKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rows)
		})
	})
	return rows, err
}

// DeleteJob removes a job and its results.
func (s *Store) DeleteJob(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(jobKey(id)); err != nil {
			return err
		}
		return txn.Delete(resultsKey(id))
	})
}
