// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the gin handlers of the miner service API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/probmine/services/miner/datatypes"
	"github.com/AleutianAI/probmine/services/miner/jobs"
	"github.com/AleutianAI/probmine/services/miner/storage"
)

// resolveDataFile anchors relative paths in the service data directory.
func resolveDataFile(dataDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}

// SubmitJob accepts a mining request and schedules it asynchronously.
func SubmitJob(manager *jobs.Manager, dataDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.MiningRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		jobID, err := manager.Submit(jobs.SubmitRequest{
			DatabaseFile:    resolveDataFile(dataDir, req.DatabaseFile),
			ProfitFile:      resolveDataFile(dataDir, req.ProfitFile),
			K:               req.K,
			MinProbability:  req.MinProbability,
			AdaptivePruning: req.AdaptivePruning,
		})
		if err != nil {
			slog.Error("failed to submit mining job", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "failed to submit job"})
			return
		}
		c.JSON(http.StatusAccepted, datatypes.JobSubmitted{JobID: jobID})
	}
}

// GetJob returns one job's metadata.
func GetJob(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := store.GetJob(c.Param("jobId"))
		if errors.Is(err, storage.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// ListJobs returns all jobs, newest first.
func ListJobs(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.ListJobs()
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": list, "count": len(list)})
	}
}

// GetResults returns a job's ranked itemsets with optional offset/limit
// pagination.
func GetResults(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("jobId")
		if _, err := store.GetJob(jobID); errors.Is(err, storage.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		rows, err := store.GetResults(jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		total := len(rows)
		if offset > 0 {
			if offset > total {
				offset = total
			}
			rows = rows[offset:]
		}
		if limit > 0 && limit < len(rows) {
			rows = rows[:limit]
		}
		c.JSON(http.StatusOK, gin.H{"job_id": jobID, "total": total, "itemsets": rows})
	}
}

// CancelJob signals a running job to stop.
func CancelJob(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("jobId")
		if !manager.Cancel(jobID) {
			c.JSON(http.StatusConflict,
				datatypes.ErrorResponse{Error: "job is not running: " + jobID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"job_id": jobID, "cancelled": true})
	}
}

// DeleteJob removes a finished job and its results.
func DeleteJob(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("jobId")
		job, err := store.GetJob(jobID)
		if errors.Is(err, storage.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if !job.Status.Terminal() {
			c.JSON(http.StatusConflict,
				datatypes.ErrorResponse{Error: "job is still running: " + jobID})
			return
		}
		if err := store.DeleteJob(jobID); err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"job_id": jobID, "deleted": true})
	}
}
