// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/probmine/services/miner/handlers"
	"github.com/AleutianAI/probmine/services/miner/jobs"
	"github.com/AleutianAI/probmine/services/miner/storage"
	"github.com/AleutianAI/probmine/services/miner/telemetry"
)

// SetupRoutes mounts the miner service API on the router.
func SetupRoutes(router *gin.Engine, manager *jobs.Manager, store *storage.Store, dataDir string) {
	router.GET("/health", handlers.HealthCheck)

	if metricsHandler := telemetry.MetricsHandler(); metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		jobsGroup := v1.Group("/jobs")
		{
			jobsGroup.POST("", handlers.SubmitJob(manager, dataDir))
			jobsGroup.GET("", handlers.ListJobs(store))
			jobsGroup.GET("/:jobId", handlers.GetJob(store))
			jobsGroup.GET("/:jobId/results", handlers.GetResults(store))
			jobsGroup.GET("/:jobId/progress", handlers.JobProgress(manager, store))
			jobsGroup.POST("/:jobId/cancel", handlers.CancelJob(manager))
			jobsGroup.DELETE("/:jobId", handlers.DeleteJob(store))
		}
		datasets := v1.Group("/datasets")
		{
			datasets.POST("", handlers.UploadDataset(dataDir))
			datasets.GET("", handlers.ListDatasets(dataDir))
			datasets.POST("/generate", handlers.GenerateDataset(dataDir))
		}
	}
}
