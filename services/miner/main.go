// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/probmine/services/miner/jobs"
	"github.com/AleutianAI/probmine/services/miner/routes"
	"github.com/AleutianAI/probmine/services/miner/storage"
	badgerstore "github.com/AleutianAI/probmine/services/miner/storage/badger"
	"github.com/AleutianAI/probmine/services/miner/telemetry"
)

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	port := os.Getenv("MINER_PORT")
	if port == "" {
		port = "12310"
	}
	dataDir := os.Getenv("MINER_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	maxJobs := envInt("MINER_MAX_CONCURRENT_JOBS", 2)
	workers := envInt("MINER_WORKERS", 0)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		log.Fatalf("failed to setup telemetry: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("failed to create data directory %s: %v", dataDir, err)
	}

	badgerCfg := badgerstore.DefaultConfig(dataDir + "/jobs")
	badgerCfg.Logger = logger
	db, stopGC, err := badgerstore.Open(badgerCfg)
	if err != nil {
		log.Fatalf("failed to open the job store: %v", err)
	}
	defer db.Close()
	defer stopGC()

	store := storage.NewStore(db)
	manager := jobs.NewManager(store, maxJobs, workers, logger)
	defer manager.Close()

	router := gin.Default()
	router.Use(otelgin.Middleware("probmine-miner"))
	routes.SetupRoutes(router, manager, store, dataDir)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("miner service listening", "port", port, "data_dir", dataDir,
			"max_concurrent_jobs", maxJobs)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown: stop accepting requests, let running jobs observe
	// cancellation through manager.Close (deferred above).
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down miner service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}
