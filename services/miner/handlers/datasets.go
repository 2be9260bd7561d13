// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/probmine/pkg/mining/dataio"
	"github.com/AleutianAI/probmine/services/miner/datatypes"
)

// UploadDataset stores an uploaded database or profit file under the data
// directory. The stored name is the uploaded filename, flattened to its
// base to keep uploads inside the directory.
func UploadDataset(dataDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "missing file field"})
			return
		}
		name := filepath.Base(file.Filename)
		if name == "." || name == string(filepath.Separator) {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid filename"})
			return
		}
		dest := filepath.Join(dataDir, name)
		if err := c.SaveUploadedFile(file, dest); err != nil {
			slog.Error("failed to store upload", "file", name, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "failed to store file"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"file": name, "size": file.Size})
	}
}

// ListDatasets enumerates the files available in the data directory.
func ListDatasets(dataDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := os.ReadDir(dataDir)
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		files := make([]gin.H, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, gin.H{"name": entry.Name(), "size": info.Size()})
		}
		c.JSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
	}
}

// GenerateDataset creates a seeded synthetic dataset server-side.
func GenerateDataset(dataDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		cfg := dataio.DefaultGeneratorConfig()
		if req.Preset != "" {
			cfg = dataio.Presets()[req.Preset]
		}
		if req.Transactions > 0 {
			cfg.NumTransactions = req.Transactions
		}
		if req.Items > 0 {
			cfg.NumItems = req.Items
		}

		generator := dataio.NewGenerator(cfg, req.Seed, slog.Default())
		files, err := generator.GenerateDataset(dataDir, req.Name)
		if err != nil {
			slog.Error("failed to generate dataset", "name", req.Name, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "failed to generate dataset"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"database_file": filepath.Base(files.DatabaseFile),
			"profit_file":   filepath.Base(files.ProfitFile),
		})
	}
}
