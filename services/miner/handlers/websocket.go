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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/probmine/services/miner/datatypes"
	"github.com/AleutianAI/probmine/services/miner/jobs"
	"github.com/AleutianAI/probmine/services/miner/storage"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// wsWriteTimeout bounds each progress write so a dead client cannot stall
// the handler.
const wsWriteTimeout = 10 * time.Second

// JobProgress streams a job's progress events over a WebSocket until the
// job reaches a terminal state or the client disconnects.
func JobProgress(manager *jobs.Manager, store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("jobId")

		// Subscribe before the state read and the upgrade so no event between
		// the state read and the first receive is lost.
		events, unsubscribe := manager.Subscribe(jobID)
		defer unsubscribe()

		job, err := store.GetJob(jobID)
		if errors.Is(err, storage.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("progress subscriber connected", "job_id", jobID)

		// Send the current state immediately on connect.
		initial := jobs.ProgressEvent{JobID: jobID, Status: job.Status}
		if err := writeEvent(ws, initial); err != nil {
			return
		}
		if job.Status.Terminal() {
			return
		}

		// Reader goroutine: surfaces client disconnects.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				slog.Info("progress subscriber disconnected", "job_id", jobID)
				return
			case event := <-events:
				if err := writeEvent(ws, event); err != nil {
					return
				}
				if event.Status.Terminal() {
					return
				}
			}
		}
	}
}

func writeEvent(ws *websocket.Conn, event jobs.ProgressEvent) error {
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err := ws.WriteJSON(event)
	if err != nil {
		slog.Warn("failed to write WebSocket JSON", "error", err)
	}
	return err
}
