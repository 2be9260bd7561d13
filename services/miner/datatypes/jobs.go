// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the request and response shapes of the miner
// service API.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// jobValidate is the validator instance for job datatypes.
var jobValidate *validator.Validate

func init() {
	jobValidate = validator.New()
}

// MiningRequest submits a new mining job. File paths are resolved against
// the service data directory unless absolute.
type MiningRequest struct {
	DatabaseFile    string  `json:"database_file" validate:"required"`
	ProfitFile      string  `json:"profit_file" validate:"required"`
	K               int     `json:"k" validate:"required,min=1"`
	MinProbability  float64 `json:"min_probability" validate:"gte=0,lte=1"`
	AdaptivePruning bool    `json:"adaptive_pruning"`
}

// Validate checks the request against its constraints.
func (r *MiningRequest) Validate() error {
	return jobValidate.Struct(r)
}

// GenerateRequest creates a synthetic dataset on the server.
type GenerateRequest struct {
	Name         string `json:"name" validate:"required,alphanum"`
	Preset       string `json:"preset" validate:"omitempty,oneof=small medium large dense sparse"`
	Seed         int64  `json:"seed"`
	Transactions int    `json:"transactions" validate:"gte=0"`
	Items        int    `json:"items" validate:"gte=0"`
}

// Validate checks the request against its constraints.
func (r *GenerateRequest) Validate() error {
	return jobValidate.Struct(r)
}

// JobSubmitted is the accepted-job response.
type JobSubmitted struct {
	JobID string `json:"job_id"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
