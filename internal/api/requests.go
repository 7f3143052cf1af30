// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"github.com/tomtom215/coursescope/internal/batch"
	"github.com/tomtom215/coursescope/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxCoursesPerRun = 1000
)

// CourseIDsRequest is the body of POST /batches and POST /audits/run. Ids can
// be given as a list, as free text, or both.
type CourseIDsRequest struct {
	CourseIDs []int64 `json:"course_ids" validate:"omitempty,max=1000,dive,courseid"`
	Raw       string  `json:"raw" validate:"max=65536"`
}

// ids merges both forms. Duplicates are removed downstream.
func (req *CourseIDsRequest) ids() ([]int64, error) {
	ids := append([]int64(nil), req.CourseIDs...)
	if req.Raw != "" {
		parsed, err := batch.ParseCourseIDs(req.Raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed...)
	}
	if len(ids) == 0 {
		return nil, &models.ValidationError{Field: "course_ids", Message: "course_ids or raw is required"}
	}
	if len(ids) > maxCoursesPerRun {
		return nil, &models.ValidationError{Field: "course_ids", Message: "at most 1000 course ids per request"}
	}
	return ids, nil
}

type batchIDParam struct {
	ID string `json:"id" validate:"required,uuid"`
}

// DebugConfig is returned by GET /debug/config.
type DebugConfig struct {
	BaseURL  string `json:"base_url"`
	TokenSet bool   `json:"token_set"`
	LogLevel string `json:"log_level"`
	Backend  string `json:"database_backend"`
}

// Health is returned by the health endpoints.
type Health struct {
	Status        string  `json:"status"`
	Store         string  `json:"store,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	WSClients     int     `json:"websocket_clients"`
}
