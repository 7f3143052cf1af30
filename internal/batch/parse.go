// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package batch

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/tomtom215/coursescope/internal/models"
)

var idSeparators = regexp.MustCompile(`[\s,]+`)

// ParseCourseIDs reads course ids separated by commas and/or whitespace, as
// pasted into a form or passed on the command line. Duplicates are dropped,
// keeping first-seen order.
func ParseCourseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, tok := range idSeparators.Split(raw, -1) {
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil || id <= 0 {
			return nil, &models.ValidationError{
				Field:   "course_ids",
				Message: fmt.Sprintf("%q is not a positive course id", tok),
			}
		}
		ids = append(ids, id)
	}
	return normalizeIDs(ids)
}

// normalizeIDs rejects empty input and non-positive ids and removes duplicates.
func normalizeIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, &models.ValidationError{Field: "course_ids", Message: "at least one course id is required"}
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, &models.ValidationError{
				Field:   "course_ids",
				Message: fmt.Sprintf("%d is not a positive course id", id),
			}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
