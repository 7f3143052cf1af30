// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package batch

import (
	"slices"
	"testing"

	"github.com/tomtom215/coursescope/internal/models"
)

func TestParseCourseIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{"commas", "1,2,3", []int64{1, 2, 3}, false},
		{"mixed separators", " 10, 20\n30\t40 ,,50 ", []int64{10, 20, 30, 40, 50}, false},
		{"duplicates keep first order", "7 3 7 3 1", []int64{7, 3, 1}, false},
		{"large id", "9223372036854775807", []int64{9223372036854775807}, false},
		{"empty", "", nil, true},
		{"only separators", " , \n ", nil, true},
		{"letters", "12, abc", nil, true},
		{"zero", "0", nil, true},
		{"negative", "-5", nil, true},
		{"overflow", "99999999999999999999", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCourseIDs(tt.raw)
			if tt.wantErr {
				if !models.IsValidationError(err) {
					t.Errorf("ParseCourseIDs(%q) error = %v, want ValidationError", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCourseIDs(%q) error = %v", tt.raw, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseCourseIDs(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
