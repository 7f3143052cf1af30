// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package validation

import (
	"strings"
	"testing"
)

type submitBody struct {
	CourseIDs []int64 `json:"course_ids" validate:"required,min=1,max=3,dive,courseid"`
	Label     string  `json:"label,omitempty" validate:"omitempty,max=8"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	if err := ValidateStruct(&submitBody{CourseIDs: []int64{1, 2, 3}}); err != nil {
		t.Errorf("ValidateStruct() = %v, want nil", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     submitBody
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{
			name:      "missing ids",
			input:     submitBody{},
			wantField: "course_ids",
			wantTag:   "required",
			wantMsg:   "course_ids is required",
		},
		{
			name:      "too many ids",
			input:     submitBody{CourseIDs: []int64{1, 2, 3, 4}},
			wantField: "course_ids",
			wantTag:   "max",
			wantMsg:   "course_ids must have at most 3 items",
		},
		{
			name:      "zero id",
			input:     submitBody{CourseIDs: []int64{5, 0}},
			wantField: "course_ids[1]",
			wantTag:   "courseid",
			wantMsg:   "course_ids[1] must be a positive course id",
		},
		{
			name:      "negative id",
			input:     submitBody{CourseIDs: []int64{-7}},
			wantField: "course_ids[0]",
			wantTag:   "courseid",
		},
		{
			name:      "label too long",
			input:     submitBody{CourseIDs: []int64{1}, Label: "far too long"},
			wantField: "label",
			wantTag:   "max",
			wantMsg:   "label must have at most 8 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verr := ValidateStruct(&tt.input)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
			if tt.wantMsg != "" && errs[0].Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	single := ValidateStruct(&submitBody{}).ToAPIError()
	if single.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", single.Code)
	}
	if single.Details["field"] != "course_ids" {
		t.Errorf("Details[field] = %v", single.Details["field"])
	}

	multi := ValidateStruct(&submitBody{CourseIDs: []int64{0, -1}}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %#v, want 2 entries", multi.Details["fields"])
	}
	if !strings.Contains(multi.Message, "course_ids[0]") || !strings.Contains(multi.Message, "course_ids[1]") {
		t.Errorf("Message = %q, want both indexes", multi.Message)
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	t.Parallel()

	ve := &RequestValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
	if ve.ToAPIError().Message != "Validation failed" {
		t.Errorf("ToAPIError().Message = %q", ve.ToAPIError().Message)
	}
}
