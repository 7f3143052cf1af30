// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package canvas

import (
	"context"
	"errors"
	"net/url"

	"github.com/goccy/go-json"
)

const previewBytes = 500

// ConnectionReport is the outcome of TestConnection.
type ConnectionReport struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	URL        string `json:"url"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// EndpointProbe is the outcome of one probed course endpoint.
type EndpointProbe struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
}

// CourseProbe collects the per-endpoint probes for one course.
type CourseProbe struct {
	CourseID  int64           `json:"course_id"`
	Endpoints []EndpointProbe `json:"endpoints"`
}

// ModuleOutline is a module with its items.
type ModuleOutline struct {
	Module
	Items []ModuleItem `json:"items"`
}

// TestConnection issues one unpaginated GET of the caller's courses. Failures
// are reported in the result, never returned.
func (c *Client) TestConnection(ctx context.Context) ConnectionReport {
	rawURL := c.resolve("courses", url.Values{"per_page": {"1"}})
	report := ConnectionReport{URL: rawURL}

	p, err := c.do(ctx, rawURL)
	if err != nil {
		fillFailure(err, &report.StatusCode, &report.Error)
		var ue *UpstreamError
		if errors.As(err, &ue) {
			report.Body = truncate(ue.Body, previewBytes)
		}
		return report
	}
	report.Success = true
	report.StatusCode = p.status
	report.Body = truncate(string(p.body), previewBytes)
	return report
}

type probeTarget struct {
	name  string
	path  string
	query url.Values
}

// ProbeCourse checks each endpoint the auditor depends on with a single
// unpaginated GET, recording status and element count.
func (c *Client) ProbeCourse(ctx context.Context, courseID int64) CourseProbe {
	targets := []probeTarget{
		{"course_info", coursePath(courseID, ""), nil},
		{"enrollments", coursePath(courseID, "enrollments"), enrollmentQuery},
		{"pages", coursePath(courseID, "pages"), publishedQuery},
		{"quizzes", coursePath(courseID, "quizzes"), nil},
		{"assignments", coursePath(courseID, "assignments"), publishedQuery},
		{"discussions", coursePath(courseID, "discussion_topics"), activeQuery},
	}

	probe := CourseProbe{CourseID: courseID, Endpoints: make([]EndpointProbe, 0, len(targets))}
	for _, t := range targets {
		rawURL := c.resolve(t.path, c.withPerPage(t.query))
		ep := EndpointProbe{Name: t.name, URL: rawURL}

		p, err := c.do(ctx, rawURL)
		if err != nil {
			fillFailure(err, &ep.StatusCode, &ep.Error)
			probe.Endpoints = append(probe.Endpoints, ep)
			continue
		}
		ep.Success = true
		ep.StatusCode = p.status
		ep.Count = countElements(p.body)
		probe.Endpoints = append(probe.Endpoints, ep)
	}
	return probe
}

func fillFailure(err error, status *int, msg *string) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		*status = ue.StatusCode
		if ue.Body != "" {
			*msg = truncate(ue.Body, previewBytes)
			return
		}
	}
	*msg = err.Error()
}

// countElements returns the array length, or 1 for an object.
func countElements(body []byte) int {
	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err == nil {
		return len(arr)
	}
	return 1
}

// Outline returns the course modules in upstream order with their items.
func (c *Client) Outline(ctx context.Context, courseID int64) ([]ModuleOutline, error) {
	modules, err := c.Modules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]ModuleOutline, 0, len(modules))
	for _, m := range modules {
		items, err := c.ModuleItems(ctx, courseID, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ModuleOutline{Module: m, Items: items})
	}
	return out, nil
}
