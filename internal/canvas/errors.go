// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package canvas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// maxErrorBodySize caps how much of an error response is retained.
const maxErrorBodySize = 64 * 1024

// UpstreamError is a failed Canvas request after retries. StatusCode is 0 when
// no response was received.
type UpstreamError struct {
	StatusCode int
	URL        string
	Body       string
	Err        error

	retryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("canvas: GET %s: status %d: %s", e.URL, e.StatusCode, truncate(e.Body, 200))
	case e.StatusCode != 0:
		return fmt.Sprintf("canvas: GET %s: status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("canvas: GET %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("canvas: GET %s failed", e.URL)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the request may succeed if retried.
func (e *UpstreamError) Temporary() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 {
		return true
	}
	if e.StatusCode != 0 || e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// readBodyForError reads at most maxErrorBodySize bytes of r.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return string(body)
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
