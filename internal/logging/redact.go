// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package logging

import (
	"fmt"
	"net/url"
	"strings"
)

// sensitiveParams are query parameters stripped from URLs before logging.
var sensitiveParams = []string{"access_token", "token", "api_key"}

// RedactURL removes credentials from a URL so it can be logged or returned in
// error details. Unparseable input is sanitized and returned as-is.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return SanitizeValue(raw)
	}
	if u.User != nil {
		u.User = url.User("redacted")
	}
	q := u.Query()
	changed := false
	for _, p := range sensitiveParams {
		if q.Has(p) {
			q.Set(p, "redacted")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// SanitizeValue escapes control characters so that user-supplied strings
// cannot forge log lines.
func SanitizeValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
