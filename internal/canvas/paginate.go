// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package canvas

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
)

// FetchAll harvests every page of the collection at path. The result holds the
// raw elements in upstream order.
func (c *Client) FetchAll(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	return c.fetchAll(ctx, path, query, "")
}

// FetchAllEnvelope harvests a collection whose pages are objects carrying the
// elements under key, e.g. {"quiz_submissions": [...]}.
func (c *Client) FetchAllEnvelope(ctx context.Context, path string, query url.Values, key string) ([]json.RawMessage, error) {
	return c.fetchAll(ctx, path, query, key)
}

func (c *Client) fetchAll(ctx context.Context, path string, query url.Values, envelope string) ([]json.RawMessage, error) {
	collection := collectionName(path)
	throttle := rate.NewLimiter(rate.Every(c.pageDelay), 1)
	nextURL := c.resolve(path, c.withPerPage(query))

	var (
		items []json.RawMessage
		pages int
		slow  bool // quota below floor: double the next page delay
	)
	for nextURL != "" {
		if err := throttle.Wait(ctx); err != nil {
			return nil, &UpstreamError{URL: nextURL, Err: err}
		}
		if slow {
			if err := sleep(ctx, c.pageDelay); err != nil {
				return nil, &UpstreamError{URL: nextURL, Err: err}
			}
		}

		p, err := c.getPage(ctx, nextURL)
		if err != nil {
			return nil, err
		}
		pages++
		metrics.RecordCanvasPage(collection)

		elems, err := decodePage(p.body, envelope)
		if err != nil {
			return nil, &UpstreamError{StatusCode: p.status, URL: nextURL, Err: err}
		}
		items = append(items, elems...)

		slow = p.hasQuota && c.rateLimitFloor > 0 && p.remaining < float64(c.rateLimitFloor)
		if slow && p.next != "" {
			logging.Ctx(ctx).Debug().
				Str("collection", collection).
				Float64("remaining", p.remaining).
				Msg("canvas quota below floor, slowing down")
		}
		nextURL = p.next
	}

	logging.Ctx(ctx).Debug().
		Str("collection", collection).
		Int("pages", pages).
		Int("items", len(items)).
		Msg("canvas collection harvested")
	return items, nil
}

// withPerPage copies query and adds per_page unless the caller set it.
func (c *Client) withPerPage(query url.Values) url.Values {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	if q.Get("per_page") == "" {
		q.Set("per_page", strconv.Itoa(c.perPage))
	}
	return q
}

func decodePage(body []byte, envelope string) ([]json.RawMessage, error) {
	if envelope != "" {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode %s envelope: %w", envelope, err)
		}
		inner, ok := wrapped[envelope]
		if !ok {
			return nil, fmt.Errorf("response has no %q key", envelope)
		}
		body = inner
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return elems, nil
}

// nextLink returns the rel="next" target from one or more Link header values.
func nextLink(headers []string) string {
	for _, header := range headers {
		for _, entry := range strings.Split(header, ",") {
			target, params, found := strings.Cut(entry, ";")
			if !found {
				continue
			}
			target = strings.TrimSpace(target)
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			for _, param := range strings.Split(params, ";") {
				name, value, _ := strings.Cut(strings.TrimSpace(param), "=")
				if strings.EqualFold(name, "rel") && strings.Trim(value, `"`) == "next" {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}

// collectionName is the last non-numeric path segment, used as a metric label.
func collectionName(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if _, err := strconv.ParseInt(segs[i], 10, 64); err != nil && segs[i] != "" {
			return segs[i]
		}
	}
	return "unknown"
}
