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
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/coursescope/internal/config"
	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
)

// BreakerName labels the circuit breaker in logs and metrics.
const BreakerName = "canvas"

// Client is safe for concurrent use by multiple course audits.
type Client struct {
	baseURL        string
	token          string
	perPage        int
	pageDelay      time.Duration
	requestTimeout time.Duration
	maxRetries     int
	retryBaseDelay time.Duration
	maxRetryDelay  time.Duration // ceiling on server-requested Retry-After waits
	rateLimitFloor int

	httpClient *http.Client
	limiter    *rate.Limiter // client-wide, nil when unlimited
	cb         *gobreaker.CircuitBreaker[*page]
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter shares an aggregate request limiter across clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient builds a client from cfg. Missing or malformed credentials are
// reported as *models.ConfigurationError.
func NewClient(cfg *config.CanvasConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		token:          cfg.Token,
		perPage:        cfg.PerPage,
		pageDelay:      cfg.PageDelay,
		requestTimeout: cfg.RequestTimeout,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		maxRetryDelay:  min(cfg.RetryBaseDelay<<cfg.MaxRetries, maxRetryAfter),
		rateLimitFloor: cfg.RateLimitFloor,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = newBreaker(BreakerName)
	return c, nil
}

// BaseURL returns the configured API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newBreaker trips at a 60% failure rate over at least 10 requests and probes
// again after 60s with up to 3 requests.
func newBreaker(name string) *gobreaker.CircuitBreaker[*page] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*page](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), stateToFloat(to))
		},
		// Client errors other than 429 say nothing about Canvas health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var ue *UpstreamError
			if errors.As(err, &ue) && ue.StatusCode >= 400 && ue.StatusCode < 500 {
				return ue.StatusCode != http.StatusTooManyRequests
			}
			return false
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// page is one successful response.
type page struct {
	status    int
	body      []byte
	next      string
	remaining float64
	hasQuota  bool
}

// resolve joins a relative API path onto the base URL.
func (c *Client) resolve(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// maxRetryAfter bounds how long a Retry-After header can park a worker.
const maxRetryAfter = time.Minute

// getPage fetches one URL through the breaker, retrying transient failures.
func (c *Client) getPage(ctx context.Context, rawURL string) (*page, error) {
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &UpstreamError{URL: rawURL, Err: err}
			}
		}

		p, err := c.cb.Execute(func() (*page, error) {
			return c.do(ctx, rawURL)
		})
		if err == nil {
			return p, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &UpstreamError{URL: rawURL, Err: err}
		}

		var ue *UpstreamError
		if !errors.As(err, &ue) {
			return nil, &UpstreamError{URL: rawURL, Err: err}
		}
		if !ue.Temporary() || attempt >= c.maxRetries || ctx.Err() != nil {
			return nil, ue
		}

		delay := c.retryBaseDelay * time.Duration(1<<attempt)
		if ue.retryAfter > 0 {
			delay = min(ue.retryAfter, c.maxRetryDelay)
		}
		metrics.RecordCanvasRetry(retryReason(ue))
		logging.Ctx(ctx).Warn().
			Str("url", logging.RedactURL(rawURL)).
			Int("status", ue.StatusCode).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Dur("retry_delay", delay).
			Msg("canvas request failed, retrying")

		if err := sleep(ctx, delay); err != nil {
			return nil, &UpstreamError{URL: rawURL, Err: err}
		}
	}
}

func retryReason(ue *UpstreamError) string {
	switch {
	case ue.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case ue.StatusCode >= 500:
		return "server_error"
	default:
		return "transport"
	}
}

// do issues a single GET bounded by the request timeout.
func (c *Client) do(ctx context.Context, rawURL string) (*page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &UpstreamError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCanvasRequest(0, time.Since(start))
		return nil, &UpstreamError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	metrics.RecordCanvasRequest(resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			URL:        rawURL,
			Body:       readBodyForError(resp.Body),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	p := &page{
		status: resp.StatusCode,
		body:   body,
		next:   nextLink(resp.Header.Values("Link")),
	}
	if v := resp.Header.Get("X-Rate-Limit-Remaining"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.remaining, p.hasQuota = f, true
		}
	}
	return p, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
