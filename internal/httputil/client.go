// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-crawler/internal/observability"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// Fetcher issues a GET request and returns the response body. Stages
// depend on this interface so tests can substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// maxErrorBody caps how much of a failed response is kept in a StatusError.
const maxErrorBody = 512

// ClientConfig configures a Client.
type ClientConfig struct {
	Policy Policy

	// Delay is the minimum spacing between consecutive requests.
	Delay time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// HTTPClient overrides the underlying transport. Nil uses a default client.
	HTTPClient *http.Client
}

// Client is a paced, retrying HTTP client. It waits on the pacer before
// every attempt, including retries.
type Client struct {
	http      *http.Client
	policy    Policy
	limiter   *rate.Limiter
	userAgent string
	header    http.Header
	log       zerolog.Logger
	metrics   *observability.Metrics
}

// NewClient creates a Client. metrics may be nil.
func NewClient(cfg ClientConfig, log zerolog.Logger, metrics *observability.Metrics) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "paper-crawler/dev"
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	return &Client{
		http:      hc,
		policy:    cfg.Policy,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: ua,
		header:    http.Header{},
		log:       log,
		metrics:   metrics,
	}
}

// WithHeader returns a client that sends an extra header on every request.
// The returned client shares the pacer, transport and metrics of c.
func (c *Client) WithHeader(key, value string) *Client {
	cp := *c
	cp.header = c.header.Clone()
	cp.header.Set(key, value)
	return &cp
}

// Fetch issues GET endpoint?params and returns the body of a 2xx response.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target := endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	label := endpointLabel(endpoint)

	var body []byte
	attempt := 0
	err := Retry(ctx, c.policy, c.log, "GET "+label, func(ctx context.Context) error {
		if attempt > 0 && c.metrics != nil {
			c.metrics.Retries.WithLabelValues(label).Inc()
		}
		attempt++

		b, err := c.do(ctx, target, label)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, target, label string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	if c.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.observe(label, start)
	if err != nil {
		c.count(label, "transport")
		c.log.Debug().Err(err).Str("endpoint", label).Msg("request failed")
		return nil, fmt.Errorf("GET %s: %w", label, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.count(label, "transport")
		return nil, fmt.Errorf("reading %s response: %w", label, err)
	}

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable && retryAfter > 0:
		c.count(label, "rate_limited")
		if c.metrics != nil {
			c.metrics.RateLimited.WithLabelValues(label).Inc()
		}
		return nil, &types.RateLimitError{Status: resp.StatusCode, RetryAfter: retryAfter}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.count(label, "status")
		return nil, &types.StatusError{Code: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}

	c.count(label, "ok")
	c.log.Debug().Str("endpoint", label).Int("bytes", len(data)).Msg("request ok")
	return data, nil
}

func (c *Client) count(label, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestsTotal.WithLabelValues(label, outcome).Inc()
}

func (c *Client) observe(label string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

// endpointLabel names an endpoint for logs and metrics without leaking
// per-record path segments: E-utilities scripts keep their file name
// (esearch.fcgi), everything else is reduced to the host.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "unknown"
	}
	if base := path.Base(u.Path); strings.HasSuffix(base, ".fcgi") {
		return base
	}
	if u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// parseRetryAfter accepts both the delta-seconds and the HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(v, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return 0
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
