// Package transport is the single HTTP boundary for every collaborator.
// Responses are unwrapped and failures mapped to *pipeline.Error here, so
// callers never see provider-specific envelopes.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/seenimoa/stocksense/internal/logger"
	"github.com/seenimoa/stocksense/internal/metrics"
	"github.com/seenimoa/stocksense/internal/pipeline"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps how much of a response is read.
const maxBody = 10 << 20

// Client performs rate-limited HTTP calls.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit allows rps requests per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client whose requests time out after timeout.
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
		log:       logger.For("transport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTP returns the underlying *http.Client for SDKs that take one.
func (c *Client) HTTP() *http.Client { return c.http }

// Call performs req and returns the unwrapped JSON payload: the "response"
// member when the body has one, else the whole body.
func (c *Client) Call(ctx context.Context, req Request) ([]byte, error) {
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return Unwrap(body), nil
}

// Fetch GETs rawURL with optional query params and returns the body text.
func (c *Client) Fetch(ctx context.Context, rawURL string, params map[string]string) (string, error) {
	body, err := c.do(ctx, Request{Method: http.MethodGet, URL: rawURL, Params: params})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, r Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, pipeline.TransportError("rate limiter", err)
		}
	}

	req, err := r.build(ctx)
	if err != nil {
		return nil, pipeline.TransportError("create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(req.URL.Host, "error").Inc()
		return nil, MapError(0, nil, fmt.Errorf("%s %s: %w", req.Method, redact(req.URL), err))
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(req.URL.Host, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, MapError(resp.StatusCode, nil, fmt.Errorf("read body: %w", err))
	}
	c.log.WithFields(logrus.Fields{
		"host":    req.URL.Host,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("upstream call")

	if resp.StatusCode >= 400 {
		return nil, MapError(resp.StatusCode, body, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(body), 1024),
		})
	}
	return body, nil
}

// redact drops query values so keys never reach logs or errors.
func redact(u *url.URL) string {
	cp := *u
	cp.RawQuery = ""
	return cp.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
