// Package remote adapts the external document and readiness services over
// HTTP/JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aretw0/continuum/pkg/core"
)

// Config holds the configuration shared by the HTTP clients.
type Config struct {
	BaseURL string
	// Timeout bounds each request. Zero means core.DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond limits the sustained request rate. Zero disables limiting.
	RequestsPerSecond float64
	BurstSize         int
	// Token, if set, is sent as a bearer token.
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// client is the transport shared by DocumentClient and ReadinessClient.
type client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	token   string
	logger  *slog.Logger
	limiter *rateLimiter
}

func newClient(cfg Config) (*client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported scheme %q", base.Scheme)
	}

	c := &client{
		base:    base,
		http:    cfg.HTTPClient,
		timeout: cfg.Timeout,
		token:   cfg.Token,
		logger:  cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = core.DefaultTimeout
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.BurstSize
		if burst < 1 {
			burst = 1
		}
		c.limiter = newRateLimiter(cfg.RequestsPerSecond, burst)
	}
	return c, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is maps HTTP statuses onto the core taxonomy: 404 is ErrNotFound; 408, 429
// and 5xx are ErrTransient.
func (e *StatusError) Is(target error) bool {
	switch target {
	case core.ErrNotFound:
		return e.Status == http.StatusNotFound
	case core.ErrTransient:
		return e.Status == http.StatusRequestTimeout || e.Status == http.StatusTooManyRequests || e.Status >= 500
	}
	return false
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *client) do(ctx context.Context, method string, segments []string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", core.ErrTransient, err)
		}
	}

	endpoint := c.endpoint(segments...)
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed", "method", method, "url", endpoint, "error", err)
		return fmt.Errorf("%w: %s %s: %w", core.ErrTransient, method, endpoint, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("remote request", "method", method, "url", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
			c.limiter.backoff(retryAfter(resp.Header.Get("Retry-After")))
		}
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, URL: endpoint, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return core.Transient(ctx, err)
		}
		return fmt.Errorf("failed to decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func (c *client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.base.String() + "/" + strings.Join(escaped, "/")
}

// rateLimiter is a token bucket plus a backoff window opened by 429 responses.
type rateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request may be sent.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}
	return r.limiter.Wait(ctx)
}

func (r *rateLimiter) backoff(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at := time.Now().Add(d); at.After(r.retryAt) {
		r.retryAt = at
	}
}

// retryAfter parses a Retry-After header in seconds, defaulting to one second.
func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}
