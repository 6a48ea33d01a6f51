// Package provider wraps the remote forecast, place and routing sources behind TTL caches.
// Failures are absorbed here and turned into typed fallback values.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "tripguide-backend/1.0"

// Options tunes the outbound HTTP behaviour shared by all providers
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
}

// DefaultOptions returns a 10 second timeout and 5 requests per second
func DefaultOptions() Options {
	return Options{Timeout: 10 * time.Second, RequestsPerSecond: 5}
}

// httpClient is a throttled JSON getter
type httpClient struct {
	http    *http.Client
	limiter *rate.Limiter
}

func newHTTPClient(opts Options) *httpClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &httpClient{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// getJSON issues a GET and decodes a 200 response into out
func (c *httpClient) getJSON(ctx context.Context, url string, out any) (err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing body: %w", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
