// Package httpds fetches delimited input over HTTP(S). Transport errors, 429
// and 5xx responses are retried with exponential backoff, a Retry-After
// header replaces the computed wait, and a response whose declared
// Content-Length exceeds the input ceiling is refused before its body is
// read.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"csvpipe/internal/datasource"
)

const (
	// DefaultTimeout bounds one attempt, body included, when Config.Timeout
	// is zero.
	DefaultTimeout = 30 * time.Second
	// DefaultRetries is the retry count the CLI starts from.
	DefaultRetries = 3

	firstBackoff = 200 * time.Millisecond
	maxBackoff   = 5 * time.Second

	acceptDelimited = "text/csv, text/tab-separated-values, text/plain;q=0.9, */*;q=0.5"
	userAgent       = "csvpipe"
)

// Config tunes a Client.
type Config struct {
	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	// Retries is the number of attempts after the first. Negative is zero.
	Retries int
	// Insecure skips TLS certificate verification.
	Insecure bool
	// MaxBytes refuses a response that declares a larger Content-Length.
	// Zero or negative disables the check; undeclared lengths are still
	// capped by datasource.ReadLimited.
	MaxBytes int64
}

// Client downloads URLs with retry.
type Client struct {
	http     *http.Client
	retries  int
	maxBytes int64

	// wait pauses between attempts and returns early on cancellation.
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}
	return &Client{
		http:     &http.Client{Timeout: timeout, Transport: tr},
		retries:  max(cfg.Retries, 0),
		maxBytes: cfg.MaxBytes,
		wait:     waitContext,
	}
}

// Fetch GETs url and returns the body of the first 2xx response; the caller
// closes it. A declared length above MaxBytes fails with
// datasource.ErrTooLarge and is not retried. Other non-transient statuses
// fail at once.
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		var retryAfter time.Duration
		resp, err := c.get(ctx, url)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
				discard(resp)
				return nil, fmt.Errorf("%w: %s declares %d bytes, limit is %d",
					datasource.ErrTooLarge, url, resp.ContentLength, c.maxBytes)
			}
			return resp.Body, nil
		case transient(resp.StatusCode):
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
			discard(resp)
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		default:
			discard(resp)
			return nil, fmt.Errorf("httpds: GET %s: status %d", url, resp.StatusCode)
		}

		if attempt >= c.retries {
			return nil, fmt.Errorf("httpds: GET %s failed after %d attempt(s): %w", url, attempt+1, lastErr)
		}
		d := backoff(attempt)
		if retryAfter > 0 {
			d = min(retryAfter, maxBackoff)
		}
		slog.Debug("retrying download", "url", url, "attempt", attempt+1, "wait", d, "error", lastErr)
		if err := c.wait(ctx, d); err != nil {
			return nil, err
		}
	}
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	req.Header.Set("Accept", acceptDelimited)
	req.Header.Set("User-Agent", userAgent)
	return c.http.Do(req)
}

func transient(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// discard drains a little of an unwanted body so the connection can be
// reused, then closes it.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}

// backoff doubles firstBackoff per attempt up to maxBackoff.
func backoff(attempt int) time.Duration {
	if attempt >= 8 {
		return maxBackoff
	}
	return min(firstBackoff<<attempt, maxBackoff)
}

// parseRetryAfter reads delay-seconds or an HTTP date. Anything unusable,
// or a date in the past, is zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
