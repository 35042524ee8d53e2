package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable reports whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
	// OnRetry is called before each retry with the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

var DefaultRetry = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    10 * time.Second,
}

// QuoteRetry is the symbol-entry policy: three immediate attempts, no backoff.
var QuoteRetry = RetryConfig{
	MaxAttempts: 3,
}

// ErrAttemptsExhausted is wrapped, alongside the last attempt's error, when every attempt failed.
var ErrAttemptsExhausted = errors.New("all attempts failed")

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempts run out. A zero BaseDelay retries immediately. The error of the
// last attempt is wrapped so callers can still classify it with errors.Is.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetry.MaxAttempts
	}

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		} else if err := ctx.Err(); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w (%d), last error: %w", ErrAttemptsExhausted, cfg.MaxAttempts, lastErr)
}

// Do executes an HTTP request with exponential backoff retry on transport
// errors and 5xx responses. buildReq is called on each attempt to produce a
// fresh request, since request bodies are consumed.
func Do(ctx context.Context, client *http.Client, cfg RetryConfig, buildReq func() (*http.Request, error)) (*http.Response, error) {
	var errBuild error
	retryable := cfg.Retryable
	cfg.Retryable = func(err error) bool {
		if errBuild != nil {
			return false
		}
		return retryable == nil || retryable(err)
	}

	resp, err := Retry(ctx, cfg, func(ctx context.Context) (*http.Response, error) {
		req, err := buildReq()
		if err != nil {
			errBuild = err
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
		return resp, nil
	})
	if errBuild != nil {
		return nil, fmt.Errorf("build request: %w", errBuild)
	}
	return resp, err
}
