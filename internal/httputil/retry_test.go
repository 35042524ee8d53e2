package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_SuccessFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 1 * time.Second}

	resp, err := Do(context.Background(), client, cfg, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestDo_RetriesOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: 200 * time.Millisecond}

	resp, err := Do(context.Background(), client, cfg, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on third attempt, got %d", resp.StatusCode)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestDo_AllAttemptsFail(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream error"))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: 200 * time.Millisecond}

	_, err := Do(context.Background(), client, cfg, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	if err == nil {
		t.Fatal("expected error after all attempts failed")
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
	t.Logf("Error after retries: %v", err)
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: 200 * time.Millisecond}

	resp, err := Do(context.Background(), client, cfg, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if attempts.Load() != 1 {
		t.Fatalf("should not retry on 4xx, expected 1 attempt, got %d", attempts.Load())
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	cfg := RetryConfig{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second}

	_, err := Do(ctx, client, cfg, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	})
	if err == nil {
		t.Fatal("expected error from context cancellation")
	}
	t.Logf("Cancelled: %v", err)
}

func TestRetry_ImmediateSuccessOnThirdAttempt(t *testing.T) {
	var attempts int
	got, err := Retry(context.Background(), QuoteRetry, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("expected ok, got %q", got)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_SurfacesLastError(t *testing.T) {
	first := errors.New("first")
	last := errors.New("last")
	var attempts int
	_, err := Retry(context.Background(), QuoteRetry, func(ctx context.Context) (int, error) {
		attempts++
		if attempts == 3 {
			return 0, last
		}
		return 0, first
	})
	if !errors.Is(err, last) {
		t.Fatalf("expected last error to be wrapped, got %v", err)
	}
	if errors.Is(err, first) {
		t.Fatalf("earlier attempt errors should not leak: %v", err)
	}
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := QuoteRetry
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	var attempts int
	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetry_OnRetryCalledBetweenAttempts(t *testing.T) {
	var calls []int
	cfg := QuoteRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		calls = append(calls, attempt)
	}
	_, _ = Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		return 0, errors.New("nope")
	})
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("expected OnRetry for attempts 1 and 2, got %v", calls)
	}
}

func TestDo_BuildErrorNotRetried(t *testing.T) {
	var builds int
	_, err := Do(context.Background(), http.DefaultClient, DefaultRetry, func() (*http.Request, error) {
		builds++
		return nil, errors.New("bad url")
	})
	if err == nil {
		t.Fatal("expected build error")
	}
	if builds != 1 {
		t.Fatalf("expected 1 build, got %d", builds)
	}
}
