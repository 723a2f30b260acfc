package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// RetryPolicy controls exponential backoff for a retryable operation.
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy matches the retry budget the research loop uses for
// provider and reader calls unless a Config overrides it.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// PolicyFromMaxRetries builds a RetryPolicy from a Config.MaxRetries value,
// keeping the default backoff shape.
func PolicyFromMaxRetries(maxRetries int) RetryPolicy {
	p := DefaultRetryPolicy
	if maxRetries > 0 {
		p.MaxAttempts = maxRetries
	}
	return p
}

// RetryDo retries fn up to MaxAttempts times with exponential backoff.
// It stops on the first non-retryable error or context cancellation.
func RetryDo[T any](ctx context.Context, rp RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= rp.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}

		if attempt < rp.MaxAttempts {
			wait := time.Duration(float64(rp.InitialWait) * math.Pow(rp.Multiplier, float64(attempt)))
			if wait > rp.MaxWait {
				wait = rp.MaxWait
			}
			// Full jitter: sleep a random duration in [0, wait] rather than
			// the deterministic ceiling, so concurrent retries don't pile up
			// on the same schedule.
			if wait > 0 {
				wait = time.Duration(rand.Int63n(int64(wait) + 1))
			}
			slog.Debug("retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", wait), slog.Any("error", err))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

// RetryHTTP executes an HTTP request builder with retry logic, treating
// retryable status codes the same as transport errors.
func RetryHTTP(ctx context.Context, rp RetryPolicy, fn func() (*http.Response, error)) (*http.Response, error) {
	return RetryDo(ctx, rp, func() (*http.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if isRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, &httpStatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

// RetryBytes retries a call shaped like ImpersonatingClient.Do, treating
// retryable HTTP status codes the same as transport errors.
func RetryBytes(ctx context.Context, rp RetryPolicy, fn func() ([]byte, int, error)) ([]byte, int, error) {
	type result struct {
		data   []byte
		status int
	}
	res, err := RetryDo(ctx, rp, func() (result, error) {
		data, status, derr := fn()
		if derr != nil {
			return result{}, derr
		}
		if isRetryableStatus(status) {
			return result{}, &httpStatusError{StatusCode: status}
		}
		return result{data: data, status: status}, nil
	})
	return res.data, res.status, err
}

// httpStatusError wraps a retryable HTTP status code so isRetryable can
// recognize it via errors.As without inspecting *http.Response directly.
type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

func isRetryable(err error) bool {
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// net.Error is implemented by *net.OpError too; check Timeout() last.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
