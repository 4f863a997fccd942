package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// errRetriesExhausted wraps the last rate-limit error once every attempt
// has been spent.
var errRetriesExhausted = errors.New("retries exhausted")

// Backoff is a bounded exponential backoff policy for rate-limited calls.
// The sleeper is injectable so tests run without real delays.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultBackoff returns the policy used when configuration does not
// override it: 3 attempts starting at one second.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      true,
	}
}

// Retry runs fn, retrying only rate-limit failures. Other errors return
// immediately. Exhaustion wraps errRetriesExhausted so the caller can
// classify the outcome as ServiceUnavailable.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	attempts := b.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := b.sleep(ctx, b.delay(attempt)); err != nil {
				return err
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRateLimited(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %v", errRetriesExhausted, lastErr)
}

func (b Backoff) delay(attempt int) time.Duration {
	base := b.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	d := base << (attempt - 1)
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	if b.Jitter {
		d += time.Duration(rand.Int63n(int64(base)))
	}
	return d
}

func (b Backoff) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep != nil {
		return b.Sleep(ctx, d)
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

// isRateLimited reports whether the provider signaled throttling.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}
