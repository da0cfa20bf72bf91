// Package retry runs remote calls with bounded attempts and a backoff strategy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Strategy selects how the wait between attempts grows.
type Strategy int

const (
	// Exponential waits initial, 2*initial, 4*initial, ...
	Exponential Strategy = iota
	// Linear waits initial, 2*initial, 3*initial, ...
	Linear
	// Constant always waits initial.
	Constant
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts including the first (default: 3)
	InitialBackoff time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 10s)
	Strategy       Strategy

	// Retryable overrides IsRetryable when set.
	Retryable func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Do calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. attempt is zero-based.
// Non-retryable errors are returned as is; exhaustion wraps the last error.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		wait := Backoff(cfg.Strategy, attempt, cfg.InitialBackoff, cfg.MaxBackoff)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// Backoff returns the wait after the given zero-based attempt, capped at max.
func Backoff(strategy Strategy, attempt int, initial, max time.Duration) time.Duration {
	var backoff time.Duration
	switch strategy {
	case Linear:
		backoff = time.Duration(attempt+1) * initial
	case Constant:
		backoff = initial
	default:
		backoff = time.Duration(1<<uint(attempt)) * initial
	}
	if backoff > max {
		return max
	}
	return backoff
}

// temporary is implemented by remote errors that know whether a repeat can succeed.
type temporary interface {
	Temporary() bool
}

// IsRetryable reports whether err is worth another attempt.
// Network failures are always retryable, then typed errors decide; otherwise the message is matched against
// known transient patterns. Unknown errors are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Transport failures come wrapped in *url.Error, whose Temporary() is
	// false for EOF and refused or reset connections. They are retried.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errLower := strings.ToLower(err.Error())

	for _, pattern := range []string{"401", "403", "400", "404", "unauthorized", "forbidden"} {
		if strings.Contains(errLower, pattern) {
			return false
		}
	}

	for _, pattern := range []string{
		"deadline exceeded",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"eof",
		"429",
		"too many requests",
		"rate limit",
		"500", "502", "503", "504",
		"server error",
		"network",
	} {
		if strings.Contains(errLower, pattern) {
			return true
		}
	}

	return false
}
