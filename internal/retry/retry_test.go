package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tempErr struct{ temp bool }

func (e tempErr) Error() string   { return "remote failure" }
func (e tempErr) Temporary() bool { return e.temp }

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"typed temporary", tempErr{temp: true}, true},
		{"typed permanent", tempErr{temp: false}, false},
		{"wrapped typed temporary", errors.Join(errors.New("ctx"), tempErr{temp: true}), true},
		{"rate limit message", errors.New("HTTP 429 Too Many Requests"), true},
		{"server error message", errors.New("HTTP 503 Service Unavailable"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"unauthorized message", errors.New("HTTP 401 Unauthorized"), false},
		{"not found message", errors.New("HTTP 404 Not Found"), false},
		{"unknown", errors.New("something odd"), false},
		{"dropped connection", &url.Error{Op: "Get", URL: "https://api.twitter.com/1.1", Err: io.EOF}, true},
		{"refused connection", &url.Error{Op: "Get", URL: "https://api.twitter.com/1.1", Err: &net.OpError{
			Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
		}}, true},
		{"bare refused op", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"unexpected eof", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), true},
		{"canceled transport", &url.Error{Op: "Get", URL: "https://api.twitter.com/1.1", Err: context.Canceled}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(int) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(attempt int) error {
		assert.Equal(t, calls, attempt)
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_AllFailuresWrapLastError(t *testing.T) {
	expected := errors.New("connection refused")
	calls := 0

	err := Do(context.Background(), fastConfig(4), func(int) error {
		calls++
		return expected
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, expected)
	assert.Contains(t, err.Error(), "all 4 attempts failed")
	assert.Equal(t, 4, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	expected := errors.New("HTTP 401 Unauthorized")
	calls := 0

	err := Do(context.Background(), fastConfig(3), func(int) error {
		calls++
		return expected
	})

	assert.Same(t, expected, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CustomRetryable(t *testing.T) {
	calls := 0
	cfg := fastConfig(4)
	cfg.Retryable = func(error) bool { return true }

	err := Do(context.Background(), cfg, func(int) error {
		calls++
		return errors.New("HTTP 403 Forbidden")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDo_OnRetryReportsWaits(t *testing.T) {
	var waits []time.Duration
	cfg := Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Second,
		Strategy:       Linear,
		OnRetry: func(_ int, _ error, wait time.Duration) {
			waits = append(waits, wait)
		},
	}

	_ = Do(context.Background(), cfg, func(int) error { return errors.New("timeout") })

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Run("cancel before any attempts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := Do(ctx, fastConfig(3), func(int) error {
			calls++
			return errors.New("timeout")
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancel during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := Config{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: time.Second}

		calls := 0
		err := Do(ctx, cfg, func(int) error {
			calls++
			go func() {
				time.Sleep(5 * time.Millisecond)
				cancel()
			}()
			return errors.New("timeout")
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestBackoff(t *testing.T) {
	initial := time.Second
	max := 10 * time.Second

	tests := []struct {
		name     string
		strategy Strategy
		attempt  int
		want     time.Duration
	}{
		{"exponential 0", Exponential, 0, 1 * time.Second},
		{"exponential 2", Exponential, 2, 4 * time.Second},
		{"exponential capped", Exponential, 4, 10 * time.Second},
		{"linear 0", Linear, 0, 1 * time.Second},
		{"linear 2", Linear, 2, 3 * time.Second},
		{"linear capped", Linear, 20, 10 * time.Second},
		{"constant", Constant, 5, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Backoff(tt.strategy, tt.attempt, initial, max))
		})
	}
}

func TestDo_DefaultConfig(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{}, func(int) error {
		calls++
		return errors.New("HTTP 400 Bad Request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
