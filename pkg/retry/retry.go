// Package retry runs startup operations with exponential backoff.
// Request handling never retries; only dependency connections at boot do.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, +/- jitter applied to each delay
}

// StartupConfig is used while waiting for PostgreSQL or Redis to accept
// connections at boot, e.g. when they start alongside the service.
func StartupConfig() *Config {
	return &Config{
		MaxRetries:   8,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// applyJitter adds random jitter to a delay.
// Jitter is calculated as: delay +/- (delay * jitterFactor * random(-1 to +1))
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// wait sleeps for the current delay and returns the next one.
// Returns ctx.Err() if the context is done first.
func wait(ctx context.Context, cfg *Config, delay time.Duration) (time.Duration, error) {
	select {
	case <-time.After(applyJitter(delay, cfg.JitterFactor)):
		next := time.Duration(float64(delay) * cfg.Multiplier)
		if next > cfg.MaxDelay {
			next = cfg.MaxDelay
		}
		return next, nil
	case <-ctx.Done():
		return delay, ctx.Err()
	}
}

// DoWithResult executes fn with exponential backoff and returns its result.
// Only transient errors (see IsRetryable) are retried; a permanent failure
// such as a rejected password is returned after the first attempt.
// A nil cfg means StartupConfig. Respects context cancellation while waiting.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = StartupConfig()
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}

		lastErr = err
		result = r // Keep last result even on error

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < cfg.MaxRetries {
			var waitErr error
			delay, waitErr = wait(ctx, cfg, delay)
			if waitErr != nil {
				return result, waitErr
			}
		}
	}

	return result, lastErr
}

// retryableSQLStates are PostgreSQL error classes and codes worth retrying.
var retryableSQLStates = []string{
	"08",    // connection exception
	"53",    // insufficient resources (too many connections)
	"57P03", // cannot connect now (server starting up)
	"40001", // serialization failure
	"40P01", // deadlock detected
}

// IsRetryable determines if an error is transient and worth retrying
// This prevents wasting retries on permanent failures (auth errors, bad SQL, etc.)
//
// PostgreSQL errors are classified by SQLSTATE; anything else falls back to
// matching known network failure messages.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, state := range retryableSQLStates {
			if strings.HasPrefix(pgErr.Code, state) {
				return true
			}
		}
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"too many connections",
		"deadlock",
		"network is unreachable",
		"the database system is starting up",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
