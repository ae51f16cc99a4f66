package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// retryableClasses are SQLSTATE classes worth another attempt
var retryableClasses = map[pq.ErrorClass]bool{
	"08": true, // connection exception
	"53": true, // insufficient resources (53300 too_many_connections)
	"40": true, // transaction rollback (40001 serialization_failure, 40P01 deadlock)
}

var retryablePatterns = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"broken pipe",
	"eof",
	"exhausted",
	"too many clients",
	"starting up",
	"shutting down",
}

// IsRetryable determines if an error should be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "57P01" || pqErr.Code == "57014" { // admin_shutdown, query_canceled
			return true
		}
		return retryableClasses[pqErr.Code.Class()]
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// backoff returns the delay before the attempt following attempt (0-based)
func backoff(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}
	// Add jitter (0-25% of delay)
	if q := int64(delay / 4); q > 0 {
		delay += time.Duration(rand.Int63n(q))
	}
	return delay
}

// Do executes fn with retries using exponential backoff
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes fn with retries and returns the result
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return result, err
		}

		// Don't wait after the last attempt
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}

	return result, lastErr
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calls to a failing dependency for resetAfter once
// threshold consecutive failures have been recorded. Safe for concurrent use.
type CircuitBreaker struct {
	mu          sync.Mutex
	failures    int
	threshold   int
	resetAfter  time.Duration
	lastFailure time.Time
	open        bool
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(threshold int, resetAfter time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:  threshold,
		resetAfter: resetAfter,
	}
}

// Allow checks if a request should be allowed
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return true
	}

	// Half-open: let the next request through after the cool-down
	if time.Since(cb.lastFailure) > cb.resetAfter {
		cb.open = false
		cb.failures = 0
		return true
	}

	return false
}

// Call runs fn unless the circuit is open and records its outcome
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	cb.failures = 0
	cb.open = false
	cb.mu.Unlock()
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.failures++
	cb.lastFailure = time.Now()
	if cb.failures >= cb.threshold {
		cb.open = true
	}
	cb.mu.Unlock()
}

// IsOpen returns whether the circuit is open
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open
}
