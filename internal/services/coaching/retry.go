package coaching

import (
	"context"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"tradejournal/pkg/errors"
)

// RetryConfig controls how transient completion failures are retried
type RetryConfig struct {
	MaxAttempts  int // total attempts, including the first
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns three attempts with 1s, 2s backoff ceilings
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// retrier runs a call with exponential backoff and full jitter
type retrier struct {
	config RetryConfig

	// overridable in tests
	sleep   func(ctx context.Context, d time.Duration) error
	jitter  func(ceiling time.Duration) time.Duration
	onRetry func(attempt int, err error)
}

func newRetrier(config RetryConfig) *retrier {
	def := DefaultRetryConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = def.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = def.Multiplier
	}

	return &retrier{
		config:  config,
		sleep:   sleepContext,
		jitter:  fullJitter,
		onRetry: func(int, error) {},
	}
}

// Do calls fn until it succeeds, fails permanently or runs out of attempts
func (r *retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		r.onRetry(attempt, err)
		if err := r.sleep(ctx, r.jitter(r.ceiling(attempt))); err != nil {
			return errors.Wrap(err, "retry cancelled")
		}
	}

	return errors.Wrapf(lastErr, "gave up after %d attempts", r.config.MaxAttempts)
}

// ceiling is the upper bound of the wait after the given 1-based attempt
func (r *retrier) ceiling(attempt int) time.Duration {
	delay := time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	if delay > r.config.MaxDelay || delay <= 0 {
		delay = r.config.MaxDelay
	}
	return delay
}

func fullJitter(ceiling time.Duration) time.Duration {
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(ceiling) + 1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// isRetryable accepts only failures a later attempt can plausibly fix
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, errors.ErrRateLimitExceeded) ||
		errors.Is(err, errors.ErrUnavailable) ||
		errors.Is(err, errors.ErrTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
