package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "replharvest/pkg/errors"
	"replharvest/pkg/logger"
)

// Operation is one attempt of something that might need retrying.
// attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// OperationWithResult is an attempt that also yields a value
type OperationWithResult[T any] func(ctx context.Context, attempt int) (T, error)

// SleepFunc waits between attempts; it must return early when ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// ErrExhausted wraps the last error once every attempt has failed
var ErrExhausted = errors.New("retry attempts exhausted")

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts; values below 1 mean 1
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before the wait preceding each retry
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep replaces the default timer wait (remote drivers route it through their own clock)
	Sleep SleepFunc
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns three attempts one second apart
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Second},
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

// DefaultRetryIf retries recoverable and untyped errors but never cancellation
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRecoverable(typed.Type)
	}
	return true
}

// Do executes op until it succeeds, returns a non-retryable error, or runs out
// of attempts. Exactly MaxAttempts-1 waits happen when every attempt fails.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Wait
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}

		if attempt >= maxAttempts {
			log.DebugWithFields("retry attempts exhausted", map[string]interface{}{
				"attempts": attempt,
				"error":    err.Error(),
			})
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, lastErr)
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.DebugWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay":        delay,
			"max_attempts": maxAttempts,
		})

		if delay <= 0 {
			continue
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func(ctx context.Context, attempt int) error {
		var opErr error
		result, opErr = op(ctx, attempt)
		return opErr
	}, cfg)

	return result, err
}
