// Package retry runs an operation a bounded number of times with a backoff
// between failures.
//
// The wait is pluggable so browser-facing callers can route it through the
// remote driver's own sleep, which keeps tests deterministic:
//
//	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
//		return probe(ctx)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//		Sleep:       r.Sleep,
//	})
//
// With N attempts that all fail there are exactly N-1 waits.
package retry
