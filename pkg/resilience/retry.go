package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetry gives a dependency about three seconds to come up.
var DefaultRetry = RetryConfig{
	Attempts:     4,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
// Delays double after each failure, with up to 10% jitter.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	attempts := max(1, cfg.Attempts)
	delay := cfg.InitialDelay
	log := slog.Default().With("component", "retry", "operation", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == attempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
		}
		wait := delay + time.Duration(rand.Float64()*0.1*float64(delay))
		log.Warn("attempt failed, retrying", "attempt", attempt, "error", err, "next_delay", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
		delay = min(2*delay, max(cfg.MaxDelay, cfg.InitialDelay))
	}
}
