package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff describes an exponential retry schedule.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	// Jitter spreads each delay by up to this fraction in either direction.
	Jitter float64
}

// DefaultBackoff suits connecting to a dependency that may still be
// starting up.
var DefaultBackoff = Backoff{
	Attempts: 5,
	Initial:  200 * time.Millisecond,
	Max:      5 * time.Second,
	Jitter:   0.1,
}

// Retry calls fn until it succeeds, the attempts are used up or ctx ends.
// The last error is wrapped in the returned one.
func Retry(ctx context.Context, name string, b Backoff, fn func(ctx context.Context) error) error {
	if b.Attempts <= 0 {
		b.Attempts = 1
	}
	logger := slog.Default().With("component", "retry", "operation", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == b.Attempts {
			break
		}
		delay := b.Delay(attempt)
		logger.Warn("attempt failed, retrying", "attempt", attempt, "error", err, "next_delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
	return fmt.Errorf("%s: %d attempts failed: %w", name, b.Attempts, err)
}

// Delay is the wait after the given failed attempt, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Initial
	for i := 1; i < attempt && (b.Max <= 0 || d < b.Max); i++ {
		d *= 2
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	if b.Jitter > 0 {
		d += time.Duration(float64(d) * b.Jitter * (2*rand.Float64() - 1))
	}
	return max(d, 0)
}
