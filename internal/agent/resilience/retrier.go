package resilience

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/autoimport-pro/server/internal/agent/model"
	errx "github.com/autoimport-pro/server/internal/core/error"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// Retrier runs oracle calls with bounded exponential backoff.
// Only rate limiting, connection failures and timeouts are retried.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// CallTimeout bounds each attempt; zero means no per-attempt deadline.
	CallTimeout time.Duration
	// OnRetry is called before sleeping between attempts.
	OnRetry func(op string, attempt int, delay time.Duration, err *errx.Error)
}

// NewRetrier builds a Retrier from config, replacing invalid values with defaults.
func NewRetrier(cfg model.ResilienceConfig) *Retrier {
	r := &Retrier{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		CallTimeout: cfg.CallTimeout,
	}
	if r.MaxAttempts < 1 {
		r.MaxAttempts = DefaultMaxAttempts
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = DefaultBaseDelay
	}
	if r.MaxDelay < r.BaseDelay {
		r.MaxDelay = DefaultMaxDelay
	}
	return r
}

// backoff yields base*2^n capped at MaxDelay, at most MaxAttempts-1 times.
func (r *Retrier) backoff() retry.Backoff {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := r.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	ceiling := r.MaxDelay
	if ceiling < base {
		ceiling = base
	}
	return retry.WithMaxRetries(uint64(attempts-1), retry.WithCappedDuration(ceiling, retry.NewExponential(base)))
}

// Do runs fn until it succeeds, fails with a non-retryable error, or attempts run out.
// Any returned error is an *errx.Error.
func Do[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		attempt int
		lastErr *errx.Error
	)
	inner := r.backoff()
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := inner.Next()
		if stop {
			logx.Error().Str("op", op).Int("attempts", attempt).Str("kind", string(lastErr.Kind)).Msg("All retry attempts failed")
			return 0, true
		}
		logx.Warn().Str("op", op).Int("attempt", attempt).Int("max_attempts", r.MaxAttempts).
			Dur("delay", delay).Err(lastErr.Err).Msg("Oracle call failed, retrying")
		if r.OnRetry != nil {
			r.OnRetry(op, attempt, delay, lastErr)
		}
		return delay, false
	})

	out, err := retry.DoValue(ctx, b, func(ctx context.Context) (T, error) {
		attempt++
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.CallTimeout)
		}
		defer cancel()

		v, err := fn(callCtx)
		if err == nil {
			return v, nil
		}
		lastErr = Classify(err)
		if Retryable(lastErr.Kind) {
			return v, retry.RetryableError(lastErr)
		}
		return v, lastErr
	})
	if err != nil {
		return out, Classify(err)
	}
	return out, nil
}
