package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoimport-pro/server/internal/agent/model"
	errx "github.com/autoimport-pro/server/internal/core/error"
)

func newTestRetrier(delays *[]time.Duration) *Retrier {
	return &Retrier{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    3 * time.Millisecond,
		OnRetry: func(_ string, _ int, d time.Duration, _ *errx.Error) {
			*delays = append(*delays, d)
		},
	}
}

func TestDoSucceedsAfterTwoTransientFailures(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(&delays)

	calls := 0
	out, err := Do(context.Background(), r, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", ErrRateLimited
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestDoNonRetryableFailsImmediately(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(&delays)

	calls := 0
	_, err := Do(context.Background(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, ErrAuth
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
	assert.Equal(t, errx.KindAuthentication, errx.KindOf(err))
	assert.False(t, errx.IsRecoverable(err))
}

func TestDoUnknownErrorIsNotRetried(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(&delays)

	calls := 0
	_, err := Do(context.Background(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("weird")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
	assert.Equal(t, errx.KindUnknown, errx.KindOf(err))
	assert.True(t, errx.IsRecoverable(err))
}

func TestDoExhaustedReturnsLastTransientKind(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(&delays)

	calls := 0
	_, err := Do(context.Background(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("dial: %w", ErrConnection)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
	assert.Equal(t, errx.KindConnection, errx.KindOf(err))
	assert.True(t, errx.IsRecoverable(err))

	var e *errx.Error
	require.ErrorAs(t, err, &e)
	assert.ErrorIs(t, e, ErrConnection)
}

func TestDoCapsDelay(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(&delays)
	r.MaxAttempts = 5

	_, _ = Do(context.Background(), r, "test", func(ctx context.Context) (int, error) {
		return 0, ErrTimeout
	})

	assert.Equal(t, []time.Duration{
		time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond,
	}, delays)
}

func TestDoPerCallTimeout(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(&delays)
	r.MaxAttempts = 2
	r.CallTimeout = 5 * time.Millisecond

	calls := 0
	_, err := Do(context.Background(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, errx.KindTimeout, errx.KindOf(err))
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Retrier{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	calls := 0
	_, err := Do(ctx, r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 1, nil
	})

	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestNewRetrierDefaults(t *testing.T) {
	r := NewRetrier(model.ResilienceConfig{})
	assert.Equal(t, DefaultMaxAttempts, r.MaxAttempts)
	assert.Equal(t, DefaultBaseDelay, r.BaseDelay)
	assert.Equal(t, DefaultMaxDelay, r.MaxDelay)
}
