package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoWithResult_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 3, Backoff: ConstantBackoff(time.Millisecond)}

	got, err := DoWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_StopsAtMaxAttempts(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 2, Backoff: ConstantBackoff(time.Millisecond)}

	err := Do(context.Background(), cfg, func() error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, calls)
}

func TestDoWithResult_NonRetryableSurfacesImmediately(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	cfg := RetryConfig{
		MaxAttempts: 5,
		Backoff:     ConstantBackoff(time.Millisecond),
		ShouldRetry: func(err error) bool { return !errors.Is(err, permanent) },
	}

	err := Do(context.Background(), cfg, func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 3, Backoff: ConstantBackoff(time.Hour)}

	err := Do(ctx, cfg, func() error {
		cancel()
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errTransient)
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(10 * time.Millisecond)

	first := b(1)
	second := b(2)

	assert.GreaterOrEqual(t, first, 10*time.Millisecond)
	assert.LessOrEqual(t, first, 15*time.Millisecond)
	assert.GreaterOrEqual(t, second, 20*time.Millisecond)
	assert.LessOrEqual(t, second, 30*time.Millisecond)
}
