package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSleep returns a Sleep replacement that records requested delays.
func recordSleep(delays *[]time.Duration) Option {
	return WithSleep(func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	})
}

func TestDo_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	var delays []time.Duration

	err := Do(context.Background(), func(int) error {
		attempts++
		return nil
	}, recordSleep(&delays))

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, delays)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	var delays []time.Duration

	err := Do(context.Background(), func(int) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, recordSleep(&delays))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, delays)
}

func TestDo_ExhaustsAfterThreeAttempts(t *testing.T) {
	t.Parallel()
	attempts := 0
	var delays []time.Duration
	persistent := errors.New("persistent error")

	err := Do(context.Background(), func(attempt int) error {
		attempts++
		assert.Equal(t, attempts, attempt)
		return persistent
	}, recordSleep(&delays))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, persistent)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, delays)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()
	attempts := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(int) error {
		attempts++
		return errors.New("error")
	}, WithInitialDelay(10*time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_FatalError(t *testing.T) {
	t.Parallel()
	attempts := 0
	var delays []time.Duration

	err := Do(context.Background(), func(int) error {
		attempts++
		return Fatal(errors.New("certbot not installed"))
	}, recordSleep(&delays))

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 1, attempts)
	assert.Empty(t, delays)
}

func TestDo_OnRetry(t *testing.T) {
	t.Parallel()
	var seen []int
	var delays []time.Duration

	_ = Do(context.Background(), func(int) error {
		return errors.New("boom")
	},
		WithMaxAttempts(4),
		WithInitialDelay(time.Second),
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			seen = append(seen, attempt)
			assert.EqualError(t, err, "boom")
		}),
		recordSleep(&delays))

	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestDo_MaxDelayCaps(t *testing.T) {
	t.Parallel()
	var delays []time.Duration

	_ = Do(context.Background(), func(int) error {
		return errors.New("boom")
	},
		WithMaxAttempts(5),
		WithInitialDelay(time.Second),
		WithMaxDelay(3*time.Second),
		recordSleep(&delays))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, delays)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()
	attempts := 0
	_ = Do(context.Background(), func(int) error {
		attempts++
		return errors.New("boom")
	}, WithMaxAttempts(0))
	assert.Equal(t, 1, attempts)
}

func TestDo_RealSleep(t *testing.T) {
	t.Parallel()
	start := time.Now()
	attempts := 0

	err := Do(context.Background(), func(int) error {
		attempts++
		if attempts < 2 {
			return errors.New("error")
		}
		return nil
	}, WithInitialDelay(20*time.Millisecond))

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDelays(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, Delays())
	assert.Equal(t,
		[]time.Duration{time.Second, 3 * time.Second},
		Delays(WithInitialDelay(time.Second), WithMultiplier(3)))
	assert.Empty(t, Delays(WithMaxAttempts(1)))
}

func TestFatal(t *testing.T) {
	t.Parallel()
	t.Run("Nil error", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, Fatal(nil))
	})

	t.Run("Wrapped", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("sentinel error")
		doubleWrapped := fmt.Errorf("context: %w", Fatal(sentinel))

		assert.ErrorIs(t, doubleWrapped, sentinel)
		assert.True(t, IsFatal(doubleWrapped))
		assert.Equal(t, sentinel, errors.Unwrap(Fatal(sentinel)))
	})

	t.Run("Regular error", func(t *testing.T) {
		t.Parallel()
		assert.False(t, IsFatal(errors.New("regular error")))
	})
}
