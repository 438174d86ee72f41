package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, ExponentialBase: 2}, func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return nil
		}
		return errors.New("boom")
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRetry_InvokesAtMostMaxAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, ExponentialBase: 2}, func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestRetry_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, RetryConfig{MaxAttempts: 100, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second, ExponentialBase: 1.1}, func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, calls, 100)
}

func TestJitterFactor_InExpectedRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		f := jitterFactor()
		require.GreaterOrEqual(t, f, 0.5)
		require.Less(t, f, 1.5)
	}
}
