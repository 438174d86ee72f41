package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker("dep", BreakerConfig{FailureThreshold: 2, RecoveryTimeout: 50 * time.Millisecond})
	failing := func(ctx context.Context) error { return errors.New("fail") }

	require.Error(t, b.Call(context.Background(), failing))
	require.Equal(t, StateClosed, b.State())

	require.Error(t, b.Call(context.Background(), failing))
	require.Equal(t, StateOpen, b.State())

	err := b.Call(context.Background(), failing)
	require.ErrorIs(t, err, ErrBreakerOpen)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	b := NewCircuitBreaker("dep", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})
	require.Error(t, b.Call(context.Background(), func(ctx context.Context) error { return errors.New("fail") }))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(15 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Call(context.Background(), func(ctx context.Context) error { return nil }))
	require.Equal(t, StateClosed, b.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("dep", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})
	require.Error(t, b.Call(context.Background(), func(ctx context.Context) error { return errors.New("fail") }))
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.Error(t, b.Call(context.Background(), func(ctx context.Context) error { return errors.New("fail again") }))
	require.Equal(t, StateOpen, b.State())
}

func TestRegistry_LazyCreatesPerName(t *testing.T) {
	r := NewRegistry(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Second})
	a := r.Get("kanban")
	b := r.Get("kanban")
	c := r.Get("llm")
	require.Same(t, a, b)
	require.NotSame(t, a, c)
}
