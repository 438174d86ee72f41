package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coordinator/internal/persistence"
)

func newTestBus(t *testing.T) *Bus {
	store, err := persistence.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(Config{HistorySize: 10, EnableHistory: true, EnablePersistence: true}, store)
}

func TestBus_WildcardReceivesEverything(t *testing.T) {
	b := newTestBus(t)
	var count atomic.Int32
	b.Subscribe(Wildcard, func(e Event) error { count.Add(1); return nil })

	b.Publish(TaskStarted, "agent-1", nil, nil, true)
	b.Publish(TaskCompleted, "agent-1", nil, nil, true)

	require.Equal(t, int32(2), count.Load())
}

func TestBus_FailureIsolation(t *testing.T) {
	b := newTestBus(t)
	var ran [3]atomic.Bool
	b.Subscribe(TaskAssigned, func(e Event) error { ran[0].Store(true); return nil })
	b.Subscribe(TaskAssigned, func(e Event) error { ran[1].Store(true); return errors.New("boom") })
	b.Subscribe(TaskAssigned, func(e Event) error { ran[2].Store(true); return nil })

	event := b.Publish(TaskAssigned, "coordinator", nil, nil, true)

	require.Equal(t, TaskAssigned, event.Type)
	require.True(t, ran[0].Load())
	require.True(t, ran[1].Load())
	require.True(t, ran[2].Load())
}

func TestBus_PanicIsolation(t *testing.T) {
	b := newTestBus(t)
	var second atomic.Bool
	b.Subscribe(ErrorEvent, func(e Event) error { panic("kaboom") })
	b.Subscribe(ErrorEvent, func(e Event) error { second.Store(true); return nil })

	require.NotPanics(t, func() { b.Publish(ErrorEvent, "x", nil, nil, true) })
	require.True(t, second.Load())
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus(t)
	var count atomic.Int32
	h := func(e Event) error { count.Add(1); return nil }
	b.Subscribe(TaskProgress, h)
	b.Publish(TaskProgress, "x", nil, nil, true)
	b.Unsubscribe(TaskProgress, h)
	b.Publish(TaskProgress, "x", nil, nil, true)

	require.Equal(t, int32(1), count.Load())
}

func TestBus_HistoryBoundedFIFO(t *testing.T) {
	b := New(Config{HistorySize: 3, EnableHistory: true}, nil)
	for i := 0; i < 5; i++ {
		b.Publish(TaskProgress, "x", map[string]interface{}{"i": i}, nil, true)
	}
	hist := b.GetHistory(nil, nil, 0)
	require.Len(t, hist, 3)
	require.Equal(t, 2, hist[0].Data["i"])
	require.Equal(t, 4, hist[2].Data["i"])
}

func TestBus_GetHistoryFiltersByTypeAndSource(t *testing.T) {
	b := New(Config{HistorySize: 100, EnableHistory: true}, nil)
	b.Publish(TaskStarted, "a", nil, nil, true)
	b.Publish(TaskCompleted, "a", nil, nil, true)
	b.Publish(TaskStarted, "b", nil, nil, true)

	ty := TaskStarted
	src := "a"
	got := b.GetHistory(&ty, &src, 0)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].Source)
}

func TestBus_WaitForEventReturnsOnPublish(t *testing.T) {
	b := newTestBus(t)
	var wg sync.WaitGroup
	wg.Add(1)
	var got *Event
	go func() {
		defer wg.Done()
		got = b.WaitForEvent(AgentRegistered, time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	b.Publish(AgentRegistered, "agent-1", nil, nil, true)
	wg.Wait()

	require.NotNil(t, got)
	require.Equal(t, AgentRegistered, got.Type)
}

func TestBus_WaitForEventTimesOutCleanly(t *testing.T) {
	b := newTestBus(t)
	got := b.WaitForEvent(AgentRegistered, 10*time.Millisecond)
	require.Nil(t, got)

	// No leftover subscriber after timeout.
	b.mu.RLock()
	count := len(b.subscribers[AgentRegistered])
	b.mu.RUnlock()
	require.Equal(t, 0, count)
}

func TestBus_PublishNoWaitSchedulesHandlers(t *testing.T) {
	b := newTestBus(t)
	done := make(chan struct{})
	b.Subscribe(TaskStarted, func(e Event) error { close(done); return nil })
	b.PublishNoWait(TaskStarted, "x", nil, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}
