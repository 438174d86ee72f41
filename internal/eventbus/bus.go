package eventbus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"coordinator/internal/logging"
	"coordinator/internal/persistence"
	"coordinator/internal/resilience"
)

// Handler processes a published event. A handler that returns an error or
// panics is isolated — failure-isolation rule — and never
// prevents sibling handlers (for the same event) from running.
type Handler func(Event) error

// Config tunes a Bus instance.
type Config struct {
	HistorySize       int
	EnableHistory     bool
	EnablePersistence bool
}

// Bus is the event pub/sub hub. One Bus is owned by the Coordinator
// façade and passed by reference to the
// Context store and Memory constructors.
type Bus struct {
	cfg   Config
	store persistence.Store // optional; nil disables persistence regardless of cfg

	mu          sync.RWMutex
	subscribers map[Type][]Handler
	// subscriber identity tracking for Unsubscribe, keyed by handler
	// function pointer since Handler values aren't otherwise comparable.
	handlerIDs map[Type][]uintptr

	historyMu sync.Mutex
	history   []Event
}

// New constructs a Bus. store may be nil; if non-nil and
// cfg.EnablePersistence is true, every published event is also persisted
// through the fallback wrapper so a storage outage never fails Publish.
func New(cfg Config, store persistence.Store) *Bus {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 1000
	}
	return &Bus{
		cfg:         cfg,
		store:       store,
		subscribers: make(map[Type][]Handler),
		handlerIDs:  make(map[Type][]uintptr),
	}
}

func handlerPtr(h Handler) uintptr {
	return reflect.ValueOf(h).Pointer()
}

// Subscribe registers handler for eventType, or for every event when
// eventType is Wildcard.
func (b *Bus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	b.handlerIDs[eventType] = append(b.handlerIDs[eventType], handlerPtr(handler))
}

// Unsubscribe removes a previously registered handler for eventType.
func (b *Bus) Unsubscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	target := handlerPtr(handler)
	ids := b.handlerIDs[eventType]
	handlers := b.subscribers[eventType]
	for i, id := range ids {
		if id == target {
			b.handlerIDs[eventType] = append(ids[:i:i], ids[i+1:]...)
			b.subscribers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

func (b *Bus) subscribersFor(eventType Type) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.subscribers[eventType])+len(b.subscribers[Wildcard]))
	out = append(out, b.subscribers[eventType]...)
	out = append(out, b.subscribers[Wildcard]...)
	return out
}

// Publish constructs and dispatches an event. When waitForHandlers is
// true, Publish blocks until every handler has run; handlers
// run concurrently with respect to each other, so FIFO order across
// handlers is not guaranteed — only that all have completed before
// Publish returns. When false, handlers are scheduled and Publish returns
// once scheduling (not execution) completes — the hot-path mode.
func (b *Bus) Publish(eventType Type, source string, data, metadata map[string]interface{}, waitForHandlers bool) Event {
	event := Event{
		ID:        nextID(),
		Timestamp: time.Now(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Metadata:  metadata,
	}

	b.recordHistory(event)
	b.persist(event)

	handlers := b.subscribersFor(eventType)
	if waitForHandlers {
		b.dispatchAndWait(event, handlers)
	} else {
		b.dispatchNoWait(event, handlers)
	}
	return event
}

// PublishNoWait is Publish with waitForHandlers forced to false.
func (b *Bus) PublishNoWait(eventType Type, source string, data, metadata map[string]interface{}) Event {
	return b.Publish(eventType, source, data, metadata, false)
}

func (b *Bus) dispatchAndWait(event Event, handlers []Handler) {
	var g errgroup.Group
	for _, h := range handlers {
		h := h
		g.Go(func() error {
			runIsolated(event, h)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Bus) dispatchNoWait(event Event, handlers []Handler) {
	for _, h := range handlers {
		h := h
		go runIsolated(event, h)
	}
}

// runIsolated invokes a handler inside a panic/error barrier so one
// raising handler never blocks its siblings.
func runIsolated(event Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryEventBus).Error("handler panicked on %s: %v", event.Type, r)
		}
	}()
	if err := h(event); err != nil {
		logging.Get(logging.CategoryEventBus).Error("handler failed on %s: %v", event.Type, err)
	}
}

func (b *Bus) recordHistory(event Event) {
	if !b.cfg.EnableHistory {
		return
	}
	b.historyMu.Lock()
	defer b.historyMu.Unlock()
	b.history = append(b.history, event)
	if len(b.history) > b.cfg.HistorySize {
		b.history = b.history[len(b.history)-b.cfg.HistorySize:]
	}
}

func (b *Bus) persist(event Event) {
	if !b.cfg.EnablePersistence || b.store == nil {
		return
	}
	payload := map[string]interface{}{
		"event_id":   event.ID,
		"timestamp":  event.Timestamp.UTC().Format(time.RFC3339Nano),
		"event_type": string(event.Type),
		"source":     event.Source,
		"data":       event.Data,
		"metadata":   event.Metadata,
	}
	_ = resilience.Fallback(context.Background(), "eventbus.persist",
		func(ctx context.Context) error { return b.store.Store("events", event.ID, payload) },
		func(ctx context.Context) error { return nil }, // persistence failure never fails Publish
	)
}

// GetHistory returns retained events, newest-last (publish order),
// optionally filtered by type and/or source and capped at limit
// (limit <= 0 means unbounded).
func (b *Bus) GetHistory(eventType *Type, source *string, limit int) []Event {
	b.historyMu.Lock()
	defer b.historyMu.Unlock()

	out := make([]Event, 0, len(b.history))
	for _, e := range b.history {
		if eventType != nil && e.Type != *eventType {
			continue
		}
		if source != nil && e.Source != *source {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// WaitForEvent blocks until an event of eventType is published, or
// timeout elapses (timeout <= 0 means wait forever). It returns nil on
// timeout with no partial state retained — the temporary handler is
// always unsubscribed.
func (b *Bus) WaitForEvent(eventType Type, timeout time.Duration) *Event {
	ch := make(chan Event, 1)
	var once sync.Once
	handler := func(e Event) error {
		once.Do(func() { ch <- e })
		return nil
	}
	b.Subscribe(eventType, handler)
	defer b.Unsubscribe(eventType, handler)

	if timeout <= 0 {
		e := <-ch
		return &e
	}

	select {
	case e := <-ch:
		return &e
	case <-time.After(timeout):
		return nil
	}
}

// Ensure Config.HistorySize always has a sane string form in panics/logs.
func (c Config) String() string {
	return fmt.Sprintf("Config{History=%d/%v Persist=%v}", c.HistorySize, c.EnableHistory, c.EnablePersistence)
}
