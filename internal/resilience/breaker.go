package resilience

import (
	"context"
	"sync"
	"time"

	"coordinator/internal/logging"
)

// BreakerState is one of closed, open, half-open.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half-open"
)

// BreakerConfig tunes a single named breaker.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// CircuitBreaker wraps calls to a single external dependency. It is safe
// for concurrent use; the coordinator keeps one instance per dependency
// name (e.g. "kanban", "llm-refiner").
type CircuitBreaker struct {
	name   string
	cfg    BreakerConfig
	mu     sync.Mutex
	state  BreakerState
	fails  int
	lastFailure time.Time
}

// NewCircuitBreaker creates a breaker starting in the closed state.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{name: name, cfg: cfg, state: StateClosed}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// stateLocked performs the open->half-open transition check and must be
// called with the lock held.
func (b *CircuitBreaker) stateLocked() BreakerState {
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.cfg.RecoveryTimeout {
		b.state = StateHalfOpen
		logging.Get(logging.CategoryResilience).Info("breaker %s: open -> half-open", b.name)
	}
	return b.state
}

// Call executes op through the breaker. It returns ErrBreakerOpen without
// invoking op when the breaker is open.
func (b *CircuitBreaker) Call(ctx context.Context, op Operation) error {
	b.mu.Lock()
	state := b.stateLocked()
	if state == StateOpen {
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := op(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.fails++
		b.lastFailure = time.Now()
		switch b.state {
		case StateHalfOpen:
			b.state = StateOpen
			logging.Get(logging.CategoryResilience).Warn("breaker %s: half-open probe failed, reopening", b.name)
		case StateClosed:
			if b.fails >= b.cfg.FailureThreshold {
				b.state = StateOpen
				logging.Get(logging.CategoryResilience).Warn("breaker %s: failure threshold reached (%d), opening", b.name, b.fails)
			}
		}
		return err
	}

	if b.state == StateHalfOpen {
		logging.Get(logging.CategoryResilience).Info("breaker %s: half-open probe succeeded, closing", b.name)
	}
	b.state = StateClosed
	b.fails = 0
	return nil
}

// Registry holds named breakers, created lazily on first use. The
// coordinator façade keeps one Registry per scheduler instance so the
// underlying mutex is bound to the instance that created it.
type Registry struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*CircuitBreaker
}

func NewRegistry(cfg BreakerConfig) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, r.cfg)
	r.breakers[name] = b
	return b
}
