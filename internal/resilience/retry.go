package resilience

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"

	"coordinator/internal/logging"
)

// RetryConfig parameterizes the retry decorator.
type RetryConfig struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// Operation is the shape of a retryable unit of work.
type Operation func(ctx context.Context) error

// Retry runs op up to cfg.MaxAttempts times, sleeping between attempts
// with jittered exponential backoff. The jitter factor is drawn from a
// crypto-quality RNG per security contract — this is not
// negotiable for taste; it prevents synchronized retry storms across
// coordinator instances from being predictable to an adversary probing
// the Kanban or LLM endpoint.
func Retry(ctx context.Context, cfg RetryConfig, op Operation) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		delay := backoffDelay(cfg, attempt)
		logging.Get(logging.CategoryResilience).Debug("retry attempt %d/%d failed: %v, sleeping %v", attempt+1, cfg.MaxAttempts, lastErr, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	raw := float64(cfg.BaseDelay) * math.Pow(cfg.ExponentialBase, float64(attempt))
	if max := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && raw > max {
		raw = max
	}
	if cfg.Jitter {
		raw *= jitterFactor()
	}
	return time.Duration(raw)
}

// jitterFactor returns a value in [0.5, 1.5) drawn from crypto/rand.
func jitterFactor() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on this host;
		// fall back to the midpoint rather than panic mid-retry.
		return 1.0
	}
	u := binary.BigEndian.Uint64(buf[:])
	// 53 bits of mantissa is plenty for a [0,1) float.
	frac := float64(u>>11) / float64(1<<53)
	return 0.5 + frac
}
