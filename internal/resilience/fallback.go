package resilience

import (
	"context"

	"coordinator/internal/logging"
)

// Fallback runs primary; if it fails, it invokes fb with the same context
// and logs the primary failure as a warning rather than propagating it.
// The fallback's own error, if any, IS propagated — a fallback is
// expected to either succeed or tell the truth about why not.
func Fallback(ctx context.Context, label string, primary Operation, fb Operation) error {
	if err := primary(ctx); err != nil {
		logging.Get(logging.CategoryResilience).Warn("%s: primary failed (%v), invoking fallback", label, err)
		return fb(ctx)
	}
	return nil
}

// FallbackValue is the generic-result variant: primary produces a T or an
// error; on error, fb's T is used instead, so a failure degrades to a
// zero/cached value instead of crashing the caller.
func FallbackValue[T any](ctx context.Context, label string, primary func(context.Context) (T, error), fb func(context.Context) T) T {
	v, err := primary(ctx)
	if err != nil {
		logging.Get(logging.CategoryResilience).Warn("%s: primary failed (%v), using fallback value", label, err)
		return fb(ctx)
	}
	return v
}
