package persistence

import (
	"fmt"

	"coordinator/internal/config"
)

// New builds the configured backend. The embedded-SQL backend additionally
// satisfies MedianProvider; callers that need the median helper should
// type-assert rather than branch on cfg.Backend themselves.
func New(cfg config.PersistenceConfig) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileBackend(cfg.DataDir)
	case "sql":
		return NewSQLBackend(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("persistence: unknown backend %q", cfg.Backend)
	}
}

// MedianProvider is implemented by backends that can compute the median
// task duration directly in the store. Memory falls back to
// an in-memory computation when the active Store doesn't implement it.
type MedianProvider interface {
	CalculateMedianTaskDuration() (float64, error)
}
