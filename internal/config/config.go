// Package config loads and validates the coordination engine's
// configuration: persistence backend selection, resilience tuning,
// event bus sizing, and the hybrid dependency inferer's thresholds.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all coordinator configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Persistence PersistenceConfig `yaml:"persistence"`
	Resilience  ResilienceConfig  `yaml:"resilience"`
	EventBus    EventBusConfig    `yaml:"event_bus"`
	Memory      MemoryConfig      `yaml:"memory"`
	DepInfer    DepInferConfig    `yaml:"dependency_inference"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// PersistenceConfig selects and tunes the durable store.
type PersistenceConfig struct {
	// Backend is "file" or "sql".
	Backend      string `yaml:"backend"`
	DataDir      string `yaml:"data_dir"`       // used by the file backend
	DatabasePath string `yaml:"database_path"`  // used by the sql backend
	RetentionDays int   `yaml:"retention_days"` // clear_older_than default
}

// ResilienceConfig tunes retry, fallback, and circuit-breaker defaults
// shared by callers of external collaborators (Kanban, LLM refiner).
type ResilienceConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	ExponentialBase  float64       `yaml:"exponential_base"`
	Jitter           bool          `yaml:"jitter"`
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
}

// EventBusConfig tunes the in-process pub/sub bus.
type EventBusConfig struct {
	HistorySize      int  `yaml:"history_size"`
	EnableHistory    bool `yaml:"enable_history"`
	EnablePersistence bool `yaml:"enable_persistence"`
}

// MemoryConfig tunes the learning store's constants.
type MemoryConfig struct {
	LearningRate float64 `yaml:"learning_rate"`
	MemoryDecay  float64 `yaml:"memory_decay_per_week"`
}

// DepInferConfig mirrors the hybrid inferer's configuration knobs.
type DepInferConfig struct {
	Preset                     string  `yaml:"preset"`
	PatternConfidenceThreshold float64 `yaml:"pattern_confidence_threshold"`
	AIConfidenceThreshold      float64 `yaml:"ai_confidence_threshold"`
	CombinedConfidenceBoost    float64 `yaml:"combined_confidence_boost"`
	MaxAIPairsPerBatch         int     `yaml:"max_ai_pairs_per_batch"`
	MinSharedKeywords          int     `yaml:"min_shared_keywords"`
	EnableAIInference          bool    `yaml:"enable_ai_inference"`
	CacheTTL                   time.Duration `yaml:"cache_ttl"`
	WorkflowGroupMinSize       int     `yaml:"workflow_group_min_size"`
}

// LoggingConfig mirrors logging.Options for YAML loading.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Dir        string          `yaml:"dir"`
}

// DefaultConfig returns the coordinator's defaults, matching the numeric
// contract fixed throughout the board (learning_rate=0.1, memory_decay=0.95,
// pattern_confidence_threshold=0.8, etc).
func DefaultConfig() *Config {
	return &Config{
		Name:    "coordinator",
		Version: "1.0.0",
		Persistence: PersistenceConfig{
			Backend:       "file",
			DataDir:       "data/collections",
			DatabasePath:  "data/coordinator.db",
			RetentionDays: 90,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:      3,
			BaseDelay:        200 * time.Millisecond,
			MaxDelay:         10 * time.Second,
			ExponentialBase:  2.0,
			Jitter:           true,
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
		},
		EventBus: EventBusConfig{
			HistorySize:       1000,
			EnableHistory:     true,
			EnablePersistence: true,
		},
		Memory: MemoryConfig{
			LearningRate: 0.1,
			MemoryDecay:  0.95,
		},
		DepInfer: DepInferConfig{
			Preset:                     "balanced",
			PatternConfidenceThreshold: 0.8,
			AIConfidenceThreshold:      0.7,
			CombinedConfidenceBoost:    0.15,
			MaxAIPairsPerBatch:         20,
			MinSharedKeywords:          2,
			EnableAIInference:          true,
			CacheTTL:                   24 * time.Hour,
			WorkflowGroupMinSize:       4,
		},
		Logging: LoggingConfig{
			DebugMode:  false,
			Level:      "info",
			JSONFormat: false,
		},
	}
}

// Load reads a YAML config file and overlays it on DefaultConfig, then
// validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidationError reports a configuration value outside its valid domain.
// It is a ValidationFailure per : it must propagate to the caller,
// never be silently clamped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s: %s", e.Field, e.Reason)
}

// Validate enforces the numeric domains the board assumes throughout
// (confidences and rates in [0,1], positive retry/backoff parameters).
func (c *Config) Validate() error {
	if c.Persistence.Backend != "file" && c.Persistence.Backend != "sql" {
		return &ValidationError{"persistence.backend", "must be 'file' or 'sql'"}
	}
	if c.Resilience.MaxAttempts < 1 {
		return &ValidationError{"resilience.max_attempts", "must be >= 1"}
	}
	if c.Resilience.ExponentialBase <= 1.0 {
		return &ValidationError{"resilience.exponential_base", "must be > 1.0"}
	}
	if c.Resilience.FailureThreshold < 1 {
		return &ValidationError{"resilience.failure_threshold", "must be >= 1"}
	}
	if c.EventBus.HistorySize < 0 {
		return &ValidationError{"event_bus.history_size", "must be >= 0"}
	}
	if c.Memory.LearningRate <= 0 || c.Memory.LearningRate > 1 {
		return &ValidationError{"memory.learning_rate", "must be in (0,1]"}
	}
	if c.Memory.MemoryDecay <= 0 || c.Memory.MemoryDecay > 1 {
		return &ValidationError{"memory.memory_decay_per_week", "must be in (0,1]"}
	}
	for _, pair := range []struct {
		field string
		v     float64
	}{
		{"dependency_inference.pattern_confidence_threshold", c.DepInfer.PatternConfidenceThreshold},
		{"dependency_inference.ai_confidence_threshold", c.DepInfer.AIConfidenceThreshold},
		{"dependency_inference.combined_confidence_boost", c.DepInfer.CombinedConfidenceBoost},
	} {
		if pair.v < 0 || pair.v > 1 {
			return &ValidationError{pair.field, "must be in [0,1]"}
		}
	}
	if c.DepInfer.MaxAIPairsPerBatch < 1 {
		return &ValidationError{"dependency_inference.max_ai_pairs_per_batch", "must be >= 1"}
	}
	if c.DepInfer.WorkflowGroupMinSize < 2 {
		return &ValidationError{"dependency_inference.workflow_group_min_size", "must be >= 2"}
	}
	return nil
}
