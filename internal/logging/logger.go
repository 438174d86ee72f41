// Package logging provides config-driven categorized logging for the
// coordination engine. Logging is gated by debug_mode in the loaded
// Config; when disabled, loggers are no-ops so hot paths (event dispatch,
// prediction) never pay for formatting they don't need.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem emitting a log line.
type Category string

const (
	CategoryBoot          Category = "boot"
	CategoryPersistence   Category = "persistence"
	CategoryResilience    Category = "resilience"
	CategoryEventBus      Category = "eventbus"
	CategoryContextStore  Category = "contextstore"
	CategoryMemory        Category = "memory"
	CategoryDepInfer      Category = "depinfer"
	CategoryLLMRefiner    Category = "llmrefiner"
	CategoryCoordinator   Category = "coordinator"
	CategoryKanban        Category = "kanban"
)

// StructuredLogEntry is the JSON shape written when JSONFormat is enabled.
// Downstream tooling (analysis_results / conversation_index consumers,
// ) can tail these files without parsing free text.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Options configures the logging package. Callers typically derive this
// from config.Config.Logging rather than constructing it by hand.
type Options struct {
	DebugMode  bool
	Categories map[string]bool // empty/nil means all categories enabled
	Level      string          // debug|info|warn|error
	JSONFormat bool
	Dir        string // directory for per-category log files; empty disables file output
}

const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu       sync.RWMutex
	opts     Options
	loggers  = make(map[Category]*Logger)
	logLevel = LevelInfo
	zapSink  *zap.Logger
)

// Initialize configures the package for the process lifetime. Safe to call
// again to reconfigure (e.g. after a config reload); existing *Logger
// handles pick up the new settings since they read package state lazily.
func Initialize(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	for _, l := range loggers {
		l.closeLocked()
	}
	loggers = make(map[Category]*Logger)

	if zapSink != nil {
		_ = zapSink.Sync()
		zapSink = nil
	}

	if !o.DebugMode {
		return nil
	}

	if o.Dir != "" {
		if err := os.MkdirAll(o.Dir, 0o755); err != nil {
			return fmt.Errorf("logging: create log dir: %w", err)
		}
	}

	if o.JSONFormat {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.EpochMillisTimeEncoder
		encoder := zapcore.NewJSONEncoder(cfg)
		core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zapLevelFor(logLevel))
		zapSink = zap.New(core)
	}

	return nil
}

func zapLevelFor(level int) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsCategoryEnabled reports whether a category should produce output.
func IsCategoryEnabled(c Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !opts.DebugMode {
		return false
	}
	if len(opts.Categories) == 0 {
		return true
	}
	enabled, known := opts.Categories[string(c)]
	if !known {
		return true
	}
	return enabled
}

// Logger is a per-category sink. The zero value (as returned when a
// category is disabled) is a safe no-op.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

// Get returns (creating if necessary) the logger for category.
func Get(c Category) *Logger {
	if !IsCategoryEnabled(c) {
		return &Logger{category: c}
	}

	mu.RLock()
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}

	if opts.Dir == "" {
		l := &Logger{category: c}
		loggers[c] = l
		return l
	}

	name := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), c)
	f, err := os.OpenFile(filepath.Join(opts.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: could not open log file for %s: %v\n", c, err)
		l := &Logger{category: c}
		loggers[c] = l
		return l
	}

	l := &Logger{category: c, file: f, logger: log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)}
	loggers[c] = l
	return l
}

func (l *Logger) closeLocked() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

func (l *Logger) emit(level string, levelRank int, format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	mu.RLock()
	rank := logLevel
	jsonFormat := opts.JSONFormat
	mu.RUnlock()
	if levelRank < rank {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if zapSink != nil {
		zapSink.Log(zapcore.Level(levelRank-1), msg, zap.String("category", string(l.category)))
	}
	if jsonFormat {
		entry := StructuredLogEntry{Timestamp: time.Now().UnixMilli(), Category: string(l.category), Level: level, Message: msg}
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s", level, msg)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.emit("debug", LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.emit("info", LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.emit("warn", LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.emit("error", LevelError, format, args...) }

// Timer measures and logs an operation's duration at Debug level.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
