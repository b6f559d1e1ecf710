// Package logging provides config-driven categorized file-based logging for
// peerloop. Logs are written to the configured directory with separate files
// per category. When debug_mode is off, every call is a silent no-op.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system.
type Category string

const (
	CategoryBoot       Category = "boot"       // startup and wiring
	CategoryEngine     Category = "engine"     // orchestrator decisions per request
	CategorySelection  Category = "selection"  // responder selection policy
	CategoryKnowledge  Category = "knowledge"  // knowledge retrieval
	CategoryResource   Category = "resource"   // resource matching and markers
	CategorySafety     Category = "safety"     // risk-term flagging
	CategoryScheduler  Category = "scheduler"  // delivery delay computation
	CategoryGeneration Category = "generation" // LLM calls
	CategoryCatalog    Category = "catalog"    // catalog loading and hot reload
	CategoryStore      Category = "store"      // SQLite reads/writes
	CategoryNotify     Category = "notify"     // one-shot nudge dedup
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Settings mirrors config.LoggingConfig to avoid a circular import.
type Settings struct {
	DebugMode  bool
	Level      string
	Directory  string
	Categories map[string]bool
	JSONFormat bool
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	settings  Settings
	settingsM sync.RWMutex
	logsDir   string
	logLevel  int
)

// Initialize sets up the logging directory from the loaded configuration.
// Should be called once at startup; a no-op when debug mode is disabled.
func Initialize(s Settings) error {
	settingsM.Lock()
	settings = s
	switch s.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	settingsM.Unlock()

	if !s.DebugMode {
		return nil
	}

	logsDir = s.Directory
	if logsDir == "" {
		logsDir = "logs"
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== peerloop logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", s.Level)
	return nil
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	settingsM.RLock()
	defer settingsM.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	settingsM.RLock()
	defer settingsM.RUnlock()

	if !settings.DebugMode {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	enabled, exists := settings.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a no-op
// logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation trivial
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// structuredEntry is the JSON form of one log line.
type structuredEntry struct {
	Timestamp int64  `json:"ts"`
	Category  string `json:"cat"`
	Level     string `json:"lvl"`
	Message   string `json:"msg"`
}

func (l *Logger) write(level, msg string) {
	settingsM.RLock()
	jsonFormat := settings.JSONFormat
	settingsM.RUnlock()

	if jsonFormat {
		entry := structuredEntry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     level,
			Message:   msg,
		}
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s", level, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.write("DEBUG", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.write("INFO", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.write("WARN", fmt.Sprintf(format, args...))
}

// Error logs an error message (always written if the logger exists).
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.write("ERROR", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootError logs an error to the boot category.
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// Engine logs to the engine category.
func Engine(format string, args ...interface{}) { Get(CategoryEngine).Info(format, args...) }

// EngineDebug logs debug to the engine category.
func EngineDebug(format string, args ...interface{}) { Get(CategoryEngine).Debug(format, args...) }

// EngineWarn logs a warning to the engine category.
func EngineWarn(format string, args ...interface{}) { Get(CategoryEngine).Warn(format, args...) }

// Selection logs to the selection category.
func Selection(format string, args ...interface{}) { Get(CategorySelection).Info(format, args...) }

// SelectionDebug logs debug to the selection category.
func SelectionDebug(format string, args ...interface{}) {
	Get(CategorySelection).Debug(format, args...)
}

// Knowledge logs to the knowledge category.
func Knowledge(format string, args ...interface{}) { Get(CategoryKnowledge).Info(format, args...) }

// Resource logs to the resource category.
func Resource(format string, args ...interface{}) { Get(CategoryResource).Info(format, args...) }

// Safety logs to the safety category.
func Safety(format string, args ...interface{}) { Get(CategorySafety).Info(format, args...) }

// Scheduler logs to the scheduler category.
func Scheduler(format string, args ...interface{}) { Get(CategoryScheduler).Info(format, args...) }

// SchedulerDebug logs debug to the scheduler category.
func SchedulerDebug(format string, args ...interface{}) {
	Get(CategoryScheduler).Debug(format, args...)
}

// Generation logs to the generation category.
func Generation(format string, args ...interface{}) { Get(CategoryGeneration).Info(format, args...) }

// GenerationError logs an error to the generation category.
func GenerationError(format string, args ...interface{}) {
	Get(CategoryGeneration).Error(format, args...)
}

// Catalog logs to the catalog category.
func Catalog(format string, args ...interface{}) { Get(CategoryCatalog).Info(format, args...) }

// CatalogError logs an error to the catalog category.
func CatalogError(format string, args ...interface{}) { Get(CategoryCatalog).Error(format, args...) }

// Store logs to the store category.
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// Notify logs to the notify category.
func Notify(format string, args ...interface{}) { Get(CategoryNotify).Info(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
