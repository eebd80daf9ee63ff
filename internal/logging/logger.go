// Package logging provides structured logging for the Bestlist client core.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents a log level.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// Logger provides structured JSON logging.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel LogLevel
}

var (
	// global logger instance
	global *Logger
	once   sync.Once
)

// Init initializes the global logger.
func Init(out io.Writer, minLevel LogLevel) {
	once.Do(func() {
		global = &Logger{
			out:      out,
			minLevel: minLevel,
		}
	})
}

// Get returns the global logger instance.
func Get() *Logger {
	if global == nil {
		Init(os.Stdout, LevelInfo)
	}
	return global
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Error     string                 `json:"error,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// log writes a log entry at the specified level.
func (l *Logger) log(level LogLevel, component, message string, err error, context map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Component: component,
		Message:   message,
		Context:   context,
	}

	if err != nil {
		entry.Error = err.Error()
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		log.Printf("Failed to marshal log entry: %v\n", jsonErr)
		return
	}

	fmt.Fprintln(l.out, string(data))
}

// shouldLog checks if a level should be logged.
func (l *Logger) shouldLog(level LogLevel) bool {
	levels := map[LogLevel]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}

	return levels[level] >= levels[l.minLevel]
}

// Component returns a scoped logger that stamps every entry with the
// component name (e.g. "offline_queue", "cache_store").
func (l *Logger) Component(name string) *ComponentLogger {
	return &ComponentLogger{logger: l, name: name}
}

// ComponentLogger is a Logger bound to one subsystem name.
type ComponentLogger struct {
	logger *Logger
	name   string
}

// Debug logs a debug message.
func (c *ComponentLogger) Debug(message string, context ...map[string]interface{}) {
	c.logger.log(LevelDebug, c.name, message, nil, mergeContext(context...))
}

// Info logs an info message.
func (c *ComponentLogger) Info(message string, context ...map[string]interface{}) {
	c.logger.log(LevelInfo, c.name, message, nil, mergeContext(context...))
}

// Warn logs a warning message.
func (c *ComponentLogger) Warn(message string, context ...map[string]interface{}) {
	c.logger.log(LevelWarn, c.name, message, nil, mergeContext(context...))
}

// Error logs an error message.
func (c *ComponentLogger) Error(message string, err error, context ...map[string]interface{}) {
	c.logger.log(LevelError, c.name, message, err, mergeContext(context...))
}

// mergeContext merges multiple context maps.
func mergeContext(context ...map[string]interface{}) map[string]interface{} {
	if len(context) == 0 {
		return nil
	}
	if len(context) == 1 {
		return context[0]
	}
	merged := make(map[string]interface{})
	for _, c := range context {
		for k, v := range c {
			merged[k] = v
		}
	}
	return merged
}

// Convenience functions using the global logger

func Debug(message string, context ...map[string]interface{}) {
	Get().log(LevelDebug, "", message, nil, mergeContext(context...))
}

func Info(message string, context ...map[string]interface{}) {
	Get().log(LevelInfo, "", message, nil, mergeContext(context...))
}

func Warn(message string, context ...map[string]interface{}) {
	Get().log(LevelWarn, "", message, nil, mergeContext(context...))
}

func Error(message string, err error, context ...map[string]interface{}) {
	Get().log(LevelError, "", message, err, mergeContext(context...))
}

// Component returns a component-scoped logger backed by the global logger.
func Component(name string) *ComponentLogger {
	return Get().Component(name)
}
