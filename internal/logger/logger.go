package logger

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Level represents log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel maps a level name to a Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Entry represents a single log entry
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component,omitempty"`
	Message   string `json:"message"`
}

// ring holds the most recent entries, shared by a logger and its children.
type ring struct {
	mu      sync.RWMutex
	entries []Entry
	size    int
	pos     int
	min     Level
}

// Logger writes to the standard logger and keeps recent entries in memory
// for the /api/logs endpoint.
type Logger struct {
	ring      *ring
	component string
}

// New creates a new Logger with the specified buffer size
func New(bufferSize int) *Logger {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Logger{
		ring: &ring{
			entries: make([]Entry, bufferSize),
			size:    bufferSize,
			min:     LevelInfo,
		},
	}
}

// SetLevel drops entries below min for this logger and all its children.
func (l *Logger) SetLevel(min Level) {
	l.ring.mu.Lock()
	l.ring.min = min
	l.ring.mu.Unlock()
}

// Named returns a child logger that tags entries with component.
// The child shares the parent's buffer.
func (l *Logger) Named(component string) *Logger {
	return &Logger{ring: l.ring, component: component}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.ring.mu.RLock()
	skip := level < l.ring.min
	l.ring.mu.RUnlock()
	if skip {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		log.Printf("[%s] [%s] %s", level, l.component, msg)
	} else {
		log.Printf("[%s] %s", level, msg)
	}

	l.ring.mu.Lock()
	l.ring.entries[l.ring.pos] = Entry{
		Timestamp: time.Now().Format("2006-01-02 15:04:05.000"),
		Level:     level.String(),
		Component: l.component,
		Message:   msg,
	}
	l.ring.pos = (l.ring.pos + 1) % l.ring.size
	l.ring.mu.Unlock()
}

// Debug logs a diagnostic message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// GetEntries returns all log entries in chronological order
func (l *Logger) GetEntries() []Entry {
	l.ring.mu.RLock()
	defer l.ring.mu.RUnlock()

	result := make([]Entry, 0, l.ring.size)
	for i := 0; i < l.ring.size; i++ {
		idx := (l.ring.pos + i) % l.ring.size
		if l.ring.entries[idx].Timestamp != "" {
			result = append(result, l.ring.entries[idx])
		}
	}
	return result
}
