package logger

import (
	"strings"
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger, creating it on first use with level.
// Later calls ignore level.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = New(level)
	})
	return globalLogger
}

// New builds a standalone logger; tests use it to avoid the singleton.
func New(level string) *Logger {
	return newZapLogger(strings.ToLower(strings.TrimSpace(level)))
}

// ReportError logs a failure raised by an event subscriber.
func (l *Logger) ReportError(event string, err error) {
	if l == nil || err == nil {
		return
	}
	l.Errorw("event_callback_failed", "event", event, "err", err)
}
