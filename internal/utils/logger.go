// internal/utils/logger.go

package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger is the leveled, field-carrying logger engine components
// accept. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// ParseLevel converts a configuration string into a LogLevel.
// Unknown values fall back to InfoLevel.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// kvLogger writes logfmt-style lines: time, level, msg, then any bound
// fields in sorted order. Derived loggers share the output mutex so
// concurrent components never interleave lines.
type kvLogger struct {
	level  LogLevel
	mu     *sync.Mutex
	out    io.Writer
	fields map[string]interface{}
}

// NewLoggerWithLevel returns a logger writing key=value lines to stdout.
func NewLoggerWithLevel(level LogLevel) Logger {
	return NewLoggerWithOutput(level, os.Stdout)
}

// NewLoggerWithOutput returns a logger writing to out. The CLI routes
// diagnostics to stderr with this so record output stays clean.
func NewLoggerWithOutput(level LogLevel, out io.Writer) Logger {
	return &kvLogger{level: level, mu: &sync.Mutex{}, out: out}
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return &kvLogger{level: ErrorLevel + 1, mu: &sync.Mutex{}, out: io.Discard}
}

func (l *kvLogger) Debug(msg string) { l.log(DebugLevel, msg) }
func (l *kvLogger) Info(msg string)  { l.log(InfoLevel, msg) }
func (l *kvLogger) Warn(msg string)  { l.log(WarnLevel, msg) }
func (l *kvLogger) Error(msg string) { l.log(ErrorLevel, msg) }

func (l *kvLogger) Debugf(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...))
}

func (l *kvLogger) Infof(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...))
}

func (l *kvLogger) Warnf(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...))
}

func (l *kvLogger) Errorf(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...))
}

// WithField returns a logger that appends key=value to every line.
// Field maps are never mutated after construction, so derived loggers
// read them without locking.
func (l *kvLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *kvLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &kvLogger{level: l.level, mu: l.mu, out: l.out, fields: merged}
}

func (l *kvLogger) log(level LogLevel, msg string) {
	if level < l.level || level > ErrorLevel {
		return
	}

	var b strings.Builder
	b.WriteString("time=")
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString(" level=")
	b.WriteString(levelNames[level])
	b.WriteString(" msg=")
	b.WriteString(quoteValue(msg))

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteValue(fmt.Sprint(l.fields[k])))
	}

	l.mu.Lock()
	fmt.Fprintln(l.out, b.String())
	l.mu.Unlock()
}

// quoteValue quotes values logfmt-style: only when needed.
func quoteValue(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
