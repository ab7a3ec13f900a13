package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// SimpleLogger writes leveled, field-tagged lines to an io.Writer (stderr by
// default). It's the fallback every agentrt component uses until a caller
// wires in something richer (zap, zerolog, an OTel log bridge); the
// runtime only ever depends on the Logger interface, never this type.
type SimpleLogger struct {
	mu     sync.Mutex
	out    io.Writer
	level  LogLevel
	fields map[string]interface{}
}

// NewSimpleLogger builds a SimpleLogger writing to stderr at the level named
// by AGENTRT_LOG_LEVEL (InfoLevel when unset or unrecognized).
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		out:    os.Stderr,
		level:  ParseLevel(envLogLevel()),
		fields: map[string]interface{}{},
	}
}

// NewDefaultLogger is the constructor core.Config reaches for when no
// logger was supplied via WithLogger.
func NewDefaultLogger() Logger {
	return NewSimpleLogger()
}

// SetOutput redirects where l writes rendered lines; tests use it to assert
// on log content instead of scraping stderr. Returns an error if l is not a
// *SimpleLogger (e.g. a caller passed a custom Logger implementation).
func SetOutput(l Logger, w io.Writer) error {
	sl, ok := l.(*SimpleLogger)
	if !ok {
		return fmt.Errorf("logger: SetOutput requires a *SimpleLogger, got %T", l)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.out = w
	return nil
}

func envLogLevel() string {
	if v := os.Getenv("AGENTRT_LOG_LEVEL"); v != "" {
		return v
	}
	return "INFO"
}

func (l *SimpleLogger) Debug(msg string, fields ...interface{}) { l.emit(DebugLevel, msg, fields) }
func (l *SimpleLogger) Info(msg string, fields ...interface{})  { l.emit(InfoLevel, msg, fields) }
func (l *SimpleLogger) Warn(msg string, fields ...interface{})  { l.emit(WarnLevel, msg, fields) }
func (l *SimpleLogger) Error(msg string, fields ...interface{}) { l.emit(ErrorLevel, msg, fields) }

// SetLevel changes the minimum level emitted; case-insensitive, "WARNING"
// accepted as an alias for "WARN".
func (l *SimpleLogger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = ParseLevel(level)
}

// WithField returns a child logger carrying key in addition to l's own
// fields; l itself is untouched.
func (l *SimpleLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a child logger carrying fields merged over l's own.
func (l *SimpleLogger) WithFields(fields map[string]interface{}) Logger {
	l.mu.Lock()
	merged := mergeFields(l.fields, nil)
	l.mu.Unlock()
	for k, v := range fields {
		merged[k] = v
	}
	return &SimpleLogger{out: l.out, level: l.level, fields: merged}
}

// With is the Field-slice equivalent of WithFields, matching the Logger
// interface's variadic-Field form.
func (l *SimpleLogger) With(fields ...Field) Logger {
	extra := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		extra[f.Key] = f.Value
	}
	return l.WithFields(extra)
}

func mergeFields(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// emit renders one line: "ts [LEVEL] msg key=val ...", fields sorted by key
// so two calls with the same field set always print identically.
func (l *SimpleLogger) emit(level LogLevel, msg string, extra []interface{}) {
	l.mu.Lock()
	if level < l.level {
		l.mu.Unlock()
		return
	}
	out := l.out
	all := mergeFields(l.fields, nil)
	l.mu.Unlock()

	// Callers use two conventions: alternating key/value pairs
	// ("count", 3, "ok", true) or one or more Field structs passed
	// directly (Field{Key: "count", Value: 3}). Detect per-element so a
	// mix of both in the same call still lands correctly.
	for i := 0; i < len(extra); i++ {
		if f, ok := extra[i].(Field); ok {
			all[f.Key] = f.Value
			continue
		}
		if key, ok := extra[i].(string); ok && i+1 < len(extra) {
			all[key] = extra[i+1]
			i++
		}
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, all[k])
	}
	fmt.Fprintln(out, b.String())
}
