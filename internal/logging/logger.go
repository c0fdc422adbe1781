// Package logging provides a small structured key/value logger.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a string into a Level. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format represents the log output format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat parses a string into a Format. Unknown names map to FormatText.
func ParseFormat(s string) Format {
	if strings.ToLower(s) == "json" {
		return FormatJSON
	}
	return FormatText
}

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	// WithFields returns a logger that adds the given fields to every entry.
	WithFields(keysAndValues ...interface{}) Logger
}

// Config holds the logger configuration.
type Config struct {
	Level  string
	Format string
	Output io.Writer // Defaults to os.Stderr
}

type field struct {
	key   string
	value interface{}
}

type logger struct {
	level  Level
	format Format
	out    *output
	fields []field
}

// output serializes writes from a logger and all loggers derived from it.
type output struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a new Logger with the given configuration.
func New(cfg Config) Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	return &logger{
		level:  ParseLevel(cfg.Level),
		format: ParseFormat(cfg.Format),
		out:    &output{w: w},
	}
}

// NewNop creates a logger that discards all output.
func NewNop() Logger {
	return nopLogger{}
}

func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, msg, keysAndValues)
}

func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, msg, keysAndValues)
}

func (l *logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, msg, keysAndValues)
}

func (l *logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, msg, keysAndValues)
}

func (l *logger) WithFields(keysAndValues ...interface{}) Logger {
	fields := make([]field, len(l.fields), len(l.fields)+len(keysAndValues)/2)
	copy(fields, l.fields)
	return &logger{
		level:  l.level,
		format: l.format,
		out:    l.out,
		fields: appendFields(fields, keysAndValues),
	}
}

// appendFields pairs up keysAndValues, skipping entries whose key is not a string.
func appendFields(fields []field, keysAndValues []interface{}) []field {
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields = append(fields, field{key: key, value: keysAndValues[i+1]})
		}
	}
	return fields
}

func (l *logger) log(level Level, msg string, keysAndValues []interface{}) {
	if level < l.level {
		return
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	fields := appendFields(append([]field(nil), l.fields...), keysAndValues)

	var line string
	if l.format == FormatJSON {
		line = formatJSON(ts, level, msg, fields)
	} else {
		line = formatText(ts, level, msg, fields)
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	fmt.Fprintln(l.out.w, line)
}

func formatText(ts string, level Level, msg string, fields []field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", ts, level, msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.key, f.value)
	}
	return b.String()
}

func formatJSON(ts string, level Level, msg string, fields []field) string {
	entry := make(map[string]interface{}, len(fields)+3)
	for _, f := range fields {
		if err, ok := f.value.(error); ok {
			entry[f.key] = err.Error()
			continue
		}
		entry[f.key] = f.value
	}
	entry["ts"] = ts
	entry["level"] = level.String()
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"ts":%q,"level":"error","msg":"failed to marshal log entry"}`, ts)
	}
	return string(data)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}
func (n nopLogger) WithFields(...interface{}) Logger { return n }
