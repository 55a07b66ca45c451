package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
}

// New returns a logfmt logger writing to out. Lines carry ts, level and msg
// followed by bound and per-call fields.
func New(out io.Writer, level Level) Logger {
	if out == nil {
		out = os.Stderr
	}
	return &textLogger{out: out, level: level, mu: &sync.Mutex{}}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &textLogger{out: io.Discard, level: Error, mu: &sync.Mutex{}}
}

type textLogger struct {
	out    io.Writer
	level  Level
	bound  []Field
	mu     *sync.Mutex
}

func (l *textLogger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

func (l *textLogger) With(fields ...Field) Logger {
	if l == nil {
		return Nop()
	}
	return &textLogger{
		out:   l.out,
		level: l.level,
		bound: append(append([]Field{}, l.bound...), fields...),
		mu:    l.mu,
	}
}

func (l *textLogger) Debug(msg string, fields ...Field) { l.write(Debug, msg, fields) }
func (l *textLogger) Info(msg string, fields ...Field)  { l.write(Info, msg, fields) }
func (l *textLogger) Warn(msg string, fields ...Field)  { l.write(Warn, msg, fields) }
func (l *textLogger) Error(msg string, fields ...Field) { l.write(Error, msg, fields) }

func (l *textLogger) write(level Level, msg string, fields []Field) {
	if l == nil || level < l.level {
		return
	}
	var b strings.Builder
	b.WriteString("ts=")
	b.WriteString(time.Now().UTC().Format(time.RFC3339Nano))
	b.WriteString(" level=")
	b.WriteString(levelString(level))
	b.WriteString(" msg=")
	b.WriteString(encodeValue(msg))
	for _, field := range l.bound {
		b.WriteString(" ")
		b.WriteString(field.Key)
		b.WriteString("=")
		b.WriteString(encodeValue(field.Value))
	}
	for _, field := range fields {
		b.WriteString(" ")
		b.WriteString(field.Key)
		b.WriteString("=")
		b.WriteString(encodeValue(field.Value))
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

func encodeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quoteIfNeeded(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Duration:
		return quoteIfNeeded(v.String())
	case error:
		return quoteIfNeeded(v.Error())
	case fmt.Stringer:
		return quoteIfNeeded(v.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		return quoteIfNeeded(fmt.Sprintf("%v", v))
	}
}

func quoteIfNeeded(value string) string {
	if value == "" {
		return `""`
	}
	if strings.ContainsAny(value, " \t\n\r\"=") {
		return strconv.Quote(value)
	}
	return value
}

func levelString(level Level) string {
	switch level {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}
