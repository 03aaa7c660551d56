package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{DEBUG: "DEBUG", INFO: "INFO", WARN: "WARN", ERROR: "ERROR"}

var levelColors = [...]string{DEBUG: "\033[36m", INFO: "\033[32m", WARN: "\033[33m", ERROR: "\033[31m"}

func (l Level) String() string {
	if l < DEBUG || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel parses a string into a Level. Unknown names fall back to INFO.
func ParseLevel(s string) Level {
	level, _ := LookupLevel(s)
	return level
}

// LookupLevel reports whether s names a known level, case-insensitively.
// WARNING is accepted for WARN.
func LookupLevel(s string) (Level, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		return WARN, true
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return INFO, false
}

// Logger writes leveled printf-style lines with an optional prefix and
// sorted key=value fields.
type Logger struct {
	mu       *sync.Mutex
	out      io.Writer
	level    Level
	prefix   string
	fields   map[string]any
	colorize bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput sets the output destination.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.out = w }
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option {
	return func(l *Logger) { l.level = level }
}

// WithColors enables or disables colorized level names.
func WithColors(enabled bool) Option {
	return func(l *Logger) { l.colorize = enabled }
}

// New creates a Logger writing to stdout at INFO unless opts say otherwise.
func New(opts ...Option) *Logger {
	l := &Logger{mu: &sync.Mutex{}, out: os.Stdout, level: INFO, colorize: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var defaultLogger = New()

// SetDefault replaces the logger returned for contexts without one.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger
}

// Derived loggers share the parent's mutex so lines to one writer never
// interleave.
func (l *Logger) derive(prefix string, fields map[string]any) *Logger {
	c := *l
	c.prefix = prefix
	c.fields = fields
	return &c
}

// WithField returns a child logger with key set.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields returns a child logger with fields merged over the parent's.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return l.derive(l.prefix, merged)
}

// WithPrefix returns a child logger tagging lines with [prefix].
func (l *Logger) WithPrefix(prefix string) *Logger {
	return l.derive(prefix, l.fields)
}

func (l *Logger) Debug(msg string, args ...any) { l.write(DEBUG, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.write(INFO, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.write(WARN, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.write(ERROR, msg, args) }

// write is called from the level methods; the caller two frames up is the
// code that logged.
func (l *Logger) write(level Level, msg string, args []any) {
	if level < l.level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	sb.WriteByte(' ')
	if l.colorize {
		fmt.Fprintf(&sb, "%s%-5s\033[0m ", levelColors[level], level)
	} else {
		fmt.Fprintf(&sb, "%-5s ", level)
	}
	if l.prefix != "" {
		fmt.Fprintf(&sb, "[%s] ", l.prefix)
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		fmt.Fprintf(&sb, "[%s:%d] ", filepath.Base(file), line)
	}
	sb.WriteString(msg)
	l.appendFields(&sb)
	sb.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, sb.String())
}

func (l *Logger) appendFields(sb *strings.Builder) {
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fmt.Sprint(l.fields[k])
		if strings.ContainsAny(v, " \t\"=") {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(sb, " %s=%s", k, v)
	}
}

type ctxKey struct{}

// FromContext returns the request-scoped logger, or the default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// NewContext returns a context carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}
