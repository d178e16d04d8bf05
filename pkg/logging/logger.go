// Package logging provides the structured, context-aware logger used by every
// netlib component. Entries are key/value pairs; a correlation ID found in the
// context is attached automatically.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging contract consumed by netlib packages. Implementations
// must be safe for concurrent use.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

const (
	// FormatJSON writes one JSON object per entry.
	FormatJSON = "json"
	// FormatConsole writes human readable, colourised lines.
	FormatConsole = "console"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	Level     string
	Format    string
	Writer    io.Writer
	Component string
	Fields    map[string]interface{}
}

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	base   zerolog.Logger
	fields []interface{}
}

// New creates a configured ZerologLogger based on Options.
func New(opts Options) (*ZerologLogger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	var output io.Writer = writer
	switch strings.ToLower(opts.Format) {
	case "", FormatJSON:
	case FormatConsole:
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.RFC3339
		output = console
	default:
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	builder := zerolog.New(output).Level(level).With().Timestamp()
	if opts.Component != "" {
		builder = builder.Str("component", opts.Component)
	}
	for _, key := range sortedKeys(opts.Fields) {
		builder = builder.Interface(key, opts.Fields[key])
	}

	return &ZerologLogger{base: builder.Logger()}, nil
}

// Debug emits a debug log entry.
func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.DebugLevel, msg, fields)
}

// Info emits an info log entry.
func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.InfoLevel, msg, fields)
}

// Warn emits a warning log entry.
func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.WarnLevel, msg, fields)
}

// Error emits an error log entry.
func (l *ZerologLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.ErrorLevel, msg, fields)
}

// With derives a new logger with persistent fields.
func (l *ZerologLogger) With(fields ...interface{}) Logger {
	if l == nil {
		return NewNoOp()
	}
	next := make([]interface{}, 0, len(l.fields)+len(fields))
	next = append(next, l.fields...)
	next = append(next, fields...)
	return &ZerologLogger{base: l.base, fields: next}
}

func (l *ZerologLogger) log(ctx context.Context, level zerolog.Level, msg string, fields []interface{}) {
	if l == nil {
		return
	}
	event := l.base.WithLevel(level)
	if event == nil {
		return
	}
	for _, pair := range mergeFields(l.fields, fields) {
		if err, ok := pair.value.(error); ok {
			event = event.AnErr(pair.key, err)
			continue
		}
		event = event.Interface(pair.key, pair.value)
	}
	if id := CorrelationID(ctx); id != "" {
		event = event.Str("correlation_id", id)
	}
	event.Msg(msg)
}

type field struct {
	key   string
	value interface{}
}

// mergeFields flattens key/value lists; later keys override earlier ones and
// keep the position of the first occurrence.
func mergeFields(base, additions []interface{}) []field {
	index := make(map[string]int)
	merged := make([]field, 0, (len(base)+len(additions))/2)

	process := func(values []interface{}) {
		for i := 0; i+1 < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok || key == "" {
				continue
			}
			if pos, exists := index[key]; exists {
				merged[pos].value = values[i+1]
				continue
			}
			index[key] = len(merged)
			merged = append(merged, field{key: key, value: values[i+1]})
		}
	}

	process(base)
	process(additions)
	return merged
}

func sortedKeys(input map[string]interface{}) []string {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ Logger = (*ZerologLogger)(nil)
