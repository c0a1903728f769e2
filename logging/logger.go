// Package logging wraps zerolog behind a Logger that writes unstructured, colorized output to console and
// structured output to any number of additional writers. Each package derives its own sub-logger, so log lines
// stay attributable to the component that emitted them.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/crytic/siren/logging/colors"
)

// GlobalLogger is disabled until the command layer configures it. Each component derives a sub-logger from it.
var GlobalLogger = NewLogger(zerolog.Disabled, false)

// LogFormat selects the output format for an added writer.
type LogFormat string

const (
	// STRUCTURED emits JSON log lines.
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED emits human-readable lines with no ANSI coloring.
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo carries key-value context attached to a single log message.
type StructuredLogInfo map[string]any

// Logger routes every message to a console logger (colorized, unstructured) and a multi-writer logger
// (structured). Either side may be disabled.
type Logger struct {
	level         zerolog.Level
	consoleLogger zerolog.Logger
	multiLogger   zerolog.Logger
	writers       []io.Writer
}

// NewLogger creates a logger at the given level. Console output is optional; additional writers receive
// structured output.
func NewLogger(level zerolog.Level, consoleEnabled bool, writers ...io.Writer) *Logger {
	consoleLogger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	multiLogger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	if consoleEnabled {
		consoleLogger = zerolog.New(newConsoleWriter(level)).Level(level)
	}
	if len(writers) > 0 {
		multiLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
	}

	return &Logger{
		level:         level,
		consoleLogger: consoleLogger,
		multiLogger:   multiLogger,
		writers:       writers,
	}
}

// NewSubLogger derives a logger carrying an extra key-value pair on every message, so one component's output is
// greppable by that key.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	return &Logger{
		level:         l.level,
		consoleLogger: l.consoleLogger.With().Str(key, value).Logger(),
		multiLogger:   l.multiLogger.With().Str(key, value).Logger(),
		writers:       l.writers,
	}
}

// AddWriter adds an output channel for this logger's messages. UNSTRUCTURED writers receive console-style lines
// without coloring.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat) {
	for _, existing := range l.writers {
		if existing == writer {
			return
		}
	}
	if format == UNSTRUCTURED {
		writer = zerolog.ConsoleWriter{Out: writer, NoColor: true}
	}
	l.writers = append(l.writers, writer)
	l.multiLogger = zerolog.New(zerolog.MultiLevelWriter(l.writers...)).Level(l.level).With().Timestamp().Logger()
}

// Level returns the logger's level.
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel updates the level on both underlying loggers.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.consoleLogger = l.consoleLogger.Level(level)
	l.multiLogger = l.multiLogger.Level(level)
}

// Trace logs a trace-level message.
func (l *Logger) Trace(args ...any) {
	l.send(l.consoleLogger.Trace(), l.multiLogger.Trace(), args...)
}

// Debug logs a debug-level message.
func (l *Logger) Debug(args ...any) {
	l.send(l.consoleLogger.Debug(), l.multiLogger.Debug(), args...)
}

// Info logs an info-level message.
func (l *Logger) Info(args ...any) {
	l.send(l.consoleLogger.Info(), l.multiLogger.Info(), args...)
}

// Warn logs a warning.
func (l *Logger) Warn(args ...any) {
	l.send(l.consoleLogger.Warn(), l.multiLogger.Warn(), args...)
}

// Error logs an error-level message.
func (l *Logger) Error(args ...any) {
	l.send(l.consoleLogger.Error(), l.multiLogger.Error(), args...)
}

// Panic logs at panic level; the underlying logger panics after the message is sent.
func (l *Logger) Panic(args ...any) {
	l.send(l.consoleLogger.Panic(), l.multiLogger.Panic(), args...)
}

// send assembles a message from a variadic argument list and emits it on both loggers. Arguments may be colors
// (switching the console color context for subsequent arguments), one error, one StructuredLogInfo, or anything
// printable.
func (l *Logger) send(consoleEvent *zerolog.Event, multiEvent *zerolog.Event, args ...any) {
	colorCtx := colors.Reset
	consoleParts := make([]string, 0, len(args))
	plainParts := make([]string, 0, len(args))
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch typed := arg.(type) {
		case colors.ColorFunc:
			colorCtx = typed
		case StructuredLogInfo:
			info = typed
		case error:
			err = typed
		default:
			consoleParts = append(consoleParts, colorCtx(typed))
			plainParts = append(plainParts, fmt.Sprintf("%v", typed))
		}
	}

	consoleEvent.Err(err)
	multiEvent.Err(err)
	if l.level <= zerolog.DebugLevel {
		consoleEvent.Stack()
		multiEvent.Stack()
	}
	if info != nil {
		consoleEvent.Any("info", info)
		multiEvent.Any("info", info)
	}

	// The multi event is deferred so a panic-level console event cannot swallow it.
	defer multiEvent.Msg(strings.Join(plainParts, ""))
	consoleEvent.Msg(strings.Join(consoleParts, ""))
}

// newConsoleWriter builds the console writer: no timestamps, level markers colorized, and the module field hidden
// above debug level.
func newConsoleWriter(level zerolog.Level) zerolog.ConsoleWriter {
	writer := zerolog.ConsoleWriter{Out: os.Stdout}
	writer.FormatTimestamp = func(any) string { return "" }
	writer.FormatLevel = func(value any) string {
		parsed, err := zerolog.ParseLevel(value.(string))
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		switch parsed {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return colors.RedBold(zerolog.LevelErrorValue)
		case zerolog.FatalLevel, zerolog.PanicLevel:
			return colors.RedBold(parsed.String())
		default:
			return fmt.Sprintf("%v", value)
		}
	}
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}
	return writer
}
