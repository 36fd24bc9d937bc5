// Package log is the node wide structured logger. It wraps a zerolog logger
// and exposes printf-like, key/value and error-first helpers.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"
)

// logTestWriterName can be used as output to redirect logs to logTestWriter.
const logTestWriterName = "log_test_writer"

var (
	logger atomic.Pointer[zerolog.Logger]
	level  atomic.Value

	// logTestWriter is only used by tests and benchmarks.
	logTestWriter io.Writer = io.Discard

	// panicOnInvalidChars makes every log call panic if the resulting
	// message contains invalid UTF-8 sequences.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

func init() {
	Init(LogLevelError, "stderr", nil)
}

// Init configures the global logger. Level must be one of debug, info, warn,
// error or fatal. Output can be stdout, stderr or a file path. If errorOutput
// is not nil, every entry with level error or higher is also written there.
func Init(logLevel, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	case "stderr":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, &errorLevelWriter{errorOutput})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || logLevel == "" {
		panic(fmt.Sprintf("invalid log level: %q", logLevel))
	}
	l := zerolog.New(out).Level(lvl).With().Timestamp().CallerWithSkipFrameCount(4).Logger()
	logger.Store(&l)
	level.Store(lvl.String())
}

// errorLevelWriter forwards only entries with level error or higher.
type errorLevelWriter struct {
	w io.Writer
}

func (e *errorLevelWriter) Write(p []byte) (int, error) {
	return e.w.Write(p)
}

func (e *errorLevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < zerolog.ErrorLevel {
		return len(p), nil
	}
	return e.w.Write(p)
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return logger.Load()
}

// Level returns the current log level.
func Level() string {
	return level.Load().(string)
}

func checkInvalidChars(s string) {
	if panicOnInvalidChars && !utf8.ValidString(s) {
		panic(fmt.Sprintf("log line contains invalid UTF-8: %q", s))
	}
}

func keyValues(ev *zerolog.Event, keyvalues []any) *zerolog.Event {
	for i := 0; i+1 < len(keyvalues); i += 2 {
		key, ok := keyvalues[i].(string)
		if !ok {
			key = fmt.Sprint(keyvalues[i])
		}
		if s, ok := keyvalues[i+1].(string); ok {
			checkInvalidChars(s)
		}
		ev = ev.Interface(key, keyvalues[i+1])
	}
	return ev
}

func msg(ev *zerolog.Event, s string) {
	checkInvalidChars(s)
	ev.Msg(s)
}

// Debug logs at debug level, formatting the args like fmt.Sprint.
func Debug(args ...any) { msg(Logger().Debug(), fmt.Sprint(args...)) }

// Debugf logs at debug level, formatting the args like fmt.Sprintf.
func Debugf(template string, args ...any) { msg(Logger().Debug(), fmt.Sprintf(template, args...)) }

// Debugw logs a message at debug level with the given key/value pairs.
func Debugw(s string, keyvalues ...any) { msg(keyValues(Logger().Debug(), keyvalues), s) }

func Info(args ...any) { msg(Logger().Info(), fmt.Sprint(args...)) }
func Infof(template string, args ...any) { msg(Logger().Info(), fmt.Sprintf(template, args...)) }
func Infow(s string, keyvalues ...any) { msg(keyValues(Logger().Info(), keyvalues), s) }
func Warn(args ...any) { msg(Logger().Warn(), fmt.Sprint(args...)) }
func Warnf(template string, args ...any) { msg(Logger().Warn(), fmt.Sprintf(template, args...)) }
func Warnw(s string, keyvalues ...any) { msg(keyValues(Logger().Warn(), keyvalues), s) }
func Error(args ...any) { msg(Logger().Error(), fmt.Sprint(args...)) }
func Errorf(template string, args ...any) { msg(Logger().Error(), fmt.Sprintf(template, args...)) }
func Fatal(args ...any) { msg(Logger().Fatal(), fmt.Sprint(args...)) }
func Fatalf(template string, args ...any) { msg(Logger().Fatal(), fmt.Sprintf(template, args...)) }

// Errorw logs an error with a message and optional key/value pairs.
func Errorw(err error, s string, keyvalues ...any) {
	msg(keyValues(Logger().Error().Err(err), keyvalues), s)
}
