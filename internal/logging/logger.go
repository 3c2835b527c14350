// Package logging provides structured logging for the CLI and the browser.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with mode-specific output.
type Logger struct {
	zlog   zerolog.Logger
	mode   string // "cli" or "tui"
	output io.Writer
}

// NewLogger creates a logger for the given mode. In "tui" mode the
// terminal belongs to the browser, so out should be a log file; a nil out
// discards output. In "cli" mode a nil out means stderr.
func NewLogger(mode string, out io.Writer) *Logger {
	if out == nil {
		if mode == "tui" {
			out = io.Discard
		} else {
			out = os.Stderr
		}
	}

	l := &Logger{mode: mode}
	l.SetOutput(out)
	return l
}

// NewDefaultCLILogger creates a default CLI logger.
func NewDefaultCLILogger() *Logger {
	return NewLogger("cli", nil)
}

// NewNopLogger returns a logger that writes nothing. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), mode: "nop", output: io.Discard}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// With creates a child logger context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		zlog:   l.zlog.With().Str("component", component).Logger(),
		mode:   l.mode,
		output: l.output,
	}
}

// SetOutput changes the output writer for the logger.
// Used to redirect logs above progress bars.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	if l.mode == "tui" {
		// Log files get plain JSON lines.
		l.zlog = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	l.zlog = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}).With().Timestamp().Logger()
}

// Output returns the current output writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// Debugf logs a debug message with printf-style formatting.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// RetryLogger adapts a Logger to retryablehttp.LeveledLogger.
// Info and Debug from the retry client are demoted to debug.
type RetryLogger struct {
	l *Logger
}

// ForRetries returns the retryablehttp adapter for this logger.
func (l *Logger) ForRetries() *RetryLogger {
	return &RetryLogger{l: l}
}

func (r *RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	r.l.zlog.Error().Fields(keysAndValues).Msg(msg)
}

func (r *RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	r.l.zlog.Debug().Fields(keysAndValues).Msg(msg)
}

func (r *RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.l.zlog.Debug().Fields(keysAndValues).Msg(msg)
}

func (r *RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.l.zlog.Warn().Fields(keysAndValues).Msg(msg)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
