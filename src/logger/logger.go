package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"option-guide/src/models"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	logger zerolog.Logger
	config *models.MConfig
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing to stdout.
func NewLogger(config *models.MConfig, name string) *Logger {
	return NewLoggerTo(os.Stdout, config, name)
}

// -----------------------------------------------------------------------------

// NewLoggerTo creates a Logger writing to w. Level comes from config.LogLevel
// (defaults to info when the config is nil or the level is unknown).
func NewLoggerTo(w io.Writer, config *models.MConfig, name string) *Logger {
	level := "info"
	if config != nil && config.LogLevel != "" {
		level = config.LogLevel
	}
	return &Logger{
		name:   name,
		logger: zerolog.New(w).With().Timestamp().Str("component", name).Logger().Level(ParseLevel(level)),
		config: config,
	}
}

// -----------------------------------------------------------------------------

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{name: "nop", logger: zerolog.Nop()}
}

// -----------------------------------------------------------------------------

// ParseLevel maps config level names onto zerolog levels. "WARNING" is
// accepted as an alias of warn.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing the same sink and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   name,
		logger: l.logger.With().Str("component", name).Logger(),
		config: l.config,
	}
}

// -----------------------------------------------------------------------------

// Level reports the active level.
func (l *Logger) Level() zerolog.Level {
	return l.logger.GetLevel()
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}
