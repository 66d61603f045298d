// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var defaultLogger zerolog.Logger

// Config represents logger configuration
type Config struct {
	// Level is one of debug, info, warn, error; anything else means info
	Level string
	// Format is json or console
	Format string
	// Output defaults to os.Stdout
	Output io.Writer
}

// ParseLevel maps a config level to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup builds the root logger, installs it as the package and global
// default, and returns it for injection into constructors.
func Setup(config Config) zerolog.Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(config.Level))

	writer := config.Output
	if config.Format == FormatConsole {
		writer = zerolog.ConsoleWriter{Out: config.Output, TimeFormat: time.RFC3339}
	}

	defaultLogger = zerolog.New(writer).With().Timestamp().Str("service", "housing").Logger()
	log.Logger = defaultLogger
	return defaultLogger
}

// Get returns the logger installed by the last Setup.
func Get() zerolog.Logger {
	return defaultLogger
}

// Info logs an informational message
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return defaultLogger.Fatal()
}

// WithField returns a child logger carrying one field
func WithField(key string, value interface{}) zerolog.Logger {
	return defaultLogger.With().Interface(key, value).Logger()
}

// WithFields returns a child logger carrying several fields
func WithFields(fields map[string]interface{}) zerolog.Logger {
	return defaultLogger.With().Fields(fields).Logger()
}

func init() {
	Setup(Config{Level: "info", Format: FormatConsole})
}
