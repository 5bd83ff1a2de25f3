package internal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

var (
	logLevel = LogLevelInfo
	logger   = newLogger(os.Stderr)
)

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		With().
		Timestamp().
		Logger().
		Level(zerologLevel(logLevel))
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	logLevel = level
	logger = logger.Level(zerologLevel(level))
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LogLevelDebug)
	} else {
		SetLogLevel(LogLevelInfo)
	}
}

// SetLogOutput redirects log output, mainly for tests.
func SetLogOutput(w io.Writer) {
	logger = newLogger(w)
}

// Logger returns the underlying structured logger for callers that attach fields.
func Logger() *zerolog.Logger {
	return &logger
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	logger.Error().Msg(fmt.Sprintf(format, args...))
}

// LogWarn logs a warning message
func LogWarn(format string, args ...interface{}) {
	logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// LogInfo logs an info message
func LogInfo(format string, args ...interface{}) {
	logger.Info().Msg(fmt.Sprintf(format, args...))
}

// LogDebug logs a debug message
func LogDebug(format string, args ...interface{}) {
	logger.Debug().Msg(fmt.Sprintf(format, args...))
}
