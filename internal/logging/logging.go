// Package logging configures the zerolog global logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Formats accepted by Init.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init sets the global level and output. Logs go to stderr unless file is
// set, in which case they are written as JSON to a rotated log file.
// The returned closer releases the log file.
func Init(level, format, file string) (io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(lvl)

	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		log.Logger = zerolog.New(rotator).With().Timestamp().Logger()
		return rotator, nil
	}

	switch strings.ToLower(format) {
	case FormatConsole, "":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	case FormatJSON:
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		return nil, fmt.Errorf("unknown log format %q (use console or json)", format)
	}
	return nopCloser{}, nil
}

// ParseLevel maps a level name to a zerolog level. An empty name is "warn".
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q (use debug, info, warn, error or off)", level)
}

// Get returns the global logger.
func Get() zerolog.Logger {
	return log.Logger
}
