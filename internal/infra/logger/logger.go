// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Output string // "stderr", "stdout", or a log file path
}

// Init initializes the global zerolog logger. Console output goes to stderr
// by default; stdout is reserved for the queue display. A file path switches
// to JSON output.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)
	console := true

	var writer io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr", "":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		writer = f
		console = false
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		parts := strings.Split(file, string(filepath.Separator))
		if len(parts) > 1 {
			return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
		}
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	// ConsoleWriter for terminals, JSON for files; caller info only at debug.
	var logger zerolog.Logger
	if console {
		if level == zerolog.DebugLevel {
			logger = zerolog.New(zerolog.ConsoleWriter{
				Out:        writer,
				TimeFormat: time.TimeOnly,
				PartsOrder: []string{"time", "level", "message", "caller"},
				FormatCaller: func(i interface{}) string {
					return "(" + i.(string) + ")"
				},
			}).With().Timestamp().Caller().Logger()
		} else {
			logger = zerolog.New(zerolog.ConsoleWriter{
				Out:        writer,
				TimeFormat: time.TimeOnly,
			}).With().Timestamp().Logger()
		}
	} else {
		base := zerolog.New(writer).With().Timestamp()
		if level == zerolog.DebugLevel {
			logger = base.Caller().Logger()
		} else {
			logger = base.Logger()
		}
	}
	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger

	return nil
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
