// Package log provides the process-wide structured logger.
//
// Call sites pass a message followed by alternating key/value pairs:
//
//	log.Info("requesting review", "path", file.Path, "model", model)
//
// Output goes to stderr by default so that stdout stays free for command
// results and GitHub Actions workflow commands.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FormatConsole renders human readable, colorized lines
	FormatConsole = "console"
	// FormatText renders human readable lines without color
	FormatText = "text"
	// FormatJSON renders one JSON object per line
	FormatJSON = "json"
)

// Options configures the global logger.
type Options struct {
	// Level is one of debug, info, warn, error (default info)
	Level string
	// Format is one of console, text, json (default console)
	Format string
	// Output defaults to os.Stderr
	Output io.Writer
}

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, FormatConsole, zerolog.InfoLevel)
)

// Init replaces the global logger according to opts.
func Init(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "":
		format = FormatConsole
	case FormatConsole, FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (expected console, text or json)", opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	mu.Lock()
	logger = newLogger(out, format, level)
	mu.Unlock()
	return nil
}

// ParseLevel converts a level name into a zerolog level.
// An empty name means info.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", name)
	}
}

func newLogger(out io.Writer, format string, level zerolog.Level) zerolog.Logger {
	var w io.Writer
	switch format {
	case FormatJSON:
		w = out
	case FormatText:
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	default:
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// Debug logs at debug level.
func Debug(msg string, kv ...any) {
	emit(current().Debug(), msg, kv)
}

// Info logs at info level.
func Info(msg string, kv ...any) {
	emit(current().Info(), msg, kv)
}

// Warn logs at warn level.
func Warn(msg string, kv ...any) {
	emit(current().Warn(), msg, kv)
}

// Error logs at error level.
func Error(msg string, kv ...any) {
	emit(current().Error(), msg, kv)
}

func emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	if len(kv) > 0 {
		e = e.Fields(kv)
	}
	e.Msg(msg)
}
