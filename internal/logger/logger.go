package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.elastic.co/ecszerolog"
)

const (
	FormatConsole = "console"
	FormatECS     = "ecs"
)

// Options controls where log lines go.
type Options struct {
	Level  string // console level; the file always receives debug and up
	File   string // append-only log file, empty disables it
	Format string // FormatConsole or FormatECS
	Out    io.Writer
}

// levelWriter forwards only events at or above min.
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw levelWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw levelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

// New builds the process logger. The returned closer releases the log file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	consoleLevel, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var console io.Writer = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	if opts.Format == FormatECS {
		console = out
	}
	writers := []io.Writer{levelWriter{w: console, min: consoleLevel}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, levelWriter{w: f, min: zerolog.DebugLevel})
		closer = f
	}

	multi := zerolog.MultiLevelWriter(writers...)

	var base zerolog.Logger
	if opts.Format == FormatECS {
		base = ecszerolog.New(multi)
	} else {
		base = zerolog.New(multi).With().Timestamp().Logger()
	}

	return base.Level(zerolog.DebugLevel).With().Str("app", "discharge-assistant").Logger(), closer, nil
}

// Component derives a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// ParseLevel accepts the usual names in any case. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
