// Package logging builds the process logger: JSON lines to stdout and to a
// size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New. An empty File logs to Stdout only.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Stdout     io.Writer
}

// New returns the logger and a closer for the rotating file.
func New(o Options) (*slog.Logger, io.Closer) {
	out := o.Stdout
	if out == nil {
		out = os.Stdout
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 5
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 5
	}

	var closer io.Closer = nopCloser{}
	w := out
	if o.File != "" {
		if dir := filepath.Dir(o.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				l := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(o.Level)}))
				l.Warn("log directory unavailable; file logging disabled", "dir", dir, "error", err)
				return l, closer
			}
		}
		fl := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB, // megabytes
			MaxBackups: o.MaxBackups,
		}
		w = io.MultiWriter(out, fl)
		closer = fl
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(o.Level)})
	return slog.New(h), closer
}

// ParseLevel maps debug|info|warn|error; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component tags l with the component name.
func Component(l *slog.Logger, name string) *slog.Logger {
	return l.With("component", name)
}

// Discard is a logger that drops everything. Tests and optional
// collaborators use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
