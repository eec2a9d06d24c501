// Package logger builds the slog loggers used across ibtopo.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Format selects the log output encoding
type Format string

const (
	FormatAuto Format = "auto" // tint on a terminal, text otherwise
	FormatTint Format = "tint"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configure New
type Options struct {
	Level   string
	Format  Format
	NoColor bool
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "err", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to w
func New(w io.Writer, opts Options) *slog.Logger {
	return slog.New(NewHandler(w, opts))
}

// NewHandler returns the slog handler for opts
func NewHandler(w io.Writer, opts Options) slog.Handler {
	level := ParseLevel(opts.Level)

	format := opts.Format
	if format == "" || format == FormatAuto {
		format = FormatText
		if isTerminal(w) {
			format = FormatTint
		}
	}

	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case FormatTint:
		return tint.NewHandler(w, &tint.Options{
			AddSource: level <= slog.LevelDebug,
			Level:     level,
			NoColor:   opts.NoColor || !isTerminal(w),
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey {
					v := a.Value.Any().(slog.Level)
					a.Value = slog.StringValue(strings.ToLower(v.String()))
				}
				return a
			},
		})
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
