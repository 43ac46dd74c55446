package log

import (
	"log/slog"
	"os"
)

// NewCLIHandler returns a slog.Handler tuned for interactive CLI use:
// plain text to stderr, source locations only at DEBUG level (where
// file:line is actually useful for troubleshooting), and no timestamp
// noise above DEBUG.
func NewCLIHandler(level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && level > slog.LevelDebug {
				return slog.Attr{}
			}
			return a
		},
	}
	return slog.NewTextHandler(os.Stderr, opts)
}
