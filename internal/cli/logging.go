package cli

import (
	"io"
	"log/slog"
)

// SetupLogging installs the default slog logger. Only warnings and errors
// are shown unless verbose is set, so log lines do not interleave with the
// terminal study view.
func SetupLogging(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
