package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Development gets debug
// level so token verification failures are visible while iterating.
func New(development bool) *slog.Logger {
	level := slog.LevelInfo
	if development {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
