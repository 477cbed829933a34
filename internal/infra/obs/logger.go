package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger configures slog logger with colorful dev output and JSON for production-like envs.
func NewLogger(env string) *slog.Logger {
	return NewLoggerTo(os.Stdout, env, os.Getenv("LOG_LEVEL"))
}

// NewLoggerTo writes to w. An empty or unknown level means info.
func NewLoggerTo(w io.Writer, env, level string) *slog.Logger {
	lvl := parseLevel(level)
	switch strings.ToLower(env) {
	case "dev", "local", "development":
		handler := tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.RFC3339,
			AddSource:  true,
		})
		return slog.New(handler)
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
	})
	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
