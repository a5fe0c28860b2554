package app

import (
	"io"
	"log/slog"
)

// levels maps the values accepted by --log-level. Flag parsing rejects
// anything else; the info fallback covers callers that construct a Config
// directly.
var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds an isolated slog.Logger writing to outW. Keeping it off
// the global logger lets log lines and measurement output go to separate
// streams.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level, ok := levels[levelStr]
	if !ok {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
