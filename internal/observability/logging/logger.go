package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the process-wide structured logger. The API and the
// promotion worker both log JSON to stdout with a service attribute so one
// log pipeline can serve the whole document flow.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With(slog.String("service", service))
}

// parseLevel is forgiving: a typo in LOG_LEVEL must not keep a binary from
// starting, so anything unrecognized runs at info.
func parseLevel(raw string) slog.Level {
	normalized := strings.TrimSpace(raw)
	if strings.EqualFold(normalized, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(normalized)); err != nil {
		return slog.LevelInfo
	}
	return level
}
