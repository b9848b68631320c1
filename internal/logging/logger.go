package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithSearch returns a logger with search context fields attached.
// Use this for all logging within a single search request.
func WithSearch(query string, includeDrafts bool) *slog.Logger {
	return slog.With(
		"query", query,
		"include_drafts", includeDrafts,
	)
}

// WithCache returns a logger scoped to a cache backend.
func WithCache(backend string) *slog.Logger {
	return slog.With("cache_backend", backend)
}
