// Package obslog wires a single *slog.Logger through the pipeline,
// attaching the run-identifying fields (run id, provider, year, month) the
// way the teacher's handlers attach request-scoped fields such as
// "namespace" or "error" to every log line.
package obslog

import (
	"log/slog"
	"os"
)

// New builds the run-scoped logger. format is "json" or "text"; text is
// the default for local/interactive runs, json for production.
func New(format, providerUUID, year, month, runID string) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler).With(
		"run_id", runID,
		"provider_uuid", providerUUID,
		"year", year,
		"month", month,
	)
}
