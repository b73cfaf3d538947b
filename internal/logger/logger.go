// Package logger provides structured logging setup using slog.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/ash399/litesoph/internal/store"
)

// New creates a new structured JSON logger.
func New() *slog.Logger {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w. Used by tests and by
// callers that route logs into the UI log pane.
func NewWithWriter(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// ForTask returns a logger with the task's identifying fields attached.
func ForTask(base *slog.Logger, rec *store.TaskRecord) *slog.Logger {
	return base.With(
		"task", rec.Name,
		"engine", string(rec.Engine),
		"type", string(rec.Type),
		"task_id", rec.ID.String(),
	)
}
