// Package obslog wraps log/slog with the engine's structured logging
// conventions, and adapts it to watermill's LoggerAdapter interface so
// the event bus and the engine share one logging sink — the same
// pattern the teacher wires through watermill.NewStdLogger in
// cmd/server/main.go, generalized to slog.
package obslog

import (
	"context"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
)

// New builds the runtime's default logger: JSON to stdout, level driven
// by LOG_LEVEL (debug/info/warn/error), matching the env-driven config
// style the teacher uses elsewhere (cmd/server/config).
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

// Node logs a node-lifecycle event with the attributes every engine
// call site needs: run id, node id, attempt.
func Node(ctx context.Context, logger *slog.Logger, event, runID, nodeID string, attempt int, extra ...any) {
	attrs := append([]any{"run_id", runID, "node_id", nodeID, "attempt", attempt}, extra...)
	logger.InfoContext(ctx, event, attrs...)
}

// WatermillAdapter satisfies watermill.LoggerAdapter over an slog.Logger,
// so publishers/subscribers log through the same sink as the engine.
type WatermillAdapter struct {
	logger *slog.Logger
}

// NewWatermillAdapter wraps logger for use as a watermill.LoggerAdapter.
func NewWatermillAdapter(logger *slog.Logger) *WatermillAdapter {
	return &WatermillAdapter{logger: logger}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, slogify(fields, "error", err)...)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, slogify(fields)...)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, slogify(fields)...)
}

func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, slogify(fields)...)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{logger: a.logger.With(slogify(fields)...)}
}

func slogify(fields watermill.LogFields, extra ...any) []any {
	attrs := make([]any, 0, len(fields)*2+len(extra))
	attrs = append(attrs, extra...)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	return attrs
}
