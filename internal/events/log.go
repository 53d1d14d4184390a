package events

import (
	"context"
	"log/slog"
)

// LogSink mirrors events to a structured logger at debug level. Aborted
// stages are logged as errors.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(e Event) {
	if s.Logger == nil {
		return
	}
	level := slog.LevelDebug
	if e.Kind == StageAborted {
		level = slog.LevelError
	}
	if !s.Logger.Enabled(context.Background(), level) {
		return
	}

	attrs := make([]any, 0, 12)
	if e.Rep != "" {
		attrs = append(attrs, "rep", e.Rep)
	}
	if e.Subject != "" {
		attrs = append(attrs, "subject", e.Subject)
	}
	if e.Target != "" {
		attrs = append(attrs, "target", e.Target)
	}
	if e.Kind == RepWriteEnded {
		attrs = append(attrs, "modified", e.Modified)
	}
	if e.Duration > 0 {
		attrs = append(attrs, "duration", e.Duration)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err)
	}
	s.Logger.Log(context.Background(), level, string(e.Kind), attrs...)
}
