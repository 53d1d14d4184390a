package compiler

import (
	"context"
	"log/slog"
	"time"

	"sitebuild/internal/ctxlog"
	"sitebuild/internal/events"
)

const slogDebug = slog.LevelDebug

type stage struct {
	name string
	run  func(ctx context.Context) error
}

func (c *Compiler) runStages(ctx context.Context, stages []stage) error {
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.runStage(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// runStage runs s, reporting its start, end or abort with timings.
func (c *Compiler) runStage(ctx context.Context, s stage) error {
	log := ctxlog.FromContext(ctx).With("stage", s.name)
	events.SafeEmit(c.sink, events.Event{Kind: events.StageStarted, Subject: s.name})
	start := time.Now()

	err := s.run(ctx)
	d := time.Since(start)
	if err != nil {
		events.SafeEmit(c.sink, events.Event{Kind: events.StageAborted, Subject: s.name, Duration: d, Err: err})
		log.Debug("stage aborted", "duration", d, "error", err)
		return err
	}
	events.SafeEmit(c.sink, events.Event{Kind: events.StageEnded, Subject: s.name, Duration: d})
	log.Debug("stage ended", "duration", d)
	return nil
}
