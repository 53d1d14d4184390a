package compile

import (
	"context"
	"errors"
	"fmt"

	"sitebuild/internal/core"
)

var errFiberAborted = errors.New("compilation aborted")

type fiberKey struct{}

// fiber runs one work unit on its own goroutine. Control is handed back and
// forth over unbuffered channels, so the scheduler and at most one fiber are
// never running at the same time.
type fiber struct {
	rep    *core.ItemRep
	resume chan struct{}
	yield  chan fiberSignal
	abort  chan struct{}
}

type fiberSignal struct {
	unmet *UnmetDependencyError
	err   error
}

// startFiber runs fn in a new fiber and blocks until it finishes or
// suspends.
func startFiber(ctx context.Context, rep *core.ItemRep, fn func(ctx context.Context) error) (*fiber, fiberSignal) {
	f := &fiber{
		rep:    rep,
		resume: make(chan struct{}),
		yield:  make(chan fiberSignal),
		abort:  make(chan struct{}),
	}
	go func() {
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic while compiling %s: %v", rep, p)
			}
			f.yield <- fiberSignal{err: err}
		}()
		err = fn(context.WithValue(ctx, fiberKey{}, f))
	}()
	return f, <-f.yield
}

// Resume continues a suspended fiber and blocks until it finishes or
// suspends again.
func (f *fiber) Resume() fiberSignal {
	f.resume <- struct{}{}
	return <-f.yield
}

// Abort unwinds a suspended fiber: its pending suspend returns an error.
func (f *fiber) Abort() {
	close(f.abort)
	<-f.yield
}

// suspend hands control back to the scheduler until rep has been compiled.
// Outside of a fiber it reports the unmet dependency as an error.
func suspend(ctx context.Context, rep *core.ItemRep, snapshot string) error {
	unmet := &UnmetDependencyError{Rep: rep, Snapshot: snapshot}
	f, ok := ctx.Value(fiberKey{}).(*fiber)
	if !ok {
		return unmet
	}
	select {
	case <-f.abort:
		return errFiberAborted
	default:
	}
	f.yield <- fiberSignal{unmet: unmet}
	select {
	case <-f.resume:
		return nil
	case <-f.abort:
		return errFiberAborted
	}
}
