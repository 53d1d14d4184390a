package compile

import (
	"context"
	"errors"

	"sitebuild/internal/core"
	"sitebuild/internal/events"
)

// phase is one layer of the per-rep compilation. outdated tells whether the
// rep must be recompiled or may be restored from the cache.
type phase interface {
	Run(ctx context.Context, rep *core.ItemRep, outdated bool) error
}

type phaseStack struct {
	phase
	resume *resumePhase
}

func newPhaseStack(env *Env) *phaseStack {
	recalc := &recalculatePhase{env: env}
	cache := &cachePhase{env: env, next: recalc}
	resume := &resumePhase{next: cache, fibers: map[core.Reference]*fiber{}}
	write := &writePhase{env: env, next: resume, writer: &writer{sink: env.sink()}}
	markDone := &markDonePhase{env: env, next: write}
	notify := &notifyPhase{sink: env.sink(), next: markDone}
	return &phaseStack{phase: notify, resume: resume}
}

type notifyPhase struct {
	sink events.Sink
	next phase
}

func (p *notifyPhase) Run(ctx context.Context, rep *core.ItemRep, outdated bool) error {
	ref := rep.Reference().String()
	events.SafeEmit(p.sink, events.Event{Kind: events.CompilationStarted, Rep: ref})
	err := p.next.Run(ctx, rep, outdated)
	var unmet *UnmetDependencyError
	switch {
	case err == nil:
		events.SafeEmit(p.sink, events.Event{Kind: events.CompilationEnded, Rep: ref})
	case errors.As(err, &unmet):
		events.SafeEmit(p.sink, events.Event{
			Kind:    events.CompilationSuspended,
			Rep:     ref,
			Target:  unmet.Rep.Reference().String(),
			Subject: unmet.Snapshot,
		})
	}
	return err
}

type markDonePhase struct {
	env  *Env
	next phase
}

func (p *markDonePhase) Run(ctx context.Context, rep *core.ItemRep, outdated bool) error {
	if err := p.next.Run(ctx, rep, outdated); err != nil {
		return err
	}
	p.env.Outdated.Remove(rep)
	return nil
}

type writePhase struct {
	env    *Env
	next   phase
	writer *writer
}

func (p *writePhase) Run(ctx context.Context, rep *core.ItemRep, outdated bool) error {
	if err := p.next.Run(ctx, rep, outdated); err != nil {
		return err
	}
	return p.writer.WriteAll(rep, p.env.Contents)
}

// resumePhase runs the inner phases in a fiber per rep and keeps suspended
// fibers around until the selector comes back to their rep.
type resumePhase struct {
	next   phase
	fibers map[core.Reference]*fiber
}

func (p *resumePhase) Run(ctx context.Context, rep *core.ItemRep, outdated bool) error {
	ref := rep.Reference()
	var sig fiberSignal
	if f, ok := p.fibers[ref]; ok {
		sig = f.Resume()
	} else {
		var f *fiber
		f, sig = startFiber(ctx, rep, func(ctx context.Context) error {
			return p.next.Run(ctx, rep, outdated)
		})
		p.fibers[ref] = f
	}
	if sig.unmet != nil {
		return sig.unmet
	}
	delete(p.fibers, ref)
	return sig.err
}

func (p *resumePhase) abortAll() {
	for ref, f := range p.fibers {
		f.Abort()
		delete(p.fibers, ref)
	}
}

type cachePhase struct {
	env  *Env
	next phase
}

func (p *cachePhase) Run(ctx context.Context, rep *core.ItemRep, outdated bool) error {
	if !outdated && p.env.Cache.FullCacheAvailable(rep) {
		if contents, ok := p.env.Cache.Get(rep); ok {
			p.env.Contents.SetAll(rep, contents)
			rep.SetCompiled(true)
			events.SafeEmit(p.env.sink(), events.Event{Kind: events.CachedContentUsed, Rep: rep.Reference().String()})
			return nil
		}
	}
	if err := p.next.Run(ctx, rep, outdated); err != nil {
		return err
	}
	return p.env.Cache.Set(rep, p.env.Contents.GetAll(rep))
}

type recalculatePhase struct {
	env *Env
}

func (p *recalculatePhase) Run(ctx context.Context, rep *core.ItemRep, _ bool) error {
	seq, err := p.env.Sequences.SequenceFor(rep)
	if err != nil {
		return err
	}
	p.env.Tracker.Enter(rep.Item())
	defer p.env.Tracker.Exit()

	p.env.Contents.SetCurrent(rep, rep.Item().Content())
	exec := &executor{env: p.env, rep: rep}
	for _, a := range seq.Actions() {
		if err := exec.Run(ctx, a); err != nil {
			return err
		}
	}
	rep.SetCompiled(true)
	return nil
}
