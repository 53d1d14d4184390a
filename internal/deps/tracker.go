package deps

import (
	"sitebuild/internal/core"
	"sitebuild/internal/events"
)

// Tracker records dependencies of the object currently being compiled.
// Objects are entered when their compilation starts and exited when it
// stops; every access to another object in between bounces off the top of
// the stack into the store.
type Tracker struct {
	store *Store
	sink  events.Sink
	stack []core.Object
}

// NewTracker returns a tracker recording into store. sink may be nil.
func NewTracker(store *Store, sink events.Sink) *Tracker {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Tracker{store: store, sink: sink}
}

// Enter pushes obj onto the stack.
func (t *Tracker) Enter(obj core.Object) { t.stack = append(t.stack, obj) }

// Exit pops the top of the stack.
func (t *Tracker) Exit() {
	if len(t.stack) > 0 {
		t.stack = t.stack[:len(t.stack)-1]
	}
}

// Top returns the object currently being compiled, or nil.
func (t *Tracker) Top() core.Object {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// Bounce records that the object on top of the stack depends on obj.
// Outside of compilation it does nothing.
func (t *Tracker) Bounce(obj core.Object, props Props) {
	top := t.Top()
	if top == nil || obj == nil {
		return
	}
	if top.Reference() == obj.Reference() {
		return
	}
	t.store.RecordDependency(top, obj, props)
	events.SafeEmit(t.sink, events.Event{
		Kind:    events.DependencyCreated,
		Rep:     top.Reference().String(),
		Target:  obj.Reference().String(),
		Subject: props.String(),
	})
}
