package events

import "sync"

// Sink receives events.
//
// Emit must be inert: it must not block compilation for long and must not
// panic. Callers go through SafeEmit regardless.
type Sink interface {
	Emit(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// SafeEmit emits an event and swallows any panic raised by the sink.
func SafeEmit(s Sink, event Event) {
	if s == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.Emit(event)
}

// Multi fans every event out to each of its sinks in order.
type Multi []Sink

func (m Multi) Emit(event Event) {
	for _, s := range m {
		SafeEmit(s, event)
	}
}

// Recorder is a concurrency-safe in-memory collector.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(event Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Snapshot returns a point-in-time copy of all recorded events.
func (r *Recorder) Snapshot() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns the recorded events of the given kind, in order.
func (r *Recorder) OfKind(kind Kind) []Event {
	var out []Event
	for _, e := range r.Snapshot() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Reps returns the Rep field of every recorded event of the given kind.
func (r *Recorder) Reps(kind Kind) []string {
	var out []string
	for _, e := range r.OfKind(kind) {
		out = append(out, e.Rep)
	}
	return out
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
