// Package events defines the lifecycle notifications emitted by the build
// engine and the sinks that consume them.
//
// Emitting is always optional: every producer holds a Sink (NopSink by
// default) and goes through SafeEmit, so a missing or misbehaving consumer
// never affects compilation.
package events

import "time"

// Kind is the stable name of an event.
type Kind string

const (
	CompilationStarted   Kind = "compilation_started"
	CompilationEnded     Kind = "compilation_ended"
	CompilationSuspended Kind = "compilation_suspended"
	FilteringStarted     Kind = "filtering_started"
	FilteringEnded       Kind = "filtering_ended"
	SnapshotCreated      Kind = "snapshot_created"
	CachedContentUsed    Kind = "cached_content_used"
	RepWriteStarted      Kind = "rep_write_started"
	RepWriteEnded        Kind = "rep_write_ended"
	DependencyCreated    Kind = "dependency_created"
	StoreLoaded          Kind = "store_loaded"
	StoreStored          Kind = "store_stored"
	StageStarted         Kind = "stage_started"
	StageEnded           Kind = "stage_ended"
	StageAborted         Kind = "stage_aborted"
)

// Event is a single notification. Which fields are set depends on Kind:
//
//	compilation_*, cached_content_used  Rep
//	compilation_suspended               Rep, Target (the rep waited on), Subject (snapshot)
//	filtering_*                         Rep, Subject (filter name)
//	snapshot_created                    Rep, Subject (snapshot name)
//	rep_write_*                         Rep, Subject (snapshot name), Target (raw path), Modified
//	dependency_created                  Rep (dependent object), Target (dependency)
//	store_*                             Subject (store name), Duration
//	stage_*                             Subject (stage name), Duration, Err (aborted only)
type Event struct {
	Kind     Kind
	Rep      string
	Subject  string
	Target   string
	Modified bool
	Duration time.Duration
	Err      error
}
