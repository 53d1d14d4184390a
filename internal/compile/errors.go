package compile

import (
	"errors"
	"fmt"
	"strings"

	"sitebuild/internal/core"
)

var (
	ErrDependencyCycle          = errors.New("dependency cycle")
	ErrCannotUseBinaryFilter    = errors.New("cannot use textual filter on binary content")
	ErrCannotUseTextualFilter   = errors.New("cannot use binary filter on textual content")
	ErrCannotLayoutBinaryItem   = errors.New("cannot lay out binary content")
	ErrOutputNotWritten         = errors.New("binary filter did not write its output")
	ErrUnknownLayout            = errors.New("unknown layout")
	ErrUndefinedFilterForLayout = errors.New("no filter defined for layout")
	ErrInvalidRoute             = errors.New("invalid route")
)

// Error wraps deterministic compilation failures.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// UnmetDependencyError signals that a rep needs a snapshot of another rep
// that is not available yet. Inside a fiber it never surfaces: the fiber is
// suspended instead and the scheduler compiles Rep first.
type UnmetDependencyError struct {
	Rep      *core.ItemRep
	Snapshot string
}

func (e *UnmetDependencyError) Error() string {
	return fmt.Sprintf("%s is not compiled yet (snapshot %q)", e.Rep, e.Snapshot)
}

// DependencyCycleError lists reps that each wait for the next one's
// compiled content; the last entry is the first rep again.
type DependencyCycleError struct {
	Cycle []*core.ItemRep
}

func (e *DependencyCycleError) Error() string {
	var b strings.Builder
	b.WriteString("the site cannot be compiled because there is a dependency cycle:\n")
	for i, rep := range e.Cycle {
		if i == len(e.Cycle)-1 {
			fmt.Fprintf(&b, "\n  (%d) %s (back to the start)", i+1, rep)
			break
		}
		fmt.Fprintf(&b, "\n  (%d) %s uses compiled content of", i+1, rep)
	}
	return b.String()
}

func (e *DependencyCycleError) Unwrap() error { return ErrDependencyCycle }

// CompilationError attaches the rep being compiled to a failure.
type CompilationError struct {
	Rep *core.ItemRep
	Err error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compiling %s: %v", e.Rep, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }
