package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidIdentifier         = errors.New("invalid identifier")
	ErrDuplicateIdentifier       = errors.New("duplicate identifier")
	ErrNonHierarchicalIdentifier = errors.New("cannot get parent or children of an item with a non-legacy identifier")
	ErrBinaryContent             = errors.New("cannot get textual content of binary content")
	ErrInternalInconsistency     = errors.New("internal inconsistency")
)

// Error wraps engine failures that only need a kind and a message.
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

// Inconsistency returns an internal-inconsistency error. These are
// programmer errors and are never retried.
func Inconsistency(format string, args ...any) error {
	return &Error{Kind: ErrInternalInconsistency, Msg: fmt.Sprintf(format, args...)}
}
