package loctree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidExtent is returned when the root half-extent is not a
	// positive finite number.
	ErrInvalidExtent = errors.New("root extent must be positive and finite")

	// ErrNilSemantics is returned when the semantics value is nil.
	ErrNilSemantics = errors.New("semantics must not be nil")
)

// ErrCorruptTree indicates that a structural audit found internal state
// violating a tree invariant. It is only produced by Audit; regular
// operations assume an intact tree.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCorruptTree struct {
	Node   uint32
	Reason string
	cause  error
}

func (e *ErrCorruptTree) Error() string {
	return fmt.Sprintf("corrupt tree at node %d: %s", e.Node, e.Reason)
}

func (e *ErrCorruptTree) Unwrap() error { return e.cause }
