package tree

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/canopy/pkg/model"
)

var (
	// ErrDuplicateIdentifier rejects a record set in which two records share an ID.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrEmptyIdentifier rejects a record whose ID is the root sentinel.
	ErrEmptyIdentifier = model.ErrEmptyID
)

// DuplicateIDError reports the two input positions that share an ID.
type DuplicateIDError struct {
	ID     model.ID
	First  int // Index of the first record with ID
	Second int // Index of the offending record
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate identifier %q at records %d and %d", e.ID, e.First, e.Second)
}

func (e *DuplicateIDError) Unwrap() error {
	return ErrDuplicateIdentifier
}

// WarningKind classifies records dropped during a build.
type WarningKind string

const (
	// WarnDanglingParent marks a record whose parent ID matches no record.
	WarnDanglingParent WarningKind = "dangling_parent"
	// WarnUnreachable marks a record whose parent exists but never hangs
	// from a root (parent cycles, or below a dangling record).
	WarnUnreachable WarningKind = "unreachable"
)

// Warning describes a record that was left out of the tree.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	ID     model.ID    `json:"id"`
	Parent model.ID    `json:"parent"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnDanglingParent:
		return fmt.Sprintf("record %q references missing parent %q", w.ID, w.Parent)
	case WarnUnreachable:
		return fmt.Sprintf("record %q is not reachable from any root (parent %q)", w.ID, w.Parent)
	default:
		return fmt.Sprintf("record %q: %s", w.ID, w.Kind)
	}
}
