package core

import (
	"errors"
	"fmt"
)

// ErrDataAccess marks failures of the cluster repository. They abort the run.
var ErrDataAccess = errors.New("data access failure")

// DataAccessError wraps a repository failure with the page that triggered it.
// Page is 0 for non-paged reads such as loading assays.
type DataAccessError struct {
	Op   string
	Page int
	Err  error
}

func (e *DataAccessError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s: %s (page %d): %v", ErrDataAccess, e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDataAccess, e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() []error {
	return []error{ErrDataAccess, e.Err}
}

// MalformedModificationError describes a modification descriptor that could not be anchored.
// It is never fatal; the descriptor is dropped from the anchored list.
type MalformedModificationError struct {
	Sequence   string
	Descriptor string
	Reason     string
}

func (e *MalformedModificationError) Error() string {
	return fmt.Sprintf("malformed modification '%s' on %s: %s", e.Descriptor, e.Sequence, e.Reason)
}
