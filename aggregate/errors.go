//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package aggregate

import (
	"errors"
	"fmt"

	"github.com/git5001/connectoragents/port"
)

// ErrEmptyParents is the cause of a ParentIDError raised when an
// aggregator receives a message with no provenance tags at all: there
// is no sibling group to join it into.
var ErrEmptyParents = errors.New("aggregate: message arrived with empty parents")

// ErrTotalMismatch is the cause of a ParentIDError raised when two
// messages claim membership in the same bucket but disagree on the
// sibling group size (a fresh UUID collision, or a caller that minted
// the same U with a different L).
var ErrTotalMismatch = errors.New("aggregate: conflicting group size for the same bucket")

// ParentIDError reports a malformed or inconsistent provenance tag
// encountered while aggregating. Unlike AgentError this is always
// fatal to the offending message: there is no sensible way to place
// it into a sibling group.
type ParentIDError struct {
	AgentUUID string
	Cause     error
	Offending port.Entry
}

func (e *ParentIDError) Error() string {
	return fmt.Sprintf("aggregate: agent %s: %v", e.AgentUUID, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *ParentIDError) Unwrap() error { return e.Cause }
