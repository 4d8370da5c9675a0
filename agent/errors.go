//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"fmt"

	"github.com/git5001/connectoragents/port"
)

// RunError wraps a panic-free Run/Process failure so the scheduler can
// attach agent identity and the offending message before propagating
// it (spec: AgentError, wrapped into SchedulerError by the caller).
type RunError struct {
	AgentUUID string
	Cause     error
	Offending port.Entry
}

// Error implements error.
func (e *RunError) Error() string {
	return fmt.Sprintf("agent %s: run failed: %v", e.AgentUUID, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Cause
}
