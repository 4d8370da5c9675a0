//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package scheduler

import (
	"errors"
	"fmt"

	"github.com/git5001/connectoragents/port"
)

var (
	// ErrDuplicateUUID is returned by AddAgent when an agent with the
	// same UUID is already registered.
	ErrDuplicateUUID = errors.New("scheduler: duplicate agent uuid")

	// ErrCheckpointNotFound is returned by Resume when the requested
	// step has no checkpoint in the given store.
	ErrCheckpointNotFound = errors.New("scheduler: checkpoint not found")

	// ErrAgentMismatch is returned by Resume when the registered agent
	// list does not match the checkpoint's recorded order and UUIDs.
	// This is always a fatal condition: resuming onto the wrong
	// pipeline topology would silently corrupt state.
	ErrAgentMismatch = errors.New("scheduler: agent list does not match checkpoint")
)

// SchedulerError wraps an error returned by an agent's Step call with
// the scheduling context needed to diagnose and retry it: which agent
// failed and at which global step.
type SchedulerError struct {
	AgentUUID   string
	StepCounter int
	Cause       error
	// Offending is the message that triggered the failure, when the
	// cause is an agent.RunError (it carries one); zero value
	// otherwise.
	Offending port.Entry
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler: agent %s failed at step %d: %v", e.AgentUUID, e.StepCounter, e.Cause)
}

// Unwrap exposes the underlying agent error for errors.Is/As.
func (e *SchedulerError) Unwrap() error { return e.Cause }
