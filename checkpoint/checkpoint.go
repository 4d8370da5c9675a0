//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package checkpoint defines the persisted-state contract (SPEC_FULL.md
// §6): a scheduler snapshot plus one agent snapshot per registered
// agent, written atomically per step. diskstore and memstore are the
// two Store implementations, mirroring the teacher's own
// inmemory/sqlite CheckpointSaver split.
package checkpoint

import "github.com/git5001/connectoragents/agent"

// SchedulerSnapshot is the serializable form of scheduler.Scheduler's
// cursor state, written as scheduler.json.
type SchedulerSnapshot struct {
	AgentIdx       int      `json:"agent_idx"`
	StepCounter    int      `json:"step_counter"`
	AllDoneCounter int      `json:"all_done_counter"`
	Order          []string `json:"order"`
}

// Snapshot bundles everything captured at one step.
type Snapshot struct {
	Scheduler SchedulerSnapshot
	Agents    []agent.Snapshot
}

// ErrorReport is what gets persisted when a step fails and an error
// store is configured (diskstore writes it as errors/error_<N>.json).
type ErrorReport struct {
	AgentUUID   string `json:"agent_uuid"`
	StepCounter int    `json:"step_counter"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	// Offending carries the message that triggered the failure, when
	// one is available (e.g. not for a checkpoint-load failure).
	Offending *OffendingMessage `json:"offending,omitempty"`
}

// OffendingMessage is the (parents, payload) pair that caused an
// AgentError, recorded verbatim in the error snapshot.
type OffendingMessage struct {
	Parents []string `json:"parents"`
	Payload any      `json:"payload"`
}

// Store persists and restores scheduler+agent snapshots by step
// number, and persists error reports. A store directory is considered
// to hold a valid checkpoint for a step iff its scheduler snapshot is
// present (SPEC_FULL.md §6): a store must not return LoadStep success
// for a step whose scheduler.json write never completed.
type Store interface {
	// SaveStep atomically persists snap under step. Implementations
	// must make each constituent write atomic (temp-then-rename for
	// file-backed stores); a non-nil error means the caller should
	// treat the checkpoint as not taken (CheckpointError, non-fatal at
	// save time per spec.md §7).
	SaveStep(step int, snap Snapshot) error

	// LoadStep restores the snapshot written at step. ok is false if
	// no valid checkpoint exists for that step.
	LoadStep(step int) (snap Snapshot, ok bool, err error)

	// LatestStep returns the highest step number with a valid
	// checkpoint, and ok=false if none exists yet.
	LatestStep() (step int, ok bool, err error)

	// SaveError persists an error report. Implementations should treat
	// write failure here the same as SaveStep: logged, non-fatal.
	SaveError(report ErrorReport) error
}
