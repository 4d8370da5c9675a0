//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package scheduler implements the round-robin cooperative driver
// described in SPEC_FULL.md §4.4: a single cursor over an ordered
// agent list, quiescence detection, error capture with optional
// snapshotting, and periodic checkpointing.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/checkpoint"
	"github.com/git5001/connectoragents/log"
	"github.com/git5001/connectoragents/telemetry"
)

// Scheduler drives a fixed, ordered list of agents to quiescence. It
// is not safe for concurrent use from multiple goroutines (spec.md
// §5: "concurrent invocation of step_all from multiple threads is
// undefined").
type Scheduler struct {
	agents []agent.Agent
	byUUID map[string]int

	agentIdx       int
	stepCounter    int
	allDoneCounter int

	checkpointStore  checkpoint.Store
	checkpointEveryN int
	errorStore       checkpoint.Store
	tracer           oteltrace.Tracer
	logger           log.Logger
	errs             []*SchedulerError
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithCheckpoint enables periodic checkpointing: after every step
// where stepCounter is a multiple of everyNSteps, the full scheduler
// and agent state is written to store.
func WithCheckpoint(store checkpoint.Store, everyNSteps int) Option {
	return func(s *Scheduler) {
		s.checkpointStore = store
		if everyNSteps < 1 {
			everyNSteps = 1
		}
		s.checkpointEveryN = everyNSteps
	}
}

// WithErrorStore enables error snapshotting: when an agent's Step
// fails, the full scheduler+agent state plus an error report are
// written to store (spec.md §7: errors are never silently swallowed).
func WithErrorStore(store checkpoint.Store) Option {
	return func(s *Scheduler) { s.errorStore = store }
}

// WithTracer overrides the OpenTelemetry tracer used to span each
// Step call. Defaults to telemetry.Tracer.
func WithTracer(t oteltrace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// WithLogger overrides the logger used for checkpoint/error
// diagnostics. Defaults to log.Default.
func WithLogger(l log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New constructs an empty Scheduler. Agents are registered afterward
// via AddAgent; registration order is the round-robin order.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		byUUID:           map[string]int{},
		checkpointEveryN: 1,
		tracer:           telemetry.Tracer,
		logger:           log.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddAgent appends agent to the round-robin order. Returns
// ErrDuplicateUUID if an agent with the same UUID is already
// registered.
func (s *Scheduler) AddAgent(a agent.Agent) error {
	if _, exists := s.byUUID[a.UUID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUUID, a.UUID())
	}
	s.byUUID[a.UUID()] = len(s.agents)
	s.agents = append(s.agents, a)
	return nil
}

// Agents returns the registered agents in round-robin order.
func (s *Scheduler) Agents() []agent.Agent {
	out := make([]agent.Agent, len(s.agents))
	copy(out, s.agents)
	return out
}

// StepCounter returns the total number of Step calls performed.
func (s *Scheduler) StepCounter() int { return s.stepCounter }

// AllDoneCounter returns the number of consecutive idle steps seen so
// far (resets to 0 on any productive step).
func (s *Scheduler) AllDoneCounter() int { return s.allDoneCounter }

// Errors returns every SchedulerError captured so far, oldest first.
func (s *Scheduler) Errors() []*SchedulerError {
	out := make([]*SchedulerError, len(s.errs))
	copy(out, s.errs)
	return out
}

// Step runs exactly one agent's Step call, advances the cursor, and
// updates quiescence bookkeeping. If the current agent is empty
// (no agents registered) Step is a no-op returning Idle.
//
// If the underlying agent.Step call returns an error, Step wraps it
// into a SchedulerError, appends it to Errors(), optionally snapshots
// the full scheduler state to the configured error store, and returns
// the SchedulerError. The cursor still advances (spec.md §4.4: "so a
// deterministic retry can be scheduled by the caller; the offending
// input has already been consumed").
func (s *Scheduler) Step(ctx context.Context) (agent.Activity, error) {
	if len(s.agents) == 0 {
		return agent.Idle, nil
	}
	current := s.agents[s.agentIdx]

	ctx, span := s.tracer.Start(ctx, "scheduler.step",
		oteltrace.WithAttributes(
			attribute.String("agent.uuid", current.UUID()),
			attribute.Int("scheduler.step_counter", s.stepCounter),
		))
	defer span.End()

	activity, runErr := current.Step()
	s.stepCounter++
	s.agentIdx = (s.agentIdx + 1) % len(s.agents)

	var schedErr *SchedulerError
	if runErr != nil {
		schedErr = &SchedulerError{
			AgentUUID:   current.UUID(),
			StepCounter: s.stepCounter,
			Cause:       runErr,
		}
		var asRunErr *agent.RunError
		if errors.As(runErr, &asRunErr) {
			schedErr.Offending = asRunErr.Offending
		}
		s.errs = append(s.errs, schedErr)
		s.logger.Warnf("scheduler: agent %s step %d failed: %v", current.UUID(), s.stepCounter, runErr)
		telemetry.RecordStepError(ctx)
		if s.errorStore != nil {
			s.snapshotError(schedErr)
		}
		activity = agent.Idle
	} else {
		telemetry.RecordStep(ctx)
	}

	if activity == agent.Idle {
		s.allDoneCounter++
	} else {
		s.allDoneCounter = 0
	}

	if s.checkpointStore != nil && s.stepCounter%s.checkpointEveryN == 0 {
		if err := s.checkpointStore.SaveStep(s.stepCounter, s.Snapshot()); err != nil {
			s.logger.Warnf("scheduler: checkpoint at step %d failed (non-fatal): %v", s.stepCounter, err)
		}
	}

	if schedErr != nil {
		return agent.Idle, schedErr
	}
	return activity, nil
}

// StepAll repeatedly calls Step until a full round-robin pass produced
// no work (quiescence: allDoneCounter == len(agents)). Errors
// encountered along the way are collected (Errors()) but do not stop
// the loop by themselves; StepAll returns the last error encountered,
// if any, once quiescence is reached.
func (s *Scheduler) StepAll(ctx context.Context) error {
	if len(s.agents) == 0 {
		return nil
	}
	var lastErr error
	for s.allDoneCounter < len(s.agents) {
		_, err := s.Step(ctx)
		if err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Snapshot assembles the current scheduler+agent state for
// checkpointing or error reporting.
func (s *Scheduler) Snapshot() checkpoint.Snapshot {
	order := make([]string, len(s.agents))
	agentsSnap := make([]agent.Snapshot, len(s.agents))
	for i, a := range s.agents {
		order[i] = a.UUID()
		agentsSnap[i] = a.SaveState()
	}
	return checkpoint.Snapshot{
		Scheduler: checkpoint.SchedulerSnapshot{
			AgentIdx:       s.agentIdx,
			StepCounter:    s.stepCounter,
			AllDoneCounter: s.allDoneCounter,
			Order:          order,
		},
		Agents: agentsSnap,
	}
}

func (s *Scheduler) snapshotError(schedErr *SchedulerError) {
	if err := s.errorStore.SaveStep(s.stepCounter, s.Snapshot()); err != nil {
		s.logger.Warnf("scheduler: error snapshot at step %d failed: %v", s.stepCounter, err)
	}
	report := checkpoint.ErrorReport{
		AgentUUID:   schedErr.AgentUUID,
		StepCounter: schedErr.StepCounter,
		Kind:        fmt.Sprintf("%T", schedErr.Cause),
		Message:     schedErr.Cause.Error(),
	}
	if len(schedErr.Offending.Parents) > 0 || schedErr.Offending.Message.Payload != nil {
		parents := make([]string, len(schedErr.Offending.Parents))
		for i, p := range schedErr.Offending.Parents {
			parents[i] = string(p)
		}
		report.Offending = &checkpoint.OffendingMessage{
			Parents: parents,
			Payload: schedErr.Offending.Message.Payload,
		}
	}
	if err := s.errorStore.SaveError(report); err != nil {
		s.logger.Warnf("scheduler: error report at step %d failed: %v", s.stepCounter, err)
	}
}

// Resume restores scheduler cursor state and every agent's state from
// the checkpoint at step, loaded from store. The agents currently
// registered (via AddAgent, in order) must match the order recorded
// in the checkpoint exactly by UUID; any mismatch is a fatal
// ErrAgentMismatch (spec.md §4.4: "a mismatch is a fatal error").
func (s *Scheduler) Resume(store checkpoint.Store, step int) error {
	snap, ok, err := store.LoadStep(step)
	if err != nil {
		return fmt.Errorf("scheduler: load step %d: %w", step, err)
	}
	if !ok {
		return fmt.Errorf("%w: step %d", ErrCheckpointNotFound, step)
	}
	if len(snap.Scheduler.Order) != len(s.agents) {
		return fmt.Errorf("%w: checkpoint has %d agents, %d registered", ErrAgentMismatch, len(snap.Scheduler.Order), len(s.agents))
	}
	for i, uuid := range snap.Scheduler.Order {
		if s.agents[i].UUID() != uuid {
			return fmt.Errorf("%w: position %d is %s, checkpoint expects %s", ErrAgentMismatch, i, s.agents[i].UUID(), uuid)
		}
	}
	byUUID := make(map[string]agent.Snapshot, len(snap.Agents))
	for _, as := range snap.Agents {
		byUUID[as.UUID] = as
	}
	for _, a := range s.agents {
		if as, ok := byUUID[a.UUID()]; ok {
			a.LoadState(as)
		}
	}
	s.agentIdx = snap.Scheduler.AgentIdx
	s.stepCounter = snap.Scheduler.StepCounter
	s.allDoneCounter = snap.Scheduler.AllDoneCounter
	return nil
}
