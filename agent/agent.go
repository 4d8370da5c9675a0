//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the stateful pipeline node contract: one
// default input port (or several named ones), exactly one output
// port, a single-step execution contract, and state/port
// save-load for checkpointing.
package agent

import (
	"github.com/git5001/connectoragents/message"
	"github.com/git5001/connectoragents/parentid"
	"github.com/git5001/connectoragents/port"
)

// Activity reports what happened during one Step call.
type Activity int

const (
	// Idle means the agent had no input to consume and produced
	// nothing.
	Idle Activity = iota
	// Productive means the agent consumed one input message (or, for
	// a pure source, produced output without input) and possibly
	// emitted output.
	Productive
)

// String renders an Activity for logs and error messages.
func (a Activity) String() string {
	if a == Productive {
		return "productive"
	}
	return "idle"
}

// DefaultInputPort is the name of the input port Feed populates and
// that single-port agents read from in their default Step
// implementation.
const DefaultInputPort = "in"

// Agent is the contract the scheduler drives. Implementations
// typically embed Base and supply Run or Process.
type Agent interface {
	// UUID returns the agent's stable identity, unique within its
	// scheduler.
	UUID() string

	// Feed enqueues a message with empty parents directly onto the
	// default input port, bypassing the scheduler. Used only to seed
	// a pipeline or inject test data.
	Feed(payload any)

	// Step pops at most one message from an input port and processes
	// it, or returns Idle if none was available. Step must not invoke
	// any other agent's Step; all routing happens through Output's
	// connections, which only enqueue.
	Step() (Activity, error)

	// InputPort returns a named input port, or nil if no such port
	// exists. The default (single) input port is named
	// DefaultInputPort.
	InputPort(name string) *port.Port

	// OutputPort returns the agent's one output port.
	OutputPort() *port.Port

	// SaveState returns a serializable snapshot of the agent's opaque
	// state and every owned port's queue/unconnected-outputs.
	SaveState() Snapshot

	// LoadState restores state and ports from a previously captured
	// Snapshot. The caller is responsible for matching agents by
	// UUID before calling LoadState.
	LoadState(Snapshot)
}

// RunFunc processes one message and returns either a single output
// payload, a slice of output payloads (each sent with L=1, i.e. they
// are NOT treated as reassembly siblings of one another), or nil for
// no output.
type RunFunc func(payload any, parents parentid.Parents) (any, error)

// ProcessFunc is the general form of Step's dispatch target: it
// receives the full incoming parents sequence and returns the same
// result shapes as RunFunc. Base.Process defaults to calling Run and
// discarding parents, matching spec.md §4.3's default delegation.
type ProcessFunc func(payload any, parents parentid.Parents) (any, error)

// Snapshot is the serializable form of Base's state and owned ports,
// written to <root>/step_<N>/agents/<uuid>/ by the checkpoint store.
type Snapshot struct {
	UUID  string                   `json:"uuid"`
	State any                      `json:"state"`
	Ports map[string]port.Snapshot `json:"ports"`
}

// Base implements the common Agent plumbing: a single default input
// port, one output port, opaque State, and the process->run
// delegation from spec.md §4.3. Embed it and set Run (or override
// Process for multi-port agents).
type Base struct {
	uuid  string
	State any

	in  map[string]*port.Port
	out *port.Port

	// Run is the agent's single-message handler; Base.Process calls it
	// and ignores parents by default, exactly matching spec.md's
	// "default implementation delegates to run(message) and ignores
	// parents".
	Run RunFunc

	// Process overrides the default Run delegation when an agent
	// needs the incoming parents (e.g. an aggregator). If nil,
	// Base.Step falls back to Run.
	Process ProcessFunc
}

// NewBase constructs a Base with a single default input port and one
// output port, both validated with the given schemas.
func NewBase(uuid string, inputSchema, outputSchema message.Schema) *Base {
	b := &Base{
		uuid: uuid,
		in:   map[string]*port.Port{},
		out:  port.New(port.Output, "out", outputSchema),
	}
	b.AddInputPort(DefaultInputPort, inputSchema)
	b.out.AgentUUID = uuid
	return b
}

// AddInputPort registers an additional named input port, for
// multi-port agents (aggregators). Returns the created port.
func (b *Base) AddInputPort(name string, schema message.Schema) *port.Port {
	p := port.New(port.Input, name, schema)
	p.AgentUUID = b.uuid
	b.in[name] = p
	return p
}

// UUID implements Agent.
func (b *Base) UUID() string { return b.uuid }

// InputPort implements Agent.
func (b *Base) InputPort(name string) *port.Port { return b.in[name] }

// OutputPort implements Agent.
func (b *Base) OutputPort() *port.Port { return b.out }

// Feed implements Agent: enqueue directly on the default input port
// with empty parents, bypassing validation-by-scheduler semantics
// (Receive still validates against the port schema).
func (b *Base) Feed(payload any) {
	in := b.in[DefaultInputPort]
	if in == nil {
		return
	}
	_ = in.Receive(message.Message{Payload: payload}, nil)
}

// Step implements Agent's default single-input-port behavior: pop at
// most one message from the default input port, dispatch to Process
// (or Run if Process is nil), and route the result(s) through the
// output port with the incoming parents unchanged (Send mints the
// fresh per-connection tag).
func (b *Base) Step() (Activity, error) {
	in := b.in[DefaultInputPort]
	entry, ok := in.Pop()
	if !ok {
		return Idle, nil
	}
	return b.dispatch(entry)
}

// dispatch runs Process/Run on entry and routes the result. It is
// exported to the package so multi-port agents embedding Base can
// reuse it once they've picked which port to pop from.
func (b *Base) dispatch(entry port.Entry) (Activity, error) {
	process := b.Process
	if process == nil {
		process = func(payload any, parents parentid.Parents) (any, error) {
			return b.Run(payload, nil)
		}
	}
	result, err := process(entry.Message.Payload, entry.Parents)
	if err != nil {
		return Idle, &RunError{AgentUUID: b.uuid, Cause: err, Offending: entry}
	}
	if err := b.emit(result, entry.Parents); err != nil {
		return Idle, err
	}
	return Productive, nil
}

// emit routes a Run/Process result through the output port. A nil
// result emits nothing. A single non-slice value is sent once (L=1).
// A []any or []message.Message is sent once per element, each as an
// independent L=1 send (per spec.md §4.3: "Returning a list means:
// one send call per list element, each with index 0 of total 1").
// Agents that want reassembly-aware splits call OutputPort().SendSplit
// directly instead of returning a slice from Run.
func (b *Base) emit(result any, parents parentid.Parents) error {
	if result == nil {
		return nil
	}
	switch v := result.(type) {
	case []any:
		for _, item := range v {
			if err := b.out.Send(message.Message{Payload: item}, parents); err != nil {
				return err
			}
		}
		return nil
	case []message.Message:
		for _, item := range v {
			if err := b.out.Send(item, parents); err != nil {
				return err
			}
		}
		return nil
	default:
		return b.out.Send(message.Message{Payload: v}, parents)
	}
}

// SaveState implements Agent.
func (b *Base) SaveState() Snapshot {
	ports := make(map[string]port.Snapshot, len(b.in)+1)
	for name, p := range b.in {
		ports[name] = p.Snapshot()
	}
	ports[b.out.Name()] = b.out.Snapshot()
	return Snapshot{UUID: b.uuid, State: b.State, Ports: ports}
}

// LoadState implements Agent.
func (b *Base) LoadState(s Snapshot) {
	b.State = s.State
	for name, snap := range s.Ports {
		if p, ok := b.in[name]; ok {
			p.Restore(snap)
			continue
		}
		if name == b.out.Name() {
			b.out.Restore(snap)
		}
	}
}

// ConnectTo wires source's output port to target's default input
// port, applying opts. It is shorthand for
// source.OutputPort().Connect(target.InputPort(DefaultInputPort), opts...).
func ConnectTo(source, target Agent, opts ...port.ConnectOption) error {
	return source.OutputPort().Connect(target.InputPort(DefaultInputPort), opts...)
}
