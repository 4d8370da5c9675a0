//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package aggregate

import (
	"encoding/json"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/message"
	"github.com/git5001/connectoragents/parentid"
	"github.com/git5001/connectoragents/port"
)

// Joined is the payload emitted by MultiPortJoin: one value per
// declared port, keyed by port name.
type Joined struct {
	Values map[string]any
}

// MultiPortJoin buffers one FIFO per declared input port and, once
// every port's oldest pending entry shares a common non-empty parent
// prefix, emits a Joined message carrying one value per port and
// drops those fronts. Ports whose fronts do not yet share a prefix
// simply wait; matching always considers the oldest arrival on each
// port first (spec.md: "tie-break oldest-arrival-first").
type MultiPortJoin struct {
	*agent.Base
	portNames []string
	pending   map[string][]port.Entry
}

// NewMultiPortJoin constructs a join over the named ports, each
// validated against portSchema, emitting Joined values validated
// against outputSchema.
func NewMultiPortJoin(uuid string, portNames []string, portSchema, outputSchema message.Schema) *MultiPortJoin {
	b := agent.NewBase(uuid, message.Nop, outputSchema)
	for _, name := range portNames {
		b.AddInputPort(name, portSchema)
	}
	return &MultiPortJoin{
		Base:      b,
		portNames: append([]string(nil), portNames...),
		pending:   map[string][]port.Entry{},
	}
}

// Step implements agent.Agent: it pops at most one message, from the
// first declared port that has one, then attempts to complete as many
// joins as the updated buffers allow.
func (j *MultiPortJoin) Step() (agent.Activity, error) {
	consumed := false
	for _, name := range j.portNames {
		p := j.InputPort(name)
		entry, ok := p.Pop()
		if !ok {
			continue
		}
		j.pending[name] = append(j.pending[name], entry)
		consumed = true
		break
	}
	if !consumed {
		return agent.Idle, nil
	}
	if err := j.drainMatches(); err != nil {
		return agent.Idle, err
	}
	return agent.Productive, nil
}

// drainMatches emits every join that can currently be formed from the
// port fronts, looping since satisfying one match may expose another.
func (j *MultiPortJoin) drainMatches() error {
	for {
		for _, name := range j.portNames {
			if len(j.pending[name]) == 0 {
				return nil
			}
		}
		seqs := make([]parentid.Parents, len(j.portNames))
		for i, name := range j.portNames {
			seqs[i] = j.pending[name][0].Parents
		}
		lcp := parentid.LongestCommonPrefix(seqs...)
		if len(lcp) == 0 {
			return nil
		}
		values := make(map[string]any, len(j.portNames))
		for _, name := range j.portNames {
			values[name] = j.pending[name][0].Message.Payload
			j.pending[name] = j.pending[name][1:]
		}
		if err := j.OutputPort().Send(message.Message{Payload: Joined{Values: values}}, lcp); err != nil {
			return err
		}
	}
}

// pendingState is the JSON-friendly shape of in-flight join state,
// since map[string][]port.Entry already round-trips cleanly but the
// field needs a name once it leaves Base.State's bare "any".
type pendingState struct {
	Pending map[string][]port.Entry `json:"pending"`
}

// SaveState implements agent.Agent.
func (j *MultiPortJoin) SaveState() agent.Snapshot {
	snap := j.Base.SaveState()
	snap.State = pendingState{Pending: j.pending}
	return snap
}

// LoadState implements agent.Agent; see ListCollector.LoadState for
// why the round trip through JSON is necessary here.
func (j *MultiPortJoin) LoadState(s agent.Snapshot) {
	j.Base.LoadState(s)
	j.pending = map[string][]port.Entry{}
	if s.State == nil {
		return
	}
	data, err := json.Marshal(s.State)
	if err != nil {
		return
	}
	var ps pendingState
	if err := json.Unmarshal(data, &ps); err != nil {
		return
	}
	if ps.Pending != nil {
		j.pending = ps.Pending
	}
}
