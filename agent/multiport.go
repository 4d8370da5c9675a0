//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"github.com/git5001/connectoragents/message"
	"github.com/git5001/connectoragents/port"
)

// MultiPortBase extends Base with several named input ports in
// addition to the default one. StepPorts drains them in the declared
// names order, stopping at the first non-empty port, matching
// spec.md §4.3: "implement step() by selecting which port to drain;
// the scheduler still observes at most one message consumed per
// step()".
type MultiPortBase struct {
	*Base
	portNames []string
}

// NewMultiPortBase constructs a MultiPortBase whose default input
// port (DefaultInputPort) is left unused; callers add their own named
// ports via AddNamedInputPort.
func NewMultiPortBase(uuid string, outputSchema message.Schema) *MultiPortBase {
	b := NewBase(uuid, message.Nop, outputSchema)
	return &MultiPortBase{Base: b}
}

// AddNamedInputPort registers name as a drainable port, in addition to
// whatever Base.AddInputPort already does.
func (m *MultiPortBase) AddNamedInputPort(name string, schema message.Schema) *port.Port {
	p := m.Base.AddInputPort(name, schema)
	m.portNames = append(m.portNames, name)
	return p
}

// StepPorts pops at most one message total across all registered
// named ports (in declaration order) and dispatches it through
// Base.dispatch, or returns Idle if every port is empty.
func (m *MultiPortBase) StepPorts() (Activity, error) {
	for _, name := range m.portNames {
		p := m.InputPort(name)
		if p == nil {
			continue
		}
		entry, ok := p.Pop()
		if !ok {
			continue
		}
		return m.dispatch(entry)
	}
	return Idle, nil
}

// PortNames returns the declared drain order.
func (m *MultiPortBase) PortNames() []string {
	out := make([]string, len(m.portNames))
	copy(out, m.portNames)
	return out
}
