//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package port implements the typed port/connection model: input
// ports are mutex-guarded FIFOs of (parents, message) pairs; output
// ports hold an ordered list of connections, each with an optional
// transformer and condition, and broadcast to them on Send.
package port

import (
	"sync"

	"github.com/git5001/connectoragents/message"
	"github.com/git5001/connectoragents/parentid"
)

// Kind distinguishes input from output ports.
type Kind int

const (
	// Input ports own a queue and accept Receive calls.
	Input Kind = iota
	// Output ports own connections and accept Send calls.
	Output
)

// Entry is one (parents, message) pair sitting in an input port's
// queue or in an output port's unconnected-outputs buffer.
type Entry struct {
	Parents parentid.Parents
	Message message.Message
}

// Transformer maps one outgoing message to zero or more sub-messages
// for a single connection. Returning nil/empty is valid and produces
// no downstream delivery on that connection; returning one element is
// equivalent to the default (L=1).
type Transformer func(message.Message) []message.Message

// Condition is evaluated after the transformer on each produced
// sub-message; returning false drops that sub-message for this
// connection only.
type Condition func(message.Message) bool

// Connection is a directed link from one output port to one input
// port, in declaration order relative to its siblings.
type Connection struct {
	Target      *Port
	Transformer Transformer
	Condition   Condition

	// SourceAgentUUID/TargetAgentUUID are weak back-references used
	// only for introspection and rendering (viz package); they do not
	// imply ownership.
	SourceAgentUUID string
	TargetAgentUUID string
}

// Port is one typed endpoint owned by exactly one agent: a FIFO queue
// for inputs, or an ordered connection list for outputs.
type Port struct {
	mu sync.Mutex

	kind   Kind
	name   string
	schema message.Schema

	// AgentUUID is a weak back-reference to the owning agent, used for
	// introspection/rendering.
	AgentUUID string

	queue              []Entry // input only
	connections        []*Connection
	unconnectedOutputs []Entry // output only, sink-inspection aid
}

// New creates a port of the given kind and name, validating messages
// against schema (message.Nop accepts anything).
func New(kind Kind, name string, schema message.Schema) *Port {
	if schema == nil {
		schema = message.Nop
	}
	return &Port{kind: kind, name: name, schema: schema}
}

// Kind returns whether this is an input or output port.
func (p *Port) Kind() Kind {
	return p.kind
}

// Name returns the port's name, unique within its owning agent.
func (p *Port) Name() string {
	return p.name
}

// Schema returns the port's declared message schema.
func (p *Port) Schema() message.Schema {
	return p.schema
}

// Connect appends a connection from this (output) port to target (an
// input port), applying opts. It returns WiringError if this port is
// not an output port, target is not an input port, or target is nil.
func (p *Port) Connect(target *Port, opts ...ConnectOption) error {
	if p.kind != Output {
		return ErrNotOutputPort
	}
	if target == nil || target.kind != Input {
		return ErrNotInputPort
	}
	cfg := &connectConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connections = append(p.connections, &Connection{
		Target:          target,
		Transformer:     cfg.transformer,
		Condition:       cfg.condition,
		SourceAgentUUID: p.AgentUUID,
		TargetAgentUUID: target.AgentUUID,
	})
	return nil
}

// Connections returns a stable-order snapshot of this output port's
// connections.
func (p *Port) Connections() []*Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Connection, len(p.connections))
	copy(out, p.connections)
	return out
}

// Send is the output-port half of message delivery. For each
// connection in declaration order: the transformer (if any) expands
// msg into zero or more sub-messages (default: [msg]); the condition
// (if any) is evaluated after the transformer on each sub-message;
// surviving sub-messages are delivered with a fresh per-connection
// ParentID appended to parents. If this port has zero connections,
// each candidate is instead appended to the unconnected-outputs
// buffer with a freshly minted L=1 tag.
//
// Send is synchronous: all deliveries for this call complete before
// it returns, and it never invokes a downstream agent's Step — it
// only enqueues (see the concurrency note in SPEC_FULL.md §5).
func (p *Port) Send(msg message.Message, parents parentid.Parents) error {
	if p.kind != Output {
		return ErrNotOutputPort
	}
	p.mu.Lock()
	conns := make([]*Connection, len(p.connections))
	copy(conns, p.connections)
	p.mu.Unlock()

	if len(conns) == 0 {
		entry := Entry{Parents: parents.Append(parentid.Mint(0, 1)), Message: msg}
		p.mu.Lock()
		p.unconnectedOutputs = append(p.unconnectedOutputs, entry)
		p.mu.Unlock()
		return nil
	}

	for _, c := range conns {
		outputs := []message.Message{msg}
		if c.Transformer != nil {
			outputs = c.Transformer(msg)
		}
		total := len(outputs)
		if total == 0 {
			continue
		}
		// One shared group per connection: every sub-message the
		// transformer produced for this connection is a genuine
		// list-sibling of the others, so all of them carry the same U
		// and L (spec.md §3, §8).
		group := parentid.NewGroup(total)
		for i, sub := range outputs {
			if c.Condition != nil && !c.Condition(sub) {
				continue
			}
			pid := group.Mint(i)
			if err := c.Target.Receive(sub, parents.Append(pid)); err != nil {
				return err
			}
		}
	}
	return nil
}

// SendSplit is the privileged overload used by agents that split one
// message into a set of sibling pieces meant for reassembly: the
// caller mints one parentid.Group per logical split (via
// parentid.NewGroup(total)) up front and passes it to every SendSplit
// call for that split's siblings, so all of them share one U and L no
// matter how many separate calls it takes to emit them — unlike Send,
// where a single transformer call already returns every sibling at
// once, a splitting agent typically emits one sibling per call (spec.md
// §9, "return-list ambiguity": "siblings share a UUID ... when they
// are genuine list-siblings of one split").
//
// index must be in [0, group.Total()). SendSplit delivers sub
// unconditionally on every connection whose condition (if any)
// accepts it.
func (p *Port) SendSplit(sub message.Message, parents parentid.Parents, group parentid.Group, index int) error {
	if p.kind != Output {
		return ErrNotOutputPort
	}
	p.mu.Lock()
	conns := make([]*Connection, len(p.connections))
	copy(conns, p.connections)
	p.mu.Unlock()

	pid := group.Mint(index)

	if len(conns) == 0 {
		p.mu.Lock()
		p.unconnectedOutputs = append(p.unconnectedOutputs, Entry{
			Parents: parents.Append(pid),
			Message: sub,
		})
		p.mu.Unlock()
		return nil
	}

	for _, c := range conns {
		candidate := sub
		if c.Transformer != nil {
			// A transformer on a split connection still runs, but
			// SendSplit's caller has already decided the group shape;
			// only a single-element transformer result is meaningful
			// here. Multi-element transformer results on a SendSplit
			// connection are not supported and are treated as a no-op
			// delivery (nothing downstream would be able to interpret
			// two different (index,total) tags for one call).
			out := c.Transformer(sub)
			if len(out) != 1 {
				continue
			}
			candidate = out[0]
		}
		if c.Condition != nil && !c.Condition(candidate) {
			continue
		}
		if err := c.Target.Receive(candidate, parents.Append(pid)); err != nil {
			return err
		}
	}
	return nil
}

// Receive is the input-port half of delivery: it validates msg against
// the port's schema and appends (parents, msg) to the queue. Returns
// SchemaError on validation failure; the offending message is not
// enqueued.
func (p *Port) Receive(msg message.Message, parents parentid.Parents) error {
	if p.kind != Input {
		return ErrNotInputPort
	}
	if err := p.schema.Validate(msg.Payload); err != nil {
		return &SchemaError{Port: p.name, Cause: err}
	}
	p.mu.Lock()
	p.queue = append(p.queue, Entry{Parents: parents, Message: msg})
	p.mu.Unlock()
	return nil
}

// Pop removes and returns the oldest queued entry on this input port,
// preserving FIFO order. ok is false when the queue is empty.
func (p *Port) Pop() (entry Entry, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return Entry{}, false
	}
	entry = p.queue[0]
	p.queue = p.queue[1:]
	return entry, true
}

// Len returns the number of entries currently queued on this input
// port (0 for output ports).
func (p *Port) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// UnconnectedOutputs returns a snapshot of everything sent to this
// output port while it had zero connections.
func (p *Port) UnconnectedOutputs() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.unconnectedOutputs))
	copy(out, p.unconnectedOutputs)
	return out
}

// connectConfig collects ConnectOption values.
type connectConfig struct {
	transformer Transformer
	condition   Condition
}

// ConnectOption configures a Connect call.
type ConnectOption func(*connectConfig)

// WithTransformer attaches a transformer to a connection.
func WithTransformer(t Transformer) ConnectOption {
	return func(c *connectConfig) { c.transformer = t }
}

// WithCondition attaches a post-transform filter to a connection.
func WithCondition(cond Condition) ConnectOption {
	return func(c *connectConfig) { c.condition = cond }
}
