//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package aggregate implements the two standard provenance-aware
// joins over parentid.Parents: ListCollector reassembles a fan-out
// split back into one ordered message, and MultiPortJoin merges one
// message per named port into a single correlated message.
package aggregate

import (
	"encoding/json"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/message"
	"github.com/git5001/connectoragents/parentid"
)

// listBucket accumulates the siblings of one split group, keyed by
// the parent prefix shared by every sibling (everything but the final
// "U:index:total" tag).
type listBucket struct {
	Total  int
	Slots  []any
	Filled []bool
	Prefix parentid.Parents
}

func (b *listBucket) complete() bool {
	for _, f := range b.Filled {
		if !f {
			return false
		}
	}
	return true
}

// ListCollector buffers messages by the parent prefix preceding their
// final ParentID tag and, once every index 0..L-1 of a group has
// arrived, emits one message whose payload is the ordered slice of
// sibling payloads, with the shared prefix as its parents.
//
// It overrides Step directly instead of going through Base.Run: the
// generic Run/Process path always sends its result with the incoming
// parents, whereas a reassembled group is sent with the shared prefix
// as its parents.
type ListCollector struct {
	*agent.Base
	buckets map[string]*listBucket
}

// NewListCollector constructs a ListCollector validating reassembled
// output against outputSchema. The single input port accepts
// message.Nop (any payload); the schema that matters is the one the
// original split agent's output connections were declared with.
func NewListCollector(uuid string, outputSchema message.Schema) *ListCollector {
	return &ListCollector{
		Base:    agent.NewBase(uuid, message.Nop, outputSchema),
		buckets: map[string]*listBucket{},
	}
}

// Step implements agent.Agent.
func (c *ListCollector) Step() (agent.Activity, error) {
	in := c.InputPort(agent.DefaultInputPort)
	entry, ok := in.Pop()
	if !ok {
		return agent.Idle, nil
	}
	if len(entry.Parents) == 0 {
		return agent.Idle, &ParentIDError{AgentUUID: c.UUID(), Cause: ErrEmptyParents, Offending: entry}
	}

	last := entry.Parents[len(entry.Parents)-1]
	_, index, total, err := parentid.Parse(last)
	if err != nil {
		return agent.Idle, &ParentIDError{AgentUUID: c.UUID(), Cause: err, Offending: entry}
	}

	prefix := parentid.GroupKey(entry.Parents, len(entry.Parents)-1)
	key := prefix.Key()

	bucket, ok := c.buckets[key]
	if !ok {
		bucket = &listBucket{Total: total, Slots: make([]any, total), Filled: make([]bool, total), Prefix: prefix}
		c.buckets[key] = bucket
	} else if bucket.Total != total {
		return agent.Idle, &ParentIDError{AgentUUID: c.UUID(), Cause: ErrTotalMismatch, Offending: entry}
	}

	bucket.Slots[index] = entry.Message.Payload
	bucket.Filled[index] = true

	if !bucket.complete() {
		return agent.Productive, nil
	}
	delete(c.buckets, key)

	items := make([]any, total)
	copy(items, bucket.Slots)
	if err := c.OutputPort().Send(message.Message{Payload: items}, bucket.Prefix); err != nil {
		return agent.Idle, err
	}
	return agent.Productive, nil
}

// SaveState implements agent.Agent, storing the in-flight buckets
// alongside the usual port/uuid snapshot.
func (c *ListCollector) SaveState() agent.Snapshot {
	snap := c.Base.SaveState()
	snap.State = c.buckets
	return snap
}

// LoadState implements agent.Agent. Base.LoadState restores ports;
// the bucket map is re-hydrated through a JSON round trip since a
// checkpoint loaded from disk or memstore carries State as a generic
// map[string]any, not the concrete *listBucket type.
func (c *ListCollector) LoadState(s agent.Snapshot) {
	c.Base.LoadState(s)
	c.buckets = map[string]*listBucket{}
	if s.State == nil {
		return
	}
	data, err := json.Marshal(s.State)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, &c.buckets)
}
