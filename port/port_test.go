//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package port_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git5001/connectoragents/message"
	"github.com/git5001/connectoragents/parentid"
	"github.com/git5001/connectoragents/port"
)

func TestFanOutDistinctUUIDs(t *testing.T) {
	out := port.New(port.Output, "out", message.Nop)
	b := port.New(port.Input, "in", message.Nop)
	d := port.New(port.Input, "in", message.Nop)

	require.NoError(t, out.Connect(b))
	require.NoError(t, out.Connect(d))

	require.NoError(t, out.Send(message.Message{Payload: "x"}, nil))

	entryB, ok := b.Pop()
	require.True(t, ok)
	entryD, ok := d.Pop()
	require.True(t, ok)

	require.Len(t, entryB.Parents, 1)
	require.Len(t, entryD.Parents, 1)

	ub, idxB, totalB, err := parentid.Parse(entryB.Parents[0])
	require.NoError(t, err)
	ud, idxD, totalD, err := parentid.Parse(entryD.Parents[0])
	require.NoError(t, err)

	assert.NotEqual(t, ub, ud, "fan-out across connections must mint distinct UUIDs")
	assert.Equal(t, 0, idxB)
	assert.Equal(t, 1, totalB)
	assert.Equal(t, 0, idxD)
	assert.Equal(t, 1, totalD)
}

func TestTransformerEmptyResultIsNoOp(t *testing.T) {
	out := port.New(port.Output, "out", message.Nop)
	in := port.New(port.Input, "in", message.Nop)
	require.NoError(t, out.Connect(in, port.WithTransformer(func(message.Message) []message.Message {
		return nil
	})))
	require.NoError(t, out.Send(message.Message{Payload: 1}, nil))
	assert.Equal(t, 0, in.Len())
}

func TestConditionAlwaysRejectsIsNoDelivery(t *testing.T) {
	out := port.New(port.Output, "out", message.Nop)
	in := port.New(port.Input, "in", message.Nop)
	require.NoError(t, out.Connect(in, port.WithCondition(func(message.Message) bool { return false })))
	require.NoError(t, out.Send(message.Message{Payload: 1}, nil))
	assert.Equal(t, 0, in.Len())
}

func TestConditionEvaluatedAfterTransformer(t *testing.T) {
	out := port.New(port.Output, "out", message.Nop)
	in := port.New(port.Input, "in", message.Nop)
	require.NoError(t, out.Connect(in,
		port.WithTransformer(func(m message.Message) []message.Message {
			n := m.Payload.(int)
			return []message.Message{{Payload: n * 2}}
		}),
		port.WithCondition(func(m message.Message) bool {
			return m.Payload.(int)%4 == 0
		}),
	))
	require.NoError(t, out.Send(message.Message{Payload: 2}, nil)) // transformed to 4, passes
	require.NoError(t, out.Send(message.Message{Payload: 1}, nil)) // transformed to 2, rejected
	require.Equal(t, 1, in.Len())
	entry, ok := in.Pop()
	require.True(t, ok)
	assert.Equal(t, 4, entry.Message.Payload)
}

func TestUnconnectedOutputsAccumulate(t *testing.T) {
	out := port.New(port.Output, "out", message.Nop)
	require.NoError(t, out.Send(message.Message{Payload: 1}, nil))
	require.NoError(t, out.Send(message.Message{Payload: 2}, nil))
	got := out.UnconnectedOutputs()
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Message.Payload)
	assert.Equal(t, 2, got[1].Message.Payload)
}

func TestFIFOOrderPreserved(t *testing.T) {
	in := port.New(port.Input, "in", message.Nop)
	require.NoError(t, in.Receive(message.Message{Payload: "A"}, nil))
	require.NoError(t, in.Receive(message.Message{Payload: "B"}, nil))
	first, ok := in.Pop()
	require.True(t, ok)
	second, ok := in.Pop()
	require.True(t, ok)
	assert.Equal(t, "A", first.Message.Payload)
	assert.Equal(t, "B", second.Message.Payload)
}

func TestSchemaRejectionDropsMessage(t *testing.T) {
	in := port.New(port.Input, "in", message.TypeOf(0))
	err := in.Receive(message.Message{Payload: "not an int"}, nil)
	require.Error(t, err)
	var schemaErr *port.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, 0, in.Len())
}

func TestConnectRejectsWrongKinds(t *testing.T) {
	in := port.New(port.Input, "in", message.Nop)
	out := port.New(port.Output, "out", message.Nop)
	assert.ErrorIs(t, in.Connect(out), port.ErrNotOutputPort)
	assert.ErrorIs(t, out.Connect(out), port.ErrNotInputPort)
}

func TestSendSplitSharesOneUUIDAcrossConnectionsAndCalls(t *testing.T) {
	out := port.New(port.Output, "out", message.Nop)
	a := port.New(port.Input, "a", message.Nop)
	bConn := port.New(port.Input, "b", message.Nop)
	require.NoError(t, out.Connect(a))
	require.NoError(t, out.Connect(bConn))

	group := parentid.NewGroup(2)
	require.NoError(t, out.SendSplit(message.Message{Payload: "piece-0"}, nil, group, 0))
	require.NoError(t, out.SendSplit(message.Message{Payload: "piece-1"}, nil, group, 1))

	aEntry0, ok := a.Pop()
	require.True(t, ok)
	bEntry0, ok := bConn.Pop()
	require.True(t, ok)
	aEntry1, ok := a.Pop()
	require.True(t, ok)
	bEntry1, ok := bConn.Pop()
	require.True(t, ok)

	u0, idx0, total0, err := parentid.Parse(aEntry0.Parents[0])
	require.NoError(t, err)
	u1, idx1, total1, err := parentid.Parse(aEntry1.Parents[0])
	require.NoError(t, err)
	uB0, _, _, err := parentid.Parse(bEntry0.Parents[0])
	require.NoError(t, err)
	uB1, _, _, err := parentid.Parse(bEntry1.Parents[0])
	require.NoError(t, err)

	assert.Equal(t, u0, u1, "every call for one split group shares the same U")
	assert.Equal(t, u0, uB0, "every connection of one split group shares the same U")
	assert.Equal(t, u0, uB1)
	assert.Equal(t, 0, idx0)
	assert.Equal(t, 1, idx1)
	assert.Equal(t, 2, total0)
	assert.Equal(t, 2, total1)
}

func TestSendSharesOneUUIDAcrossTransformerSiblingsPerConnection(t *testing.T) {
	out := port.New(port.Output, "out", message.Nop)
	a := port.New(port.Input, "a", message.Nop)
	b := port.New(port.Input, "b", message.Nop)
	require.NoError(t, out.Connect(a, port.WithTransformer(func(m message.Message) []message.Message {
		s := m.Payload.(string)
		out := make([]message.Message, len(s))
		for i, r := range s {
			out[i] = message.Message{Payload: string(r)}
		}
		return out
	})))
	require.NoError(t, out.Connect(b, port.WithTransformer(func(m message.Message) []message.Message {
		return []message.Message{m}
	})))

	require.NoError(t, out.Send(message.Message{Payload: "xyz"}, nil))
	require.Equal(t, 3, a.Len())

	var aUUIDs []string
	for i := 0; i < 3; i++ {
		entry, ok := a.Pop()
		require.True(t, ok)
		u, idx, total, err := parentid.Parse(entry.Parents[0])
		require.NoError(t, err)
		assert.Equal(t, i, idx)
		assert.Equal(t, 3, total)
		aUUIDs = append(aUUIDs, u)
	}
	assert.Equal(t, aUUIDs[0], aUUIDs[1], "siblings from one transformer call on one connection share a U")
	assert.Equal(t, aUUIDs[0], aUUIDs[2])

	bEntry, ok := b.Pop()
	require.True(t, ok)
	uB, _, _, err := parentid.Parse(bEntry.Parents[0])
	require.NoError(t, err)
	assert.NotEqual(t, aUUIDs[0], uB, "different connections never share a U")
}

func TestPortSnapshotRoundTrip(t *testing.T) {
	in := port.New(port.Input, "in", message.Nop)
	require.NoError(t, in.Receive(message.Message{Payload: 1}, parentid.Parents{parentid.Mint(0, 1)}))
	snap := in.Snapshot()

	in2 := port.New(port.Input, "in", message.Nop)
	in2.Restore(snap)
	assert.Equal(t, 1, in2.Len())
}
