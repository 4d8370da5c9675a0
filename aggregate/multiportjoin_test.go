//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/aggregate"
	"github.com/git5001/connectoragents/message"
	"github.com/git5001/connectoragents/parentid"
)

func TestMultiPortJoinEmitsWhenAllPortsShareAPrefix(t *testing.T) {
	j := aggregate.NewMultiPortJoin("join", []string{"left", "right"}, message.Nop, message.Nop)

	shared := parentid.Parents{parentid.Mint(0, 1)}
	require.NoError(t, j.InputPort("left").Receive(message.Message{Payload: "L"}, shared.Append(parentid.Mint(0, 2))))
	activity, err := j.Step()
	require.NoError(t, err)
	assert.Equal(t, agent.Productive, activity)
	assert.Empty(t, j.OutputPort().UnconnectedOutputs())

	require.NoError(t, j.InputPort("right").Receive(message.Message{Payload: "R"}, shared.Append(parentid.Mint(1, 2))))
	activity, err = j.Step()
	require.NoError(t, err)
	assert.Equal(t, agent.Productive, activity)

	out := j.OutputPort().UnconnectedOutputs()
	require.Len(t, out, 1)
	joined, ok := out[0].Message.Payload.(aggregate.Joined)
	require.True(t, ok)
	assert.Equal(t, "L", joined.Values["left"])
	assert.Equal(t, "R", joined.Values["right"])
	assert.Equal(t, shared, out[0].Parents)
}

func TestMultiPortJoinWaitsWhenPrefixesDiffer(t *testing.T) {
	j := aggregate.NewMultiPortJoin("join", []string{"left", "right"}, message.Nop, message.Nop)

	g1 := parentid.Parents{parentid.Mint(0, 1)}
	g2 := parentid.Parents{parentid.Mint(0, 1)}
	require.NoError(t, j.InputPort("left").Receive(message.Message{Payload: "L"}, g1))
	require.NoError(t, j.InputPort("right").Receive(message.Message{Payload: "R"}, g2))

	_, err := j.Step()
	require.NoError(t, err)
	_, err = j.Step()
	require.NoError(t, err)

	// g1 and g2 are both single fresh UUIDs sharing no common prefix,
	// so no join should have been emitted yet.
	assert.Empty(t, j.OutputPort().UnconnectedOutputs())
}

func TestMultiPortJoinOldestArrivalFirstTieBreak(t *testing.T) {
	j := aggregate.NewMultiPortJoin("join", []string{"left", "right"}, message.Nop, message.Nop)

	shared := parentid.Parents{parentid.Mint(0, 1)}
	require.NoError(t, j.InputPort("left").Receive(message.Message{Payload: "L1"}, shared.Append(parentid.Mint(0, 2))))
	require.NoError(t, j.InputPort("left").Receive(message.Message{Payload: "L2"}, shared.Append(parentid.Mint(0, 2))))
	_, err := j.Step()
	require.NoError(t, err)
	_, err = j.Step()
	require.NoError(t, err)

	require.NoError(t, j.InputPort("right").Receive(message.Message{Payload: "R1"}, shared.Append(parentid.Mint(1, 2))))
	_, err = j.Step()
	require.NoError(t, err)

	out := j.OutputPort().UnconnectedOutputs()
	require.Len(t, out, 1)
	joined := out[0].Message.Payload.(aggregate.Joined)
	assert.Equal(t, "L1", joined.Values["left"])
}

func TestMultiPortJoinSaveLoadStateRoundTrip(t *testing.T) {
	j := aggregate.NewMultiPortJoin("join", []string{"left", "right"}, message.Nop, message.Nop)
	shared := parentid.Parents{parentid.Mint(0, 1)}
	require.NoError(t, j.InputPort("left").Receive(message.Message{Payload: "L"}, shared.Append(parentid.Mint(0, 2))))
	_, err := j.Step()
	require.NoError(t, err)

	snap := j.SaveState()

	j2 := aggregate.NewMultiPortJoin("join", []string{"left", "right"}, message.Nop, message.Nop)
	j2.LoadState(snap)
	require.NoError(t, j2.InputPort("right").Receive(message.Message{Payload: "R"}, shared.Append(parentid.Mint(1, 2))))

	activity, err := j2.Step()
	require.NoError(t, err)
	assert.Equal(t, agent.Productive, activity)
	out := j2.OutputPort().UnconnectedOutputs()
	require.Len(t, out, 1)
	joined := out[0].Message.Payload.(aggregate.Joined)
	assert.Equal(t, "L", joined.Values["left"])
	assert.Equal(t, "R", joined.Values["right"])
}
