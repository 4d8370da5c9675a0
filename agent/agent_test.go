//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/message"
	"github.com/git5001/connectoragents/parentid"
)

func identity(uuid string) *agent.Base {
	b := agent.NewBase(uuid, message.Nop, message.Nop)
	b.Run = func(payload any, _ parentid.Parents) (any, error) { return payload, nil }
	return b
}

func TestStepIdleWhenEmpty(t *testing.T) {
	a := identity("a")
	act, err := a.Step()
	require.NoError(t, err)
	assert.Equal(t, agent.Idle, act)
}

func TestFeedThenStepIsProductive(t *testing.T) {
	a := identity("a")
	a.Feed(42)
	act, err := a.Step()
	require.NoError(t, err)
	assert.Equal(t, agent.Productive, act)
	out := a.OutputPort().UnconnectedOutputs()
	require.Len(t, out, 1)
	assert.Equal(t, 42, out[0].Message.Payload)
	assert.Len(t, out[0].Parents, 1)
}

func TestOneMessageConsumedPerStep(t *testing.T) {
	a := identity("a")
	a.Feed(1)
	a.Feed(2)
	_, err := a.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, a.InputPort(agent.DefaultInputPort).Len())
}

func TestRunErrorCarriesOffendingMessage(t *testing.T) {
	a := agent.NewBase("a", message.Nop, message.Nop)
	boom := assert.AnError
	a.Run = func(payload any, _ parentid.Parents) (any, error) { return nil, boom }
	a.Feed("x")
	act, err := a.Step()
	assert.Equal(t, agent.Idle, act)
	require.Error(t, err)
	var runErr *agent.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "a", runErr.AgentUUID)
	assert.Equal(t, "x", runErr.Offending.Message.Payload)
}

func TestListResultSendsOneCallPerElementAtL1(t *testing.T) {
	a := agent.NewBase("a", message.Nop, message.Nop)
	a.Run = func(payload any, _ parentid.Parents) (any, error) {
		return []any{"a", "b", "c"}, nil
	}
	a.Feed("seed")
	_, err := a.Step()
	require.NoError(t, err)
	out := a.OutputPort().UnconnectedOutputs()
	require.Len(t, out, 3)
	for _, e := range out {
		require.Len(t, e.Parents, 1)
		_, idx, total, perr := parentid.Parse(e.Parents[0])
		require.NoError(t, perr)
		assert.Equal(t, 0, idx)
		assert.Equal(t, 1, total)
	}
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	a := identity("a")
	a.State = map[string]any{"count": float64(3)}
	a.Feed("queued")
	snap := a.SaveState()

	b := identity("a")
	b.LoadState(snap)
	assert.Equal(t, a.State, b.State)
	assert.Equal(t, 1, b.InputPort(agent.DefaultInputPort).Len())
}

func TestParentsUnchangedOnSingleHop(t *testing.T) {
	a := identity("a")
	a.Feed("x")
	_, err := a.Step()
	require.NoError(t, err)
	out := a.OutputPort().UnconnectedOutputs()
	require.Len(t, out, 1)
	assert.Len(t, out[0].Parents, 1, "one port traversal should add exactly one parent tag")
}
