//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package memstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/checkpoint"
	"github.com/git5001/connectoragents/checkpoint/memstore"
)

func sampleSnapshot() checkpoint.Snapshot {
	return checkpoint.Snapshot{
		Scheduler: checkpoint.SchedulerSnapshot{AgentIdx: 1, StepCounter: 3, AllDoneCounter: 0, Order: []string{"a", "b"}},
		Agents: []agent.Snapshot{
			{UUID: "a", State: map[string]any{"n": float64(1)}},
		},
	}
}

func TestSaveLoadStepRoundTrip(t *testing.T) {
	s := memstore.New()
	snap := sampleSnapshot()
	require.NoError(t, s.SaveStep(3, snap))

	got, ok, err := s.LoadStep(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.Scheduler, got.Scheduler)
	assert.Equal(t, snap.Agents, got.Agents)
}

func TestLoadStepMissingIsNotFoundNotError(t *testing.T) {
	s := memstore.New()
	_, ok, err := s.LoadStep(99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestStep(t *testing.T) {
	s := memstore.New()
	_, ok, err := s.LatestStep()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveStep(1, sampleSnapshot()))
	require.NoError(t, s.SaveStep(5, sampleSnapshot()))
	require.NoError(t, s.SaveStep(3, sampleSnapshot()))

	step, ok, err := s.LatestStep()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, step)
}

func TestSavedSnapshotIsNotAliased(t *testing.T) {
	s := memstore.New()
	snap := sampleSnapshot()
	require.NoError(t, s.SaveStep(1, snap))
	snap.Scheduler.StepCounter = 999

	got, ok, err := s.LoadStep(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.Scheduler.StepCounter)
}

func TestSaveError(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.SaveError(checkpoint.ErrorReport{AgentUUID: "a", StepCounter: 2, Kind: "AgentError", Message: "boom"}))
	reports := s.Errors()
	require.Len(t, reports, 1)
	assert.Equal(t, "boom", reports[0].Message)
}
