package policies

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/taxi-rl/types"
)

var (
	start = types.StateKey{TaxiX: 0, TaxiY: 0, PassX: 3, PassY: 3, DestX: 0, DestY: 3}
	north = types.StateKey{TaxiX: 0, TaxiY: 1, PassX: 3, PassY: 3, DestX: 0, DestY: 3}
)

func newAgent(t *testing.T, params Params) *QLearning {
	t.Helper()
	agent, err := NewQLearning(params, 7)
	require.NoError(t, err)
	return agent
}

func floatPtr(f float64) *float64 {
	return &f
}

func TestTieBreakOrder(t *testing.T) {
	agent := newAgent(t, Params{Gamma: 0.9, Alpha: 0.5, Epsilon: 0})
	assert.Equal(t, types.North, agent.ChooseAction(start, true))

	agent.Learn(start, types.North, -1, north, false)
	// every other action is still at 0, SOUTH comes first
	assert.Equal(t, types.South, agent.ChooseAction(start, true))
	agent.Learn(start, types.South, -1, start, false)
	assert.Equal(t, types.East, agent.ChooseAction(start, false))
}

func TestChooseActionIsDeterministicWithoutExploration(t *testing.T) {
	agent := newAgent(t, Params{Gamma: 0.9, Alpha: 0.5, Epsilon: 0})
	agent.Learn(start, types.Pick, 3, start, false)
	first := agent.ChooseAction(start, true)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, agent.ChooseAction(start, true))
	}
	assert.Equal(t, types.Pick, first)
}

func TestExplorationCoversAllActions(t *testing.T) {
	agent := newAgent(t, Params{Gamma: 0.9, Alpha: 0.1, Epsilon: 1})
	seen := make(map[types.Action]bool)
	for i := 0; i < 500; i++ {
		seen[agent.ChooseAction(start, true)] = true
	}
	assert.Len(t, seen, types.NumActions)

	// exploitation ignores epsilon
	for i := 0; i < 20; i++ {
		assert.Equal(t, types.North, agent.ChooseAction(start, false))
	}
}

func TestLearnUpdate(t *testing.T) {
	agent := newAgent(t, Params{Gamma: 0.5, Alpha: 0.5, Epsilon: 0})
	agent.Learn(north, types.East, 4, start, false)
	// Q(north, EAST) = 0 + 0.5 * (4 + 0.5*0 - 0) = 2
	assert.InDelta(t, 2.0, agent.ValuesFor(north)[types.East], 1e-9)

	agent.Learn(start, types.North, -1, north, false)
	// Q(start, NORTH) = 0 + 0.5 * (-1 + 0.5*2 - 0) = 0
	assert.InDelta(t, 0.0, agent.ValuesFor(start)[types.North], 1e-9)

	agent.Learn(start, types.North, -1, north, false)
	// Q(start, NORTH) = 0 + 0.5 * (-1 + 1 - 0) = 0 again
	assert.InDelta(t, 0.0, agent.ValuesFor(start)[types.North], 1e-9)

	agent.Learn(start, types.Drop, 10, north, true)
	// terminal transitions do not bootstrap: 0 + 0.5 * (10 - 0) = 5
	assert.InDelta(t, 5.0, agent.ValuesFor(start)[types.Drop], 1e-9)
	assert.Equal(t, types.Drop, agent.BestAction(start))
}

func TestTableSizeCountsStates(t *testing.T) {
	agent := newAgent(t, DefaultParams())
	assert.Zero(t, agent.TableSize())
	agent.Learn(start, types.North, -1, north, false)
	agent.Learn(start, types.South, -5, start, false)
	assert.Equal(t, 1, agent.TableSize())
	agent.Learn(north, types.South, -1, start, false)
	assert.Equal(t, 2, agent.TableSize())

	agent.Clear()
	assert.Zero(t, agent.TableSize())
}

func TestValuesForDoesNotGrowTable(t *testing.T) {
	agent := newAgent(t, DefaultParams())
	values := agent.ValuesFor(start)
	assert.Len(t, values, types.NumActions)
	for _, v := range values {
		assert.Zero(t, v)
	}
	agent.ChooseAction(start, false)
	assert.Zero(t, agent.TableSize())
}

func TestConfigure(t *testing.T) {
	agent := newAgent(t, DefaultParams())
	agent.Learn(start, types.North, -1, north, false)

	require.NoError(t, agent.Configure(PartialParams{Epsilon: floatPtr(0.3)}))
	assert.Equal(t, Params{Gamma: 0.9, Alpha: 0.1, Epsilon: 0.3}, agent.Params())
	assert.Equal(t, 1, agent.TableSize())

	err := agent.Configure(PartialParams{Gamma: floatPtr(0.5), Alpha: floatPtr(1.5)})
	var cfgErr *types.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	// nothing applied on error
	assert.Equal(t, Params{Gamma: 0.9, Alpha: 0.1, Epsilon: 0.3}, agent.Params())

	require.Error(t, agent.Configure(PartialParams{Epsilon: floatPtr(-0.1)}))
	require.NoError(t, agent.Configure(PartialParams{Gamma: floatPtr(0), Alpha: floatPtr(1)}))
	assert.Equal(t, Params{Gamma: 0, Alpha: 1, Epsilon: 0.3}, agent.Params())
}

func TestNewQLearningRejectsInvalidParams(t *testing.T) {
	_, err := NewQLearning(Params{Gamma: 2, Alpha: 0.1, Epsilon: 0.1}, 1)
	require.Error(t, err)
}

func TestSnapshotRestore(t *testing.T) {
	agent := newAgent(t, Params{Gamma: 0.8, Alpha: 0.2, Epsilon: 0.05})
	agent.Learn(start, types.North, -1, north, false)
	agent.Learn(north, types.Pick, -5, north, false)

	bs, err := json.Marshal(agent.Snapshot())
	require.NoError(t, err)

	restored := newAgent(t, DefaultParams())
	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(bs, &snapshot))
	require.NoError(t, restored.Restore(&snapshot))

	assert.Equal(t, agent.Params(), restored.Params())
	assert.Equal(t, agent.Table(), restored.Table())

	bad := &Snapshot{Params: Params{Gamma: 3}}
	require.Error(t, restored.Restore(bad))
	assert.Equal(t, 2, restored.TableSize())
}
