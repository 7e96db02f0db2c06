package policies

import (
	"github.com/zeu5/taxi-rl/types"
)

// QTable maps a state key to the estimated value of each action.
// Reads never insert, a state only appears after a value was set for it.
type QTable struct {
	table map[types.StateKey]map[types.Action]float64
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[types.StateKey]map[types.Action]float64),
	}
}

// Get the value of the action in the state, def if unknown
func (q *QTable) Get(state types.StateKey, action types.Action, def float64) float64 {
	values, ok := q.table[state]
	if !ok {
		return def
	}
	val, ok := values[action]
	if !ok {
		return def
	}
	return val
}

func (q *QTable) Set(state types.StateKey, action types.Action, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[types.Action]float64)
	}
	q.table[state][action] = val
}

// Max returns the best action of the state and its value. Missing actions count as def,
// ties go to the earliest action of types.AllActions.
func (q *QTable) Max(state types.StateKey, def float64) (types.Action, float64) {
	maxAction := types.AllActions[0]
	maxVal := q.Get(state, maxAction, def)
	for _, a := range types.AllActions[1:] {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal
}

// Values of every action in the state, def for the missing ones
func (q *QTable) Values(state types.StateKey, def float64) map[types.Action]float64 {
	out := make(map[types.Action]float64, types.NumActions)
	for _, a := range types.AllActions {
		out[a] = q.Get(state, a, def)
	}
	return out
}

// Size is the number of distinct states in the table
func (q *QTable) Size() int {
	return len(q.table)
}

// Each calls f for every stored state with a copy of its values
func (q *QTable) Each(f func(types.StateKey, map[types.Action]float64)) {
	for state, values := range q.table {
		c := make(map[types.Action]float64, len(values))
		for a, v := range values {
			c[a] = v
		}
		f(state, c)
	}
}

func (q *QTable) Reset() {
	q.table = make(map[types.StateKey]map[types.Action]float64)
}
