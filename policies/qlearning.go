package policies

import (
	"math"
	"time"

	"github.com/zeu5/taxi-rl/types"
	"golang.org/x/exp/rand"
)

// Params of the learning rule, all in [0, 1]
type Params struct {
	Gamma   float64 `json:"gamma" yaml:"gamma"`
	Alpha   float64 `json:"alpha" yaml:"alpha"`
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
}

func DefaultParams() Params {
	return Params{
		Gamma:   0.9,
		Alpha:   0.1,
		Epsilon: 0.1,
	}
}

func (p Params) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"gamma", p.Gamma}, {"alpha", p.Alpha}, {"epsilon", p.Epsilon}} {
		if err := checkUnit(v.name, v.val); err != nil {
			return err
		}
	}
	return nil
}

func checkUnit(name string, val float64) error {
	if math.IsNaN(val) || val < 0 || val > 1 {
		return types.NewConfigError("%s must be between 0 and 1, got %v", name, val)
	}
	return nil
}

// PartialParams updates only the fields that are set
type PartialParams struct {
	Gamma   *float64
	Alpha   *float64
	Epsilon *float64
}

// QLearning is a tabular epsilon-greedy Q-learning agent.
// It is not safe for concurrent use.
type QLearning struct {
	qTable  *QTable
	gamma   float64
	alpha   float64
	epsilon float64
	rand    *rand.Rand
}

// NewQLearning creates the agent, a zero seed picks a time based one
func NewQLearning(params Params, seed uint64) (*QLearning, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &QLearning{
		qTable:  NewQTable(),
		gamma:   params.Gamma,
		alpha:   params.Alpha,
		epsilon: params.Epsilon,
		rand:    rand.New(rand.NewSource(seed)),
	}, nil
}

// ChooseAction explores with probability epsilon when epsilonGreedy is set,
// otherwise takes the best known action.
func (q *QLearning) ChooseAction(state types.StateKey, epsilonGreedy bool) types.Action {
	if epsilonGreedy && q.epsilon > 0 && q.rand.Float64() < q.epsilon {
		return types.AllActions[q.rand.Intn(types.NumActions)]
	}
	return q.BestAction(state)
}

// BestAction is the argmax over the stored values
func (q *QLearning) BestAction(state types.StateKey) types.Action {
	a, _ := q.qTable.Max(state, 0)
	return a
}

// Learn applies the Q-learning update for one transition
func (q *QLearning) Learn(state types.StateKey, action types.Action, reward float64, nextState types.StateKey, terminal bool) {
	curVal := q.qTable.Get(state, action, 0)
	target := reward
	if !terminal {
		_, nextVal := q.qTable.Max(nextState, 0)
		target += q.gamma * nextVal
	}
	q.qTable.Set(state, action, curVal+q.alpha*(target-curVal))
}

// Configure validates every provided field before applying any of them
func (q *QLearning) Configure(p PartialParams) error {
	next := q.Params()
	if p.Gamma != nil {
		next.Gamma = *p.Gamma
	}
	if p.Alpha != nil {
		next.Alpha = *p.Alpha
	}
	if p.Epsilon != nil {
		next.Epsilon = *p.Epsilon
	}
	if err := next.Validate(); err != nil {
		return err
	}
	q.gamma, q.alpha, q.epsilon = next.Gamma, next.Alpha, next.Epsilon
	return nil
}

func (q *QLearning) Params() Params {
	return Params{
		Gamma:   q.gamma,
		Alpha:   q.alpha,
		Epsilon: q.epsilon,
	}
}

// TableSize is the number of distinct states learned
func (q *QLearning) TableSize() int {
	return q.qTable.Size()
}

func (q *QLearning) Clear() {
	q.qTable.Reset()
}

// ValuesFor returns every action value of the state, 0 for unknown ones
func (q *QLearning) ValuesFor(state types.StateKey) map[types.Action]float64 {
	return q.qTable.Values(state, 0)
}

// Table returns the full table keyed by the textual state key
func (q *QLearning) Table() map[string]map[types.Action]float64 {
	out := make(map[string]map[types.Action]float64, q.qTable.Size())
	q.qTable.Each(func(state types.StateKey, values map[types.Action]float64) {
		out[state.Hash()] = values
	})
	return out
}

func (q *QLearning) Stats() types.AgentStats {
	return types.AgentStats{
		Gamma:      q.gamma,
		Alpha:      q.alpha,
		Epsilon:    q.epsilon,
		QTableSize: q.qTable.Size(),
	}
}
