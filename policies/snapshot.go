package policies

import (
	"github.com/zeu5/taxi-rl/types"
)

// Entry of a snapshot, the values of one state
type Entry struct {
	State  types.StateKey           `json:"state"`
	Values map[types.Action]float64 `json:"values"`
}

// Snapshot is the persistable form of the agent
type Snapshot struct {
	Params  Params  `json:"params"`
	Entries []Entry `json:"entries"`
}

// Snapshot copies the parameters and the table
func (q *QLearning) Snapshot() *Snapshot {
	s := &Snapshot{
		Params:  q.Params(),
		Entries: make([]Entry, 0, q.qTable.Size()),
	}
	q.qTable.Each(func(state types.StateKey, values map[types.Action]float64) {
		s.Entries = append(s.Entries, Entry{State: state, Values: values})
	})
	return s
}

// Restore replaces the parameters and the table with the snapshot contents.
// The agent is left untouched if the snapshot is invalid.
func (q *QLearning) Restore(s *Snapshot) error {
	if err := s.Params.Validate(); err != nil {
		return err
	}
	table := NewQTable()
	for _, e := range s.Entries {
		for a, v := range e.Values {
			if !a.Valid() {
				return types.NewInvalidActionError(a.String())
			}
			table.Set(e.State, a, v)
		}
	}
	q.qTable = table
	q.gamma, q.alpha, q.epsilon = s.Params.Gamma, s.Params.Alpha, s.Params.Epsilon
	return nil
}
