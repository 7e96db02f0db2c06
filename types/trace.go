package types

// TraceStep is one transition of an episode
type TraceStep struct {
	Step      int      `json:"step"`
	State     StateKey `json:"state"`
	Action    Action   `json:"action"`
	Reward    float64  `json:"reward"`
	NextState StateKey `json:"nextState"`
	Terminal  bool     `json:"terminal"`
}

// Trace of an episode as (state, action, reward, nextState) steps
type Trace struct {
	Episode int         `json:"episode"`
	Steps   []TraceStep `json:"steps"`
	Success bool        `json:"success"`
}

func NewTrace(episode int) *Trace {
	return &Trace{
		Episode: episode,
		Steps:   make([]TraceStep, 0),
	}
}

func (t *Trace) Append(step int, state StateKey, action Action, reward float64, nextState StateKey, terminal bool) {
	t.Steps = append(t.Steps, TraceStep{
		Step:      step,
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
		Terminal:  terminal,
	})
	if terminal {
		t.Success = true
	}
}

func (t *Trace) Len() int {
	return len(t.Steps)
}

func (t *Trace) Get(i int) (StateKey, Action, StateKey, bool) {
	if i < 0 || i >= len(t.Steps) {
		return StateKey{}, Action(-1), StateKey{}, false
	}
	s := t.Steps[i]
	return s.State, s.Action, s.NextState, true
}

func (t *Trace) Last() (StateKey, Action, StateKey, bool) {
	return t.Get(len(t.Steps) - 1)
}

