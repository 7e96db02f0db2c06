package taxi

import "github.com/zeu5/taxi-rl/types"

// Episode holds the mutable state of the current episode of a session.
// It is not safe for concurrent use, callers hold the session lock.
type Episode struct {
	world    *World
	state    types.EpisodeState
	terminal bool
}

func NewEpisode(world *World) *Episode {
	return &Episode{
		world: world,
		state: world.Reset(),
	}
}

func (e *Episode) World() *World {
	return e.world
}

// State returns a copy of the current state
func (e *Episode) State() types.EpisodeState {
	return e.state.Copy()
}

// Key of the current state
func (e *Episode) Key() types.StateKey {
	return e.state.Key()
}

// Reset starts a new episode on the same layout
func (e *Episode) Reset() types.EpisodeState {
	e.state = e.world.Reset()
	e.terminal = false
	return e.State()
}

// Apply steps the world with the action and stores the next state
func (e *Episode) Apply(a types.Action) (float64, bool, error) {
	next, reward, terminal, err := e.world.Step(e.state, a)
	e.state = next
	if terminal {
		e.terminal = true
	}
	return reward, terminal, err
}

// Done is true once the passenger was delivered, until the next Reset
func (e *Episode) Done() bool {
	return e.terminal
}
