package taxi

import (
	"github.com/zeu5/taxi-rl/types"
)

// Rewards of the transition model
const (
	MoveReward    = -1.0
	PenaltyReward = -5.0
	PickReward    = 0.0
	DropReward    = 10.0
)

// Start is the fixed starting cell of the taxi
var Start = types.Position{X: 0, Y: 0}

// World is the taxi grid world. It only holds the layout,
// the episode state is passed in and returned by value.
type World struct {
	config    types.GridConfig
	obstacles map[types.Position]bool
}

// NewWorld validates the configuration and creates the world
func NewWorld(config types.GridConfig) (*World, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	obstacles := make(map[types.Position]bool)
	for _, o := range config.Obstacles {
		obstacles[o] = true
	}
	cfg := types.GridConfig{
		GridSize:  config.GridSize,
		Obstacles: append([]types.Position{}, config.Obstacles...),
	}
	return &World{
		config:    cfg,
		obstacles: obstacles,
	}, nil
}

// Reset validates the configuration and returns the initial episode state of it
func Reset(config types.GridConfig) (types.EpisodeState, error) {
	w, err := NewWorld(config)
	if err != nil {
		return types.EpisodeState{}, err
	}
	return w.Reset(), nil
}

func (w *World) Config() types.GridConfig {
	return types.GridConfig{
		GridSize:  w.config.GridSize,
		Obstacles: append([]types.Position{}, w.config.Obstacles...),
	}
}

// Pickup cell of the passenger
func (w *World) Pickup() types.Position {
	return types.Position{X: w.config.GridSize - 1, Y: w.config.GridSize - 1}
}

// Destination cell of the passenger
func (w *World) Destination() types.Position {
	return types.Position{X: 0, Y: w.config.GridSize - 1}
}

func (w *World) IsObstacle(p types.Position) bool {
	return w.obstacles[p]
}

func (w *World) inBounds(p types.Position) bool {
	return p.X >= 0 && p.X < w.config.GridSize && p.Y >= 0 && p.Y < w.config.GridSize
}

// Reset returns the initial state of an episode
func (w *World) Reset() types.EpisodeState {
	pickup := w.Pickup()
	dest := w.Destination()
	return types.EpisodeState{
		Taxi:        Start,
		Passenger:   &pickup,
		Destination: &dest,
		InTaxi:      false,
		TotalReward: 0,
		Steps:       0,
	}
}

// Step applies the action to the state and returns the next state, the reward
// and whether the episode ended. The input state is never modified.
// An unknown action is penalized and reported with an InvalidActionError.
func (w *World) Step(state types.EpisodeState, a types.Action) (types.EpisodeState, float64, bool, error) {
	next := state.Copy()
	reward := PenaltyReward
	terminal := false
	var err error

	switch a {
	case types.North, types.South, types.East, types.West:
		newPos := move(state.Taxi, a)
		if w.inBounds(newPos) && !w.IsObstacle(newPos) {
			next.Taxi = newPos
			reward = MoveReward
		}
	case types.Pick:
		if next.Passenger != nil && !next.InTaxi && next.Passenger.Eq(next.Taxi) {
			next.InTaxi = true
			next.Passenger = nil
			reward = PickReward
		}
	case types.Drop:
		if next.InTaxi && next.Destination != nil && next.Destination.Eq(next.Taxi) {
			next.InTaxi = false
			reward = DropReward
			terminal = true
		}
	default:
		err = types.NewInvalidActionError(a.String())
	}

	next.Steps += 1
	next.TotalReward += reward
	return next, reward, terminal, err
}

func move(p types.Position, a types.Action) types.Position {
	switch a {
	case types.North:
		return types.Position{X: p.X, Y: p.Y + 1}
	case types.South:
		return types.Position{X: p.X, Y: p.Y - 1}
	case types.East:
		return types.Position{X: p.X + 1, Y: p.Y}
	case types.West:
		return types.Position{X: p.X - 1, Y: p.Y}
	}
	return p
}
