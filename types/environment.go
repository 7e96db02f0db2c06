package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Position of a cell in the grid
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) Eq(other Position) bool {
	return p.X == other.X && p.Y == other.Y
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Action the taxi can take
type Action int

const (
	North Action = iota
	South
	East
	West
	Pick
	Drop
)

// AllActions in the fixed order used to break ties between equal values
var AllActions = []Action{North, South, East, West, Pick, Drop}

// NumActions is the size of the action space
const NumActions = 6

var actionNames = [NumActions]string{"NORTH", "SOUTH", "EAST", "WEST", "PICK", "DROP"}

// AutoAction is the manual step token that lets the agent pick the action
const AutoAction = "auto"

func (a Action) Valid() bool {
	return a >= North && a <= Drop
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction maps a wire token to an Action
func ParseAction(s string) (Action, error) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}
	return Action(-1), NewInvalidActionError(s)
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, NewInvalidActionError(a.String())
	}
	return []byte(actionNames[a]), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(strings.ToUpper(string(text)))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Absent is the coordinate used in a StateKey for a passenger or destination that is not on the grid
const Absent = -1

// StateKey is the discretized state indexing the Q-table
type StateKey struct {
	TaxiX  int
	TaxiY  int
	PassX  int
	PassY  int
	DestX  int
	DestY  int
	InTaxi bool
}

// Hash is the textual form of the key, deterministic and unique per key
func (k StateKey) Hash() string {
	return fmt.Sprintf("(%d, %d, %d, %d, %d, %d, %d)", k.TaxiX, k.TaxiY, k.PassX, k.PassY, k.DestX, k.DestY, boolToInt(k.InTaxi))
}

func (k StateKey) String() string {
	return k.Hash()
}

// Tuple is the 7-element wire representation of the key
func (k StateKey) Tuple() [7]int {
	return [7]int{k.TaxiX, k.TaxiY, k.PassX, k.PassY, k.DestX, k.DestY, boolToInt(k.InTaxi)}
}

// StateKeyFromTuple converts the wire representation back to a key.
// Any non zero in-taxi flag counts as true.
func StateKeyFromTuple(t [7]int) StateKey {
	return StateKey{
		TaxiX:  t[0],
		TaxiY:  t[1],
		PassX:  t[2],
		PassY:  t[3],
		DestX:  t[4],
		DestY:  t[5],
		InTaxi: t[6] != 0,
	}
}

func (k StateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Tuple())
}

func (k *StateKey) UnmarshalJSON(data []byte) error {
	var t [7]int
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	*k = StateKeyFromTuple(t)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EpisodeState is the state of the world within one episode.
// Passenger and Destination are nil when absent.
type EpisodeState struct {
	Taxi        Position  `json:"taxi"`
	Passenger   *Position `json:"passenger"`
	Destination *Position `json:"destination"`
	InTaxi      bool      `json:"inTaxi"`
	TotalReward float64   `json:"totalReward"`
	Steps       int       `json:"steps"`
}

// Copy returns a deep copy so that callers never share position pointers
func (s EpisodeState) Copy() EpisodeState {
	out := s
	if s.Passenger != nil {
		p := *s.Passenger
		out.Passenger = &p
	}
	if s.Destination != nil {
		d := *s.Destination
		out.Destination = &d
	}
	return out
}

// Key discretizes the state for the agent
func (s EpisodeState) Key() StateKey {
	key := StateKey{
		TaxiX:  s.Taxi.X,
		TaxiY:  s.Taxi.Y,
		PassX:  Absent,
		PassY:  Absent,
		DestX:  Absent,
		DestY:  Absent,
		InTaxi: s.InTaxi,
	}
	if s.Passenger != nil {
		key.PassX, key.PassY = s.Passenger.X, s.Passenger.Y
	}
	if s.Destination != nil {
		key.DestX, key.DestY = s.Destination.X, s.Destination.Y
	}
	return key
}

// GridConfig configures the world
type GridConfig struct {
	GridSize  int        `json:"gridSize"`
	Obstacles []Position `json:"obstacles"`
}

func NewGridConfig(gridSize int, obstacles [][2]int) GridConfig {
	c := GridConfig{
		GridSize:  gridSize,
		Obstacles: make([]Position, len(obstacles)),
	}
	for i, o := range obstacles {
		c.Obstacles[i] = Position{X: o[0], Y: o[1]}
	}
	return c
}

// Info is the description of the board sent to clients
func (c GridConfig) Info() GridInfo {
	return GridInfo{GridSize: c.GridSize, Obstacles: c.ObstaclePairs()}
}

// ObstaclePairs renders the obstacles as [x, y] pairs
func (c GridConfig) ObstaclePairs() [][2]int {
	out := make([][2]int, len(c.Obstacles))
	for i, o := range c.Obstacles {
		out[i] = [2]int{o.X, o.Y}
	}
	return out
}

// SessionState of a connection
type SessionState int

const (
	Uninitialized SessionState = iota
	Idle
	Training
)

func (s SessionState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Idle:
		return "idle"
	case Training:
		return "training"
	}
	return "unknown"
}
