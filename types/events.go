package types

import "encoding/json"

// Inbound command names
const (
	CommandInit           = "init"
	CommandConfigureAgent = "configure_agent"
	CommandStep           = "step"
	CommandStartTraining  = "start_training"
	CommandStopTraining   = "stop_training"
	CommandSetSpeed       = "set_speed"
	CommandReset          = "reset"
	CommandGetState       = "get_state"
	CommandGetQValues     = "get_q_values"
	CommandGetFullQTable  = "get_full_q_table"
	CommandSaveAgent      = "save_agent"
	CommandLoadAgent      = "load_agent"
)

// Outbound event names
const (
	EventConnected        = "connected"
	EventInitSuccess      = "init_success"
	EventAgentConfigured  = "agent_configured"
	EventStepResult       = "step_result"
	EventStepUpdate       = "step_update"
	EventEpisodeStart     = "episode_start"
	EventEpisodeComplete  = "episode_complete"
	EventTrainingStarted  = "training_started"
	EventTrainingStopped  = "training_stopped"
	EventTrainingComplete = "training_complete"
	EventSpeedChanged     = "speed_changed"
	EventResetSuccess     = "reset_success"
	EventCurrentState     = "current_state"
	EventQValues          = "q_values"
	EventFullQTable       = "full_q_table"
	EventAgentSaved       = "agent_saved"
	EventAgentLoaded      = "agent_loaded"
	EventError            = "error"
)

// Command sent by the client, the payload is decoded by the handler of the command
type Command struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event sent to the client
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// Command payloads

type InitPayload struct {
	GridSize  int      `json:"gridSize"`
	Obstacles [][2]int `json:"obstacles"`
}

type ConfigureAgentPayload struct {
	Gamma   *float64 `json:"gamma,omitempty"`
	Alpha   *float64 `json:"alpha,omitempty"`
	Epsilon *float64 `json:"epsilon,omitempty"`
}

type StepPayload struct {
	Action string `json:"action"`
}

type StartTrainingPayload struct {
	Episodes int `json:"episodes"`
	Speed    int `json:"speed"`
	// MaxSteps bounds the length of an episode, zero falls back to the server default
	MaxSteps int `json:"maxSteps,omitempty"`
}

type SetSpeedPayload struct {
	Speed int `json:"speed"`
}

type ResetPayload struct {
	ResetAgent bool `json:"resetAgent"`
}

type QValuesQuery struct {
	State *[7]int `json:"state,omitempty"`
}

type AgentNamePayload struct {
	Name string `json:"name"`
}

// Shared pieces of event payloads

type AgentStats struct {
	Gamma      float64 `json:"gamma"`
	Alpha      float64 `json:"alpha"`
	Epsilon    float64 `json:"epsilon"`
	QTableSize int     `json:"qTableSize"`
}

type TrainingStats struct {
	CurrentEpisode    int       `json:"currentEpisode"`
	TotalEpisodes     int       `json:"totalEpisodes"`
	IsTraining        bool      `json:"isTraining"`
	Speed             Speed     `json:"speed"`
	EpisodesCompleted int       `json:"episodesCompleted"`
	AverageReward     float64   `json:"averageReward"`
	AverageSteps      float64   `json:"averageSteps"`
	Last10Rewards     []float64 `json:"last10Rewards"`
	Last10Steps       []int     `json:"last10Steps"`
}

type GridInfo struct {
	GridSize  int      `json:"gridSize"`
	Obstacles [][2]int `json:"obstacles"`
}

// Event payloads

type ConnectedData struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type InitSuccessData struct {
	State      EpisodeState `json:"state"`
	Config     GridInfo     `json:"config"`
	AgentStats AgentStats   `json:"agentStats"`
	Message    string       `json:"message"`
}

type AgentConfiguredData struct {
	AgentStats AgentStats `json:"agentStats"`
	Message    string     `json:"message"`
}

type StepResultData struct {
	Action      Action       `json:"action"`
	Reward      float64      `json:"reward"`
	TotalReward float64      `json:"totalReward"`
	Terminal    bool         `json:"terminal"`
	State       EpisodeState `json:"state"`
	AgentStats  AgentStats   `json:"agentStats"`
}

type StepUpdateData struct {
	Episode     int          `json:"episode"`
	Step        int          `json:"step"`
	Action      Action       `json:"action"`
	Reward      float64      `json:"reward"`
	TotalReward float64      `json:"totalReward"`
	Terminal    bool         `json:"terminal"`
	StateKey    [7]int       `json:"stateKey"`
	NextKey     [7]int       `json:"nextKey"`
	State       EpisodeState `json:"state"`
	AgentStats  AgentStats   `json:"agentStats"`
}

type EpisodeStartData struct {
	Episode int          `json:"episode"`
	State   EpisodeState `json:"state"`
}

type EpisodeCompleteData struct {
	Episode       int           `json:"episode"`
	Steps         int           `json:"steps"`
	TotalReward   float64       `json:"totalReward"`
	Success       bool          `json:"success"`
	TrainingStats TrainingStats `json:"trainingStats"`
	AgentStats    AgentStats    `json:"agentStats"`
}

type TrainingStartedData struct {
	Message       string        `json:"message"`
	TrainingStats TrainingStats `json:"trainingStats"`
}

type TrainingStoppedData struct {
	Message       string        `json:"message"`
	TrainingStats TrainingStats `json:"trainingStats"`
	AgentStats    AgentStats    `json:"agentStats"`
}

type TrainingCompleteData struct {
	EpisodesCompleted int           `json:"episodesCompleted"`
	TrainingStats     TrainingStats `json:"trainingStats"`
	AgentStats        AgentStats    `json:"agentStats"`
}

type SpeedChangedData struct {
	Speed   Speed  `json:"speed"`
	Message string `json:"message"`
}

type ResetSuccessData struct {
	State         EpisodeState  `json:"state"`
	AgentStats    AgentStats    `json:"agentStats"`
	TrainingStats TrainingStats `json:"trainingStats"`
	Message       string        `json:"message"`
}

type CurrentStateData struct {
	State         EpisodeState  `json:"state"`
	Config        GridInfo      `json:"config"`
	AgentStats    AgentStats    `json:"agentStats"`
	TrainingStats TrainingStats `json:"trainingStats"`
}

type QValuesData struct {
	State      [7]int             `json:"state"`
	Values     map[Action]float64 `json:"values"`
	BestAction Action             `json:"bestAction"`
}

type FullQTableData struct {
	QTable map[string]map[Action]float64 `json:"qTable"`
	Size   int                           `json:"size"`
}

type AgentStoredData struct {
	Name       string     `json:"name"`
	AgentStats AgentStats `json:"agentStats"`
}

type ErrorData struct {
	Message string `json:"message"`
}
