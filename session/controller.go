package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zeu5/taxi-rl/policies"
	"github.com/zeu5/taxi-rl/store"
	"github.com/zeu5/taxi-rl/taxi"
	"github.com/zeu5/taxi-rl/training"
	"github.com/zeu5/taxi-rl/types"
)

var ErrUnknownCommand = errors.New("unknown command")

type Option func(*Controller)

// WithAgent sets the learning parameters and the random seed of the agent
func WithAgent(params policies.Params, seed uint64) Option {
	return func(c *Controller) {
		c.params = params
		c.seed = seed
	}
}

// WithStore enables save_agent and load_agent
func WithStore(s store.Store) Option {
	return func(c *Controller) {
		c.store = s
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTrainingOptions are passed to the scheduler created on init
func WithTrainingOptions(opts ...training.Option) Option {
	return func(c *Controller) {
		c.trainingOpts = append(c.trainingOpts, opts...)
	}
}

// Controller owns everything a connection works on: the episode, the agent and
// the training scheduler. Commands and training steps are serialized by one lock.
type Controller struct {
	id      string
	emitter training.Emitter
	logger  *slog.Logger
	store   store.Store

	params       policies.Params
	seed         uint64
	trainingOpts []training.Option

	ctx    context.Context
	cancel context.CancelFunc

	lock      *sync.Mutex
	agent     *policies.QLearning
	episode   *taxi.Episode
	scheduler *training.Scheduler
}

// NewController creates the session in the Uninitialized state. Training runs
// started by the session are bound to ctx.
func NewController(ctx context.Context, id string, emitter training.Emitter, opts ...Option) (*Controller, error) {
	c := &Controller{
		id:      id,
		emitter: emitter,
		logger:  slog.Default(),
		params:  policies.DefaultParams(),
		lock:    new(sync.Mutex),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With(slog.String("session_id", id))

	agent, err := policies.NewQLearning(c.params, c.seed)
	if err != nil {
		return nil, err
	}
	c.agent = agent
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c, nil
}

func (c *Controller) ID() string {
	return c.id
}

// State of the session
func (c *Controller) State() types.SessionState {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state()
}

func (c *Controller) state() types.SessionState {
	if c.episode == nil {
		return types.Uninitialized
	}
	if c.scheduler.Running() {
		return types.Training
	}
	return types.Idle
}

// Close stops any training run and waits for it to exit
func (c *Controller) Close() {
	c.lock.Lock()
	c.cancel()
	var done <-chan struct{}
	if c.scheduler != nil {
		c.scheduler.Stop()
		done = c.scheduler.Done()
	}
	c.lock.Unlock()

	if done != nil {
		<-done
	}
}

// Handle runs one command. A rejected command leaves the session unchanged and
// is reported to the client with a single error event.
func (c *Controller) Handle(ctx context.Context, cmd types.Command) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	err := c.handle(ctx, cmd)
	if err != nil {
		c.logger.Debug("command rejected", slog.String("command", cmd.Name), slog.String("error", err.Error()))
		c.emit(types.EventError, types.ErrorData{Message: err.Error()})
	}
	return err
}

func (c *Controller) handle(ctx context.Context, cmd types.Command) error {
	if err := c.allowed(cmd.Name); err != nil {
		return err
	}
	switch cmd.Name {
	case types.CommandInit:
		return c.initialize(cmd.Data)
	case types.CommandConfigureAgent:
		return c.configureAgent(cmd.Data)
	case types.CommandStep:
		return c.manualStep(cmd.Data)
	case types.CommandStartTraining:
		return c.startTraining(cmd.Data)
	case types.CommandStopTraining:
		return c.stopTraining()
	case types.CommandSetSpeed:
		return c.setSpeed(cmd.Data)
	case types.CommandReset:
		return c.reset(cmd.Data)
	case types.CommandGetState:
		return c.currentState()
	case types.CommandGetQValues:
		return c.qValues(cmd.Data)
	case types.CommandGetFullQTable:
		return c.fullQTable()
	case types.CommandSaveAgent:
		return c.saveAgent(ctx, cmd.Data)
	case types.CommandLoadAgent:
		return c.loadAgent(ctx, cmd.Data)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
}

// allowed gates commands on the session state
func (c *Controller) allowed(name string) error {
	state := c.state()
	switch name {
	case types.CommandInit:
		if state != types.Uninitialized {
			return types.NewStateError("session already initialized")
		}
		return nil
	case types.CommandConfigureAgent, types.CommandStep, types.CommandStartTraining,
		types.CommandStopTraining, types.CommandSetSpeed, types.CommandReset,
		types.CommandGetState, types.CommandGetQValues, types.CommandGetFullQTable,
		types.CommandSaveAgent, types.CommandLoadAgent:
		if state == types.Uninitialized {
			return types.NewStateError("session not initialized, send %s first", types.CommandInit)
		}
	default:
		return nil
	}

	switch {
	case name == types.CommandStep && state == types.Training:
		return types.NewStateError("cannot step while training")
	case name == types.CommandStartTraining && state == types.Training:
		return types.NewStateError("training already in progress")
	case name == types.CommandReset && state == types.Training:
		return types.NewStateError("cannot reset while training, stop training first")
	case name == types.CommandStopTraining && state != types.Training:
		return types.NewStateError("training is not running")
	case name == types.CommandSetSpeed && state != types.Training:
		return types.NewStateError("speed can only be changed while training")
	case (name == types.CommandSaveAgent || name == types.CommandLoadAgent) && state == types.Training:
		return types.NewStateError("cannot %s while training", name)
	}
	return nil
}

func (c *Controller) emit(name string, data interface{}) {
	c.emitter.Emit(types.Event{Name: name, Data: data})
}

func decode(cmd string, data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return types.NewConfigError("invalid %s payload: %s", cmd, err)
	}
	return nil
}

func (c *Controller) initialize(data json.RawMessage) error {
	var p types.InitPayload
	if err := decode(types.CommandInit, data, &p); err != nil {
		return err
	}
	config := types.NewGridConfig(p.GridSize, p.Obstacles)
	world, err := taxi.NewWorld(config)
	if err != nil {
		return err
	}

	c.episode = taxi.NewEpisode(world)
	opts := append([]training.Option{training.WithLogger(c.logger)}, c.trainingOpts...)
	c.scheduler = training.NewScheduler(c.lock, c.episode, c.agent, c.emitter, opts...)

	c.logger.Info("session initialized", slog.Int("grid_size", config.GridSize), slog.Int("obstacles", len(config.Obstacles)))
	c.emit(types.EventInitSuccess, types.InitSuccessData{
		State:      c.episode.State(),
		Config:     config.Info(),
		AgentStats: c.agent.Stats(),
		Message:    fmt.Sprintf("Initialized %dx%d grid with %d obstacles", config.GridSize, config.GridSize, len(config.Obstacles)),
	})
	return nil
}

func (c *Controller) configureAgent(data json.RawMessage) error {
	var p types.ConfigureAgentPayload
	if err := decode(types.CommandConfigureAgent, data, &p); err != nil {
		return err
	}
	if err := c.agent.Configure(policies.PartialParams{Gamma: p.Gamma, Alpha: p.Alpha, Epsilon: p.Epsilon}); err != nil {
		return err
	}
	c.emit(types.EventAgentConfigured, types.AgentConfiguredData{
		AgentStats: c.agent.Stats(),
		Message:    "Agent configured",
	})
	return nil
}

func (c *Controller) manualStep(data json.RawMessage) error {
	var p types.StepPayload
	if err := decode(types.CommandStep, data, &p); err != nil {
		return err
	}
	if c.episode.Done() {
		return types.NewStateError("episode finished, reset to start a new one")
	}

	key := c.episode.Key()
	var action types.Action
	if p.Action == "" || p.Action == types.AutoAction {
		action = c.agent.ChooseAction(key, false)
	} else {
		a, err := types.ParseAction(p.Action)
		if err != nil {
			return err
		}
		action = a
	}

	reward, terminal, err := c.episode.Apply(action)
	if err != nil {
		return err
	}
	c.agent.Learn(key, action, reward, c.episode.Key(), terminal)

	state := c.episode.State()
	c.emit(types.EventStepResult, types.StepResultData{
		Action:      action,
		Reward:      reward,
		TotalReward: state.TotalReward,
		Terminal:    terminal,
		State:       state,
		AgentStats:  c.agent.Stats(),
	})
	return nil
}

func (c *Controller) startTraining(data json.RawMessage) error {
	var p types.StartTrainingPayload
	if err := decode(types.CommandStartTraining, data, &p); err != nil {
		return err
	}
	if p.Speed == 0 {
		p.Speed = int(types.Speed1x)
	}
	speed, err := types.ParseSpeed(p.Speed)
	if err != nil {
		return err
	}
	return c.scheduler.Start(c.ctx, p.Episodes, speed, p.MaxSteps)
}

// stopTraining only requests the stop, training_stopped follows once the loop exits
func (c *Controller) stopTraining() error {
	if !c.scheduler.Stop() {
		return types.NewStateError("training is already stopping")
	}
	return nil
}

func (c *Controller) setSpeed(data json.RawMessage) error {
	var p types.SetSpeedPayload
	if err := decode(types.CommandSetSpeed, data, &p); err != nil {
		return err
	}
	speed, err := types.ParseSpeed(p.Speed)
	if err != nil {
		return err
	}
	if err := c.scheduler.SetSpeed(speed); err != nil {
		return err
	}
	c.emit(types.EventSpeedChanged, types.SpeedChangedData{
		Speed:   speed,
		Message: fmt.Sprintf("Speed set to %dx", speed),
	})
	return nil
}

func (c *Controller) reset(data json.RawMessage) error {
	var p types.ResetPayload
	if err := decode(types.CommandReset, data, &p); err != nil {
		return err
	}
	state := c.episode.Reset()
	message := "Environment reset"
	if p.ResetAgent {
		c.agent.Clear()
		c.scheduler.ClearHistory()
		message = "Environment and agent reset"
	}
	c.emit(types.EventResetSuccess, types.ResetSuccessData{
		State:         state,
		AgentStats:    c.agent.Stats(),
		TrainingStats: c.scheduler.Stats(),
		Message:       message,
	})
	return nil
}

func (c *Controller) currentState() error {
	c.emit(types.EventCurrentState, types.CurrentStateData{
		State:         c.episode.State(),
		Config:        c.episode.World().Config().Info(),
		AgentStats:    c.agent.Stats(),
		TrainingStats: c.scheduler.Stats(),
	})
	return nil
}

func (c *Controller) qValues(data json.RawMessage) error {
	var p types.QValuesQuery
	if err := decode(types.CommandGetQValues, data, &p); err != nil {
		return err
	}
	key := c.episode.Key()
	if p.State != nil {
		key = types.StateKeyFromTuple(*p.State)
	}
	c.emit(types.EventQValues, types.QValuesData{
		State:      key.Tuple(),
		Values:     c.agent.ValuesFor(key),
		BestAction: c.agent.BestAction(key),
	})
	return nil
}

func (c *Controller) fullQTable() error {
	c.emit(types.EventFullQTable, types.FullQTableData{
		QTable: c.agent.Table(),
		Size:   c.agent.TableSize(),
	})
	return nil
}

func (c *Controller) storedName(cmd string, data json.RawMessage) (string, error) {
	if c.store == nil {
		return "", types.NewStateError("no table store configured")
	}
	var p types.AgentNamePayload
	if err := decode(cmd, data, &p); err != nil {
		return "", err
	}
	if err := store.ValidateName(p.Name); err != nil {
		return "", err
	}
	return p.Name, nil
}

func (c *Controller) saveAgent(ctx context.Context, data json.RawMessage) error {
	name, err := c.storedName(types.CommandSaveAgent, data)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, name, c.agent.Snapshot()); err != nil {
		return err
	}
	c.logger.Info("agent saved", slog.String("name", name), slog.Int("states", c.agent.TableSize()))
	c.emit(types.EventAgentSaved, types.AgentStoredData{Name: name, AgentStats: c.agent.Stats()})
	return nil
}

func (c *Controller) loadAgent(ctx context.Context, data json.RawMessage) error {
	name, err := c.storedName(types.CommandLoadAgent, data)
	if err != nil {
		return err
	}
	snapshot, err := c.store.Load(ctx, name)
	if err != nil {
		return err
	}
	if err := c.agent.Restore(snapshot); err != nil {
		return err
	}
	c.logger.Info("agent loaded", slog.String("name", name), slog.Int("states", c.agent.TableSize()))
	c.emit(types.EventAgentLoaded, types.AgentStoredData{Name: name, AgentStats: c.agent.Stats()})
	return nil
}
