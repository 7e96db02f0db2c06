package training

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zeu5/taxi-rl/policies"
	"github.com/zeu5/taxi-rl/taxi"
	"github.com/zeu5/taxi-rl/types"
)

// Emitter delivers events to the client of a session
type Emitter interface {
	Emit(types.Event)
}

type Option func(*Scheduler)

// WithDelays overrides the pause between steps for each speed
func WithDelays(delays map[types.Speed]time.Duration) Option {
	return func(s *Scheduler) {
		for speed, d := range delays {
			s.delays[speed] = d
		}
	}
}

// WithMaxSteps bounds the length of every episode unless a run sets its own bound.
// Zero leaves episodes unbounded.
func WithMaxSteps(maxSteps int) Option {
	return func(s *Scheduler) {
		s.defaultMaxSteps = maxSteps
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// Scheduler runs training episodes in the background.
//
// The loop and the session's command handlers share the session lock. The loop
// holds it for exactly one step (choose, apply, learn, emit) and releases it while
// pausing, so commands are only ever observed between two steps. All exported
// methods must be called with the session lock held, except Done.
type Scheduler struct {
	lock    sync.Locker
	episode *taxi.Episode
	agent   *policies.QLearning
	emitter Emitter
	stats   *Stats
	delays  map[types.Speed]time.Duration
	logger  *slog.Logger

	speed           types.Speed
	defaultMaxSteps int

	running        bool
	stopRequested  bool
	cancel         context.CancelFunc
	done           chan struct{}
	totalEpisodes  int
	maxSteps       int
	currentEpisode int
	inEpisode      bool
}

func NewScheduler(lock sync.Locker, episode *taxi.Episode, agent *policies.QLearning, emitter Emitter, opts ...Option) *Scheduler {
	s := &Scheduler{
		lock:    lock,
		episode: episode,
		agent:   agent,
		emitter: emitter,
		stats:   NewStats(),
		delays:  make(map[types.Speed]time.Duration),
		logger:  slog.Default(),
		speed:   types.Speed1x,
	}
	for speed, d := range types.DefaultDelays {
		s.delays[speed] = d
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the episode loop. totalEpisodes zero runs until stopped,
// maxSteps zero uses the scheduler default. training_started is emitted
// before the loop takes its first step.
func (s *Scheduler) Start(ctx context.Context, totalEpisodes int, speed types.Speed, maxSteps int) error {
	if s.running {
		return types.NewStateError("training already in progress")
	}
	if totalEpisodes < 0 {
		return types.NewConfigError("episodes must be zero or positive, got %d", totalEpisodes)
	}
	if maxSteps < 0 {
		return types.NewConfigError("maxSteps must be zero or positive, got %d", maxSteps)
	}
	if _, ok := s.delays[speed]; !ok {
		return types.NewConfigError("speed must be 1, 10 or 100, got %d", speed)
	}
	if maxSteps == 0 {
		maxSteps = s.defaultMaxSteps
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.stopRequested = false
	s.cancel = cancel
	s.done = make(chan struct{})
	s.totalEpisodes = totalEpisodes
	s.maxSteps = maxSteps
	s.speed = speed
	s.currentEpisode = 0
	s.inEpisode = false

	s.emitter.Emit(types.Event{
		Name: types.EventTrainingStarted,
		Data: types.TrainingStartedData{
			Message:       fmt.Sprintf("Training started at %dx speed", speed),
			TrainingStats: s.Stats(),
		},
	})
	s.logger.Info("training started", slog.Int("episodes", totalEpisodes), slog.Int("speed", int(speed)), slog.Int("max_steps", maxSteps))

	go s.run(runCtx, s.done)
	return nil
}

// Stop asks the loop to exit after its current step. It returns false if
// there is no run or a stop was already requested.
func (s *Scheduler) Stop() bool {
	if !s.running || s.stopRequested {
		return false
	}
	s.stopRequested = true
	s.cancel()
	return true
}

func (s *Scheduler) Running() bool {
	return s.running
}

// SetSpeed takes effect from the pause following the next step
func (s *Scheduler) SetSpeed(speed types.Speed) error {
	if _, ok := s.delays[speed]; !ok {
		return types.NewConfigError("speed must be 1, 10 or 100, got %d", speed)
	}
	s.speed = speed
	return nil
}

// Done is closed once the latest run has exited. It can be waited on without the session lock.
func (s *Scheduler) Done() <-chan struct{} {
	if s.done == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return s.done
}

// ClearHistory forgets all completed episodes and the target of the last run
func (s *Scheduler) ClearHistory() {
	s.stats.Clear()
	s.currentEpisode = 0
	s.totalEpisodes = 0
}

// AverageReward over the last HistoryWindow completed episodes, 0 if none
func (s *Scheduler) AverageReward() float64 {
	return s.stats.AverageReward()
}

func (s *Scheduler) AverageSteps() float64 {
	return s.stats.AverageSteps()
}

func (s *Scheduler) Stats() types.TrainingStats {
	return types.TrainingStats{
		CurrentEpisode:    s.currentEpisode,
		TotalEpisodes:     s.totalEpisodes,
		IsTraining:        s.running,
		Speed:             s.speed,
		EpisodesCompleted: s.stats.Completed(),
		AverageReward:     s.AverageReward(),
		AverageSteps:      s.AverageSteps(),
		Last10Rewards:     s.stats.LastRewards(DisplayWindow),
		Last10Steps:       s.stats.LastSteps(DisplayWindow),
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		s.lock.Lock()
		if s.stopRequested || ctx.Err() != nil {
			s.finish(false)
			s.lock.Unlock()
			return
		}
		if s.step() {
			s.finish(true)
			s.lock.Unlock()
			return
		}
		delay := s.delays[s.speed]
		s.lock.Unlock()

		pause(ctx, delay)
	}
}

// step performs one full choose, apply, learn, emit cycle and
// returns true once the requested number of episodes completed
func (s *Scheduler) step() bool {
	if !s.inEpisode {
		s.currentEpisode += 1
		s.inEpisode = true
		state := s.episode.Reset()
		s.emitter.Emit(types.Event{
			Name: types.EventEpisodeStart,
			Data: types.EpisodeStartData{Episode: s.currentEpisode, State: state},
		})
	}

	key := s.episode.Key()
	action := s.agent.ChooseAction(key, true)
	reward, terminal, _ := s.episode.Apply(action)
	nextKey := s.episode.Key()
	s.agent.Learn(key, action, reward, nextKey, terminal)

	state := s.episode.State()
	s.emitter.Emit(types.Event{
		Name: types.EventStepUpdate,
		Data: types.StepUpdateData{
			Episode:     s.currentEpisode,
			Step:        state.Steps,
			Action:      action,
			Reward:      reward,
			TotalReward: state.TotalReward,
			Terminal:    terminal,
			StateKey:    key.Tuple(),
			NextKey:     nextKey.Tuple(),
			State:       state,
			AgentStats:  s.agent.Stats(),
		},
	})

	truncated := !terminal && s.maxSteps > 0 && state.Steps >= s.maxSteps
	if !terminal && !truncated {
		return false
	}

	s.inEpisode = false
	s.stats.Add(EpisodeRecord{
		Episode: s.currentEpisode,
		Reward:  state.TotalReward,
		Steps:   state.Steps,
		Success: terminal,
	})
	s.emitter.Emit(types.Event{
		Name: types.EventEpisodeComplete,
		Data: types.EpisodeCompleteData{
			Episode:       s.currentEpisode,
			Steps:         state.Steps,
			TotalReward:   state.TotalReward,
			Success:       terminal,
			TrainingStats: s.Stats(),
			AgentStats:    s.agent.Stats(),
		},
	})
	return s.totalEpisodes > 0 && s.currentEpisode >= s.totalEpisodes
}

// finish clears the run and emits the notification matching how it ended.
// An episode interrupted by a stop is discarded.
func (s *Scheduler) finish(completed bool) {
	s.running = false
	s.inEpisode = false
	s.cancel()

	if completed {
		s.emitter.Emit(types.Event{
			Name: types.EventTrainingComplete,
			Data: types.TrainingCompleteData{
				EpisodesCompleted: s.currentEpisode,
				TrainingStats:     s.Stats(),
				AgentStats:        s.agent.Stats(),
			},
		})
		s.logger.Info("training complete", slog.Int("episodes", s.currentEpisode), slog.Float64("average_reward", s.AverageReward()))
		return
	}
	s.emitter.Emit(types.Event{
		Name: types.EventTrainingStopped,
		Data: types.TrainingStoppedData{
			Message:       "Training stopped",
			TrainingStats: s.Stats(),
			AgentStats:    s.agent.Stats(),
		},
	})
	s.logger.Info("training stopped", slog.Int("episode", s.currentEpisode))
}

// pause waits for the delay, returning early if the run is cancelled
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
