package training

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/taxi-rl/policies"
	"github.com/zeu5/taxi-rl/taxi"
	"github.com/zeu5/taxi-rl/types"
)

type recorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *recorder) Emit(e types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

func (r *recorder) Count(name string) int {
	count := 0
	for _, n := range r.Names() {
		if n == name {
			count++
		}
	}
	return count
}

func (r *recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Event{}, r.events...)
}

func newScheduler(t *testing.T, delay time.Duration, opts ...Option) (*Scheduler, *sync.Mutex, *recorder) {
	t.Helper()
	world, err := taxi.NewWorld(types.GridConfig{GridSize: 3})
	require.NoError(t, err)
	agent, err := policies.NewQLearning(policies.DefaultParams(), 11)
	require.NoError(t, err)

	lock := new(sync.Mutex)
	rec := &recorder{}
	delays := map[types.Speed]time.Duration{
		types.Speed1x:   delay,
		types.Speed10x:  delay,
		types.Speed100x: delay,
	}
	opts = append([]Option{WithDelays(delays), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewScheduler(lock, taxi.NewEpisode(world), agent, rec, opts...), lock, rec
}

func waitDone(t *testing.T, s *Scheduler) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("training loop did not exit")
	}
}

func start(t *testing.T, s *Scheduler, lock sync.Locker, episodes int, maxSteps int) {
	t.Helper()
	lock.Lock()
	defer lock.Unlock()
	require.NoError(t, s.Start(context.Background(), episodes, types.Speed100x, maxSteps))
}

func TestSchedulerCompletesRequestedEpisodes(t *testing.T) {
	s, lock, rec := newScheduler(t, 0)
	start(t, s, lock, 5, 200)
	waitDone(t, s)

	names := rec.Names()
	require.NotEmpty(t, names)
	assert.Equal(t, types.EventTrainingStarted, names[0])
	assert.Equal(t, types.EventTrainingComplete, names[len(names)-1])
	assert.Equal(t, types.EventEpisodeComplete, names[len(names)-2])
	assert.Equal(t, 5, rec.Count(types.EventEpisodeComplete))
	assert.Equal(t, 5, rec.Count(types.EventEpisodeStart))
	assert.Zero(t, rec.Count(types.EventTrainingStopped))

	lock.Lock()
	defer lock.Unlock()
	assert.False(t, s.Running())
	stats := s.Stats()
	assert.Equal(t, 5, stats.EpisodesCompleted)
	assert.Equal(t, 5, stats.CurrentEpisode)
	assert.False(t, stats.IsTraining)
	assert.Len(t, stats.Last10Rewards, 5)
}

func TestSchedulerEpisodeNumbering(t *testing.T) {
	s, lock, rec := newScheduler(t, 0)
	start(t, s, lock, 3, 50)
	waitDone(t, s)

	episode := 0
	for _, e := range rec.Events() {
		switch data := e.Data.(type) {
		case types.EpisodeStartData:
			episode += 1
			assert.Equal(t, episode, data.Episode)
			assert.Zero(t, data.State.Steps)
		case types.StepUpdateData:
			assert.Equal(t, episode, data.Episode)
			assert.Equal(t, data.State.Key().Tuple(), data.NextKey)
		case types.EpisodeCompleteData:
			assert.Equal(t, episode, data.Episode)
		}
	}
	assert.Equal(t, 3, episode)
}

func TestSchedulerTruncatesLongEpisodes(t *testing.T) {
	// a 3x3 round trip needs at least 8 steps
	s, lock, rec := newScheduler(t, 0)
	start(t, s, lock, 4, 3)
	waitDone(t, s)

	for _, e := range rec.Events() {
		if data, ok := e.Data.(types.EpisodeCompleteData); ok {
			assert.Equal(t, 3, data.Steps)
			assert.False(t, data.Success)
		}
	}
	assert.Equal(t, 4, rec.Count(types.EventEpisodeComplete))
	assert.Equal(t, 12, rec.Count(types.EventStepUpdate))
}

func TestSchedulerDefaultMaxSteps(t *testing.T) {
	s, lock, rec := newScheduler(t, 0, WithMaxSteps(2))
	start(t, s, lock, 2, 0)
	waitDone(t, s)
	assert.Equal(t, 4, rec.Count(types.EventStepUpdate))
}

func TestSchedulerStop(t *testing.T) {
	s, lock, rec := newScheduler(t, time.Millisecond)
	start(t, s, lock, 0, 0)

	require.Eventually(t, func() bool {
		return rec.Count(types.EventStepUpdate) >= 3
	}, 5*time.Second, time.Millisecond)

	lock.Lock()
	assert.True(t, s.Stop())
	assert.False(t, s.Stop())
	lock.Unlock()
	waitDone(t, s)

	names := rec.Names()
	assert.Equal(t, types.EventTrainingStopped, names[len(names)-1])
	assert.Contains(t, []string{types.EventStepUpdate, types.EventEpisodeComplete}, names[len(names)-2])
	assert.Equal(t, 1, rec.Count(types.EventTrainingStopped))
	assert.Zero(t, rec.Count(types.EventTrainingComplete))

	lock.Lock()
	defer lock.Unlock()
	assert.False(t, s.Running())
	assert.False(t, s.Stop())
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	s, lock, rec := newScheduler(t, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	lock.Lock()
	require.NoError(t, s.Start(ctx, 0, types.Speed1x, 0))
	lock.Unlock()

	cancel()
	waitDone(t, s)
	names := rec.Names()
	assert.Equal(t, types.EventTrainingStopped, names[len(names)-1])
}

func TestSchedulerStartErrors(t *testing.T) {
	s, lock, _ := newScheduler(t, time.Millisecond)
	lock.Lock()
	defer lock.Unlock()

	var cfgErr *types.ConfigError
	assert.True(t, errors.As(s.Start(context.Background(), -1, types.Speed1x, 0), &cfgErr))
	assert.True(t, errors.As(s.Start(context.Background(), 1, types.Speed(3), 0), &cfgErr))
	assert.True(t, errors.As(s.Start(context.Background(), 1, types.Speed1x, -2), &cfgErr))
	assert.False(t, s.Running())

	require.NoError(t, s.Start(context.Background(), 0, types.Speed1x, 0))
	var stateErr *types.StateError
	assert.True(t, errors.As(s.Start(context.Background(), 0, types.Speed1x, 0), &stateErr))

	require.NoError(t, s.SetSpeed(types.Speed10x))
	assert.Equal(t, types.Speed10x, s.Stats().Speed)
	assert.Error(t, s.SetSpeed(types.Speed(2)))

	s.Stop()
	lock.Unlock()
	waitDone(t, s)
	lock.Lock()
}

func TestPlotLearningCurve(t *testing.T) {
	assert.ErrorIs(t, PlotLearningCurve(filepath.Join(t.TempDir(), "empty.png"), nil), ErrNoRecords)

	records := []EpisodeRecord{
		{Episode: 1, Reward: -30, Steps: 40},
		{Episode: 2, Reward: -12, Steps: 22},
		{Episode: 3, Reward: 2, Steps: 9, Success: true},
	}
	path := filepath.Join(t.TempDir(), "curve.png")
	require.NoError(t, PlotLearningCurve(path, records))
	assert.FileExists(t, path)
}

func TestStopInterruptsPause(t *testing.T) {
	s, lock, rec := newScheduler(t, 0, WithDelays(types.DefaultDelays))
	lock.Lock()
	require.NoError(t, s.Start(context.Background(), 0, types.Speed1x, 0))
	lock.Unlock()

	require.Eventually(t, func() bool {
		return rec.Count(types.EventStepUpdate) == 1
	}, 2*time.Second, time.Millisecond)

	stopped := time.Now()
	lock.Lock()
	require.True(t, s.Stop())
	lock.Unlock()
	select {
	case <-s.Done():
	case <-time.After(types.DefaultDelays[types.Speed1x]):
		t.Fatal("stop waited for the pause to elapse")
	}
	assert.Less(t, time.Since(stopped), 200*time.Millisecond)

	assert.Equal(t, 1, rec.Count(types.EventStepUpdate))
	names := rec.Names()
	assert.Equal(t, types.EventTrainingStopped, names[len(names)-1])
}

func TestSetSpeedAppliesFromNextPause(t *testing.T) {
	s, lock, rec := newScheduler(t, 0, WithDelays(types.DefaultDelays))
	lock.Lock()
	require.NoError(t, s.Start(context.Background(), 0, types.Speed1x, 0))
	lock.Unlock()

	require.Eventually(t, func() bool {
		return rec.Count(types.EventStepUpdate) == 1
	}, 2*time.Second, time.Millisecond)
	lock.Lock()
	require.NoError(t, s.SetSpeed(types.Speed100x))
	lock.Unlock()

	// the pause already in progress keeps the 1x delay
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.Count(types.EventStepUpdate))

	time.Sleep(600 * time.Millisecond)
	assert.GreaterOrEqual(t, rec.Count(types.EventStepUpdate), 10)

	lock.Lock()
	assert.Equal(t, types.Speed100x, s.Stats().Speed)
	s.Stop()
	lock.Unlock()
	waitDone(t, s)
}

func TestClearHistory(t *testing.T) {
	s, lock, _ := newScheduler(t, 0)
	start(t, s, lock, 2, 10)
	waitDone(t, s)

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, 2, s.Stats().TotalEpisodes)
	assert.Positive(t, s.AverageSteps())
	assert.LessOrEqual(t, s.AverageSteps(), 10.0)
	assert.NotZero(t, s.AverageReward())

	s.ClearHistory()
	stats := s.Stats()
	assert.Zero(t, stats.TotalEpisodes)
	assert.Zero(t, stats.CurrentEpisode)
	assert.Zero(t, stats.EpisodesCompleted)
	assert.Zero(t, s.AverageReward())
	assert.Empty(t, stats.Last10Steps)
}
