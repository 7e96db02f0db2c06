package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/zeu5/taxi-rl/taxi"
	"github.com/zeu5/taxi-rl/training"
	"github.com/zeu5/taxi-rl/types"
	"github.com/zeu5/taxi-rl/util"
)

// progress follows the events of a headless session. It keeps every completed
// episode, counts the visited cells and optionally writes each episode trace as
// a JSON line.
type progress struct {
	out       io.Writer
	total     int
	tracePath string

	records  []training.EpisodeRecord
	visits   *taxi.VisitDataSet
	trace    *types.Trace
	traceErr error
	stopped  bool

	done     chan struct{}
	doneOnce *sync.Once
}

func newProgress(out io.Writer, gridSize, total int, tracePath string) *progress {
	return &progress{
		out:       out,
		total:     total,
		tracePath: tracePath,
		visits:    taxi.NewVisitDataSet(gridSize),
		done:      make(chan struct{}),
		doneOnce:  new(sync.Once),
	}
}

func (p *progress) Emit(e types.Event) {
	switch data := e.Data.(type) {
	case types.EpisodeStartData:
		p.trace = types.NewTrace(data.Episode)
	case types.StepUpdateData:
		if p.trace != nil {
			p.trace.Append(
				data.Step,
				types.StateKeyFromTuple(data.StateKey),
				data.Action,
				data.Reward,
				types.StateKeyFromTuple(data.NextKey),
				data.Terminal,
			)
		}
	case types.EpisodeCompleteData:
		p.episodeComplete(data)
	case types.TrainingCompleteData:
		p.finish()
	case types.TrainingStoppedData:
		p.stopped = true
		p.finish()
	}
}

func (p *progress) episodeComplete(data types.EpisodeCompleteData) {
	p.records = append(p.records, training.EpisodeRecord{
		Episode: data.Episode,
		Reward:  data.TotalReward,
		Steps:   data.Steps,
		Success: data.Success,
	})
	if p.trace != nil {
		p.visits.Analyze(p.trace)
		if p.tracePath != "" {
			p.writeTrace()
		}
		p.trace = nil
	}
	fmt.Fprintf(p.out, "Episode %d/%d: reward %.1f, steps %d | avg reward %.2f, avg steps %.1f, states %d\n",
		data.Episode, p.total, data.TotalReward, data.Steps,
		data.TrainingStats.AverageReward, data.TrainingStats.AverageSteps, data.AgentStats.QTableSize)
}

// writeTrace appends the trace as a JSON line. After the first failure no more
// traces are written and the error is kept for Err.
func (p *progress) writeTrace() {
	if p.traceErr != nil {
		return
	}
	bs, err := json.Marshal(p.trace)
	if err == nil {
		err = util.AppendToFile(p.tracePath, string(bs))
	}
	if err != nil {
		p.traceErr = fmt.Errorf("writing trace of episode %d: %w", p.trace.Episode, err)
	}
}

// Err is the first trace write failure, read it once Done is closed
func (p *progress) Err() error {
	return p.traceErr
}

func (p *progress) finish() {
	p.doneOnce.Do(func() { close(p.done) })
}

// Done is closed once the training run exited
func (p *progress) Done() <-chan struct{} {
	return p.done
}

func (p *progress) successes() int {
	count := 0
	for _, r := range p.records {
		if r.Success {
			count++
		}
	}
	return count
}
