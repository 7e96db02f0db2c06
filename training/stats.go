package training

import (
	"gonum.org/v1/gonum/stat"
)

// HistoryWindow is the number of completed episodes kept for the averages
const HistoryWindow = 100

// DisplayWindow is the number of recent episodes reported for display
const DisplayWindow = 10

// EpisodeRecord summarizes a completed episode
type EpisodeRecord struct {
	Episode int
	Reward  float64
	Steps   int
	Success bool
}

// Stats keeps the bounded history of completed episodes.
// Oldest records are evicted first once the window is full.
type Stats struct {
	records   []EpisodeRecord
	window    int
	completed int
}

func NewStats() *Stats {
	return &Stats{
		records: make([]EpisodeRecord, 0, HistoryWindow),
		window:  HistoryWindow,
	}
}

func (s *Stats) Add(r EpisodeRecord) {
	if len(s.records) == s.window {
		copy(s.records, s.records[1:])
		s.records = s.records[:len(s.records)-1]
	}
	s.records = append(s.records, r)
	s.completed += 1
}

// Len is the number of records currently in the window
func (s *Stats) Len() int {
	return len(s.records)
}

// Completed is the number of episodes recorded since the last clear
func (s *Stats) Completed() int {
	return s.completed
}

func (s *Stats) Clear() {
	s.records = s.records[:0]
	s.completed = 0
}

func (s *Stats) rewards(from int) []float64 {
	out := make([]float64, 0, len(s.records)-from)
	for _, r := range s.records[from:] {
		out = append(out, r.Reward)
	}
	return out
}

func (s *Stats) steps(from int) []float64 {
	out := make([]float64, 0, len(s.records)-from)
	for _, r := range s.records[from:] {
		out = append(out, float64(r.Steps))
	}
	return out
}

// AverageReward over the window, 0 when nothing completed
func (s *Stats) AverageReward() float64 {
	if len(s.records) == 0 {
		return 0
	}
	return stat.Mean(s.rewards(0), nil)
}

// AverageSteps over the window, 0 when nothing completed
func (s *Stats) AverageSteps() float64 {
	if len(s.records) == 0 {
		return 0
	}
	return stat.Mean(s.steps(0), nil)
}

func (s *Stats) lastFrom(n int) int {
	if len(s.records) < n {
		return 0
	}
	return len(s.records) - n
}

// LastRewards of the most recent n episodes, oldest first
func (s *Stats) LastRewards(n int) []float64 {
	return s.rewards(s.lastFrom(n))
}

// LastSteps of the most recent n episodes, oldest first
func (s *Stats) LastSteps(n int) []int {
	out := make([]int, 0, n)
	for _, r := range s.records[s.lastFrom(n):] {
		out = append(out, r.Steps)
	}
	return out
}

// Records returns a copy of the window
func (s *Stats) Records() []EpisodeRecord {
	return append([]EpisodeRecord{}, s.records...)
}
