// Package tracker implements per-episode metric accumulation and the
// append-only results logs written by evaluation runs
package tracker

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/coolport/thesis/environment"
	ts "github.com/coolport/thesis/timestep"
)

// Tracker keeps track of experiment data one decision step at a time
type Tracker interface {
	Track(t ts.TimeStep, info environment.Info)
}

// EpisodeMetrics summarizes one episode
type EpisodeMetrics struct {
	Episode int
	Steps   int
	Return  float64

	// TotalWaitTime is the negated return, the waiting time summed over
	// every decision step
	TotalWaitTime  float64
	AvgWaitTime    float64
	AvgQueueLength float64

	// TotalThroughput is the number of vehicles counted by the detectors
	TotalThroughput int
}

func (e EpisodeMetrics) String() string {
	return fmt.Sprintf("Episode %d | Steps: %d  |  Return: %.2f  |  "+
		"Avg wait: %.2f  |  Avg queue: %.2f  |  Throughput: %d", e.Episode,
		e.Steps, e.Return, e.AvgWaitTime, e.AvgQueueLength, e.TotalThroughput)
}

// Episode accumulates the metrics of a single episode. The First step of
// an episode carries no reward and should not be tracked.
type Episode struct {
	number     int
	waits      []float64
	queues     []float64
	throughput int
	ret        float64
}

// NewEpisode returns a new Episode tracker for episode number n
func NewEpisode(n int) *Episode {
	return &Episode{number: n}
}

// Track records the reward and raw telemetry of a decision step
func (e *Episode) Track(t ts.TimeStep, info environment.Info) {
	e.ret += t.Reward
	e.waits = append(e.waits, -t.Reward)
	e.queues = append(e.queues, float64(info.QueueLength))
	e.throughput += info.Throughput
}

// Steps returns the number of tracked decision steps
func (e *Episode) Steps() int {
	return len(e.waits)
}

// Metrics returns the summary of the steps tracked so far. Averages of an
// empty episode are zero.
func (e *Episode) Metrics() EpisodeMetrics {
	m := EpisodeMetrics{
		Episode:         e.number,
		Steps:           len(e.waits),
		Return:          e.ret,
		TotalWaitTime:   -e.ret,
		TotalThroughput: e.throughput,
	}
	if m.Steps > 0 {
		m.AvgWaitTime = stat.Mean(e.waits, nil)
		m.AvgQueueLength = stat.Mean(e.queues, nil)
	}
	return m
}
