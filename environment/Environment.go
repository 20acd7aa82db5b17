// Package environment outlines the interfaces and structs shared by
// simulator-backed traffic environments
package environment

import (
	"context"
	"fmt"

	"github.com/coolport/thesis/timestep"
)

// Info carries raw, non-normalized telemetry sampled once after a decision
// step. It is kept apart from the learning state so that normalization
// constants can change without changing logged metrics.
type Info struct {
	// QueueLength is the total number of halted vehicles over all incoming
	// lanes
	QueueLength int

	// WaitingTime is the total waiting time over all incoming lanes
	WaitingTime float64

	// Throughput is the number of vehicles that passed the induction loops
	// during the last simulated tick
	Throughput int

	SimTime float64
	Phase   int
}

func (i Info) String() string {
	return fmt.Sprintf("Info | Queue: %d  |  Wait: %.2f  |  Throughput: %d  |  "+
		"Time: %.1f  |  Phase: %d", i.QueueLength, i.WaitingTime,
		i.Throughput, i.SimTime, i.Phase)
}

// Environment is a simulated intersection that an agent controls one
// decision step at a time. Calls on one Environment must be sequential.
type Environment interface {
	// Start acquires the simulator. It must be paired with Close, which
	// is safe to call even if Start fails part way.
	Start(ctx context.Context) error

	// Reset begins a new episode and returns its First step
	Reset() (timestep.TimeStep, error)

	// Step applies the action and advances the simulation by one
	// decision step
	Step(a timestep.Action) (timestep.TimeStep, Info, error)

	// Close releases the simulator. Repeated calls are no-ops.
	Close() error

	ObservationSpec() Spec
	ActionSpec() Spec
}
