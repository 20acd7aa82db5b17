// Package agent defines the agent interface shared by every signal
// controller and a factory that creates agents by type
package agent

import (
	"github.com/coolport/thesis/timestep"
)

// Agent determines the implementation details of a controller
//
// An Agent selects an action at each decision step, observes the
// transitions its actions produce and learns from them in Step. Learning
// agents defer their updates until they have enough experience, so Step
// may be a no-op.
type Agent interface {
	Learner
	Policy

	// Save writes the agent's learned parameters to path
	Save(path string) error

	// Load replaces the agent's learned parameters with those at path
	Load(path string) error
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Observe records a transition produced by the agent's action
	Observe(t timestep.Transition) error

	// Step performs a single update to the learner
	Step() error
}

// Policy determines how agents select actions. In evaluation mode a
// Policy acts greedily and deterministically.
type Policy interface {
	SelectAction(t timestep.TimeStep) timestep.Action
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// EGreedy is an Agent with an ε-greedy behaviour policy whose ε can be
// set and retrieved, so that exploration can be scheduled externally
type EGreedy interface {
	Agent
	SetEpsilon(float64)
	Epsilon() float64
}

// A Closer is an agent that must be closed after it is done learning
type Closer interface {
	Agent
	Close() error
}
