// Package fixedtime implements a non-learning baseline that never
// switches the signal itself, leaving the simulator's programmed cycle in
// control.
package fixedtime

import (
	"github.com/coolport/thesis/timestep"
)

// FixedTime always selects Stay. It has nothing to learn, save or load.
type FixedTime struct {
	eval bool
}

// New returns a new FixedTime agent
func New() *FixedTime {
	return &FixedTime{}
}

// SelectAction always returns Stay
func (f *FixedTime) SelectAction(timestep.TimeStep) timestep.Action {
	return timestep.Stay
}

// Observe discards the transition
func (f *FixedTime) Observe(timestep.Transition) error { return nil }

// Step is a no-op
func (f *FixedTime) Step() error { return nil }

// Save is a no-op
func (f *FixedTime) Save(string) error { return nil }

// Load is a no-op
func (f *FixedTime) Load(string) error { return nil }

// Eval sets the agent to evaluation mode
func (f *FixedTime) Eval() { f.eval = true }

// Train sets the agent to training mode
func (f *FixedTime) Train() { f.eval = false }

// IsEval returns whether the agent is in evaluation mode
func (f *FixedTime) IsEval() bool { return f.eval }
