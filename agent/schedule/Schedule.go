// Package schedule implements exploration schedules driven by an explicit
// count of actions taken
package schedule

import (
	"fmt"
	"math"
)

// Schedule returns the exploration rate after a number of actions
type Schedule interface {
	At(steps int) float64
}

// Exponential decays from Start towards End with time constant Decay:
//
//	ε(steps) = End + (Start - End) · exp(-steps / Decay)
type Exponential struct {
	Start float64 `mapstructure:"start" yaml:"start"`
	End   float64 `mapstructure:"end" yaml:"end"`
	Decay float64 `mapstructure:"decay" yaml:"decay"`
}

// At returns the exploration rate after steps actions
func (e Exponential) At(steps int) float64 {
	return e.End + (e.Start-e.End)*math.Exp(-float64(steps)/e.Decay)
}

// Validate checks that the schedule describes probabilities
func (e Exponential) Validate() error {
	if e.Decay <= 0 {
		return fmt.Errorf("validate: decay must be positive, got %v", e.Decay)
	}
	if e.Start < 0 || e.Start > 1 || e.End < 0 || e.End > 1 {
		return fmt.Errorf("validate: start (%v) and end (%v) must be in [0, 1]",
			e.Start, e.End)
	}
	return nil
}

// Constant is a fixed exploration rate
type Constant float64

// At returns the constant exploration rate
func (c Constant) At(int) float64 {
	return float64(c)
}
