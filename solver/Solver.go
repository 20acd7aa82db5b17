// Package solver implements configurations of Gorgonia Solvers so that
// they can be read from configuration files.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// Config describes a Gorgonia Solver. Zero-valued hyperparameters take the
// Gorgonia defaults.
type Config struct {
	Type     Type    `mapstructure:"type" yaml:"type"`
	StepSize float64 `mapstructure:"step_size" yaml:"step_size"`

	// Clip bounds each gradient element to [-Clip, Clip]. <= 0 if no
	// clipping.
	Clip float64 `mapstructure:"clip" yaml:"clip"`

	Epsilon float64 `mapstructure:"epsilon" yaml:"epsilon"` // Smoothing factor
	Beta1   float64 `mapstructure:"beta1" yaml:"beta1"`
	Beta2   float64 `mapstructure:"beta2" yaml:"beta2"`
	Rho     float64 `mapstructure:"rho" yaml:"rho"`
}

// NewDefaultAdam returns the configuration of an Adam solver with default
// moment hyperparameters
func NewDefaultAdam(stepSize, clip float64) Config {
	return Config{
		Type:     Adam,
		StepSize: stepSize,
		Clip:     clip,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
	}
}

// Create returns a new Gorgonia Solver as described by the Config
func (c Config) Create() (G.Solver, error) {
	if c.StepSize <= 0 {
		return nil, fmt.Errorf("create: step size must be positive, got %v",
			c.StepSize)
	}

	opts := []G.SolverOpt{G.WithLearnRate(c.StepSize)}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}

	switch c.Type {
	case Adam, "":
		if c.Epsilon > 0 {
			opts = append(opts, G.WithEps(c.Epsilon))
		}
		if c.Beta1 > 0 {
			opts = append(opts, G.WithBeta1(c.Beta1))
		}
		if c.Beta2 > 0 {
			opts = append(opts, G.WithBeta2(c.Beta2))
		}
		return G.NewAdamSolver(opts...), nil

	case RMSProp:
		if c.Epsilon > 0 {
			opts = append(opts, G.WithEps(c.Epsilon))
		}
		if c.Rho > 0 {
			opts = append(opts, G.WithRho(c.Rho))
		}
		return G.NewRMSPropSolver(opts...), nil

	case Vanilla:
		return G.NewVanillaSolver(opts...), nil
	}
	return nil, fmt.Errorf("create: unknown solver type %q", c.Type)
}
