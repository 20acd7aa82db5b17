package deepq

import (
	"fmt"

	"github.com/coolport/thesis/initwfn"
	"github.com/coolport/thesis/solver"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	// Sizes of the shared hidden layers
	HiddenSizes []int `mapstructure:"hidden_sizes" yaml:"hidden_sizes"`

	// Size of the hidden layer of each dueling stream. Unused by the
	// value network.
	StreamSize int `mapstructure:"stream_size" yaml:"stream_size"`

	Init   initwfn.Config `mapstructure:"init" yaml:"init"`
	Solver solver.Config  `mapstructure:"solver" yaml:"solver"`

	Discount float64 `mapstructure:"discount" yaml:"discount"`

	// Tau is the Polyak averaging constant of target network updates
	Tau float64 `mapstructure:"tau" yaml:"tau"`

	// Experience replay parameters
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
	Capacity  int `mapstructure:"capacity" yaml:"capacity"`

	// Epsilon is the initial exploration rate of the behaviour policy
	Epsilon float64 `mapstructure:"epsilon" yaml:"epsilon"`
	Seed    uint64  `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns the default configuration of the network agents
func DefaultConfig() Config {
	return Config{
		HiddenSizes: []int{128, 128},
		StreamSize:  128,
		Init:        initwfn.Config{Type: initwfn.GlorotU, Gain: 1},
		Solver:      solver.NewDefaultAdam(1e-4, 100),
		Discount:    0.99,
		Tau:         0.005,
		BatchSize:   128,
		Capacity:    10000,
		Epsilon:     0.9,
	}
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1], got %v", c.Discount)
	}
	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("tau must be in (0, 1], got %v", c.Tau)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %v", c.BatchSize)
	}
	if c.Capacity < c.BatchSize {
		return fmt.Errorf("replay capacity %v smaller than batch size %v",
			c.Capacity, c.BatchSize)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0, 1], got %v", c.Epsilon)
	}
	return nil
}
