package agent

import (
	"fmt"

	"github.com/coolport/thesis/agent/deepq"
	"github.com/coolport/thesis/agent/fixedtime"
	"github.com/coolport/thesis/agent/qlearning"
)

// Config represents a configuration for creating an agent of any Type
type Config struct {
	// Size of the state vector and number of discrete actions
	Features int `mapstructure:"-" yaml:"-"`
	Actions  int `mapstructure:"-" yaml:"-"`

	Tabular qlearning.Config `mapstructure:"tabular" yaml:"tabular"`
	Network deepq.Config     `mapstructure:"network" yaml:"network"`
}

// DefaultConfig returns the default configuration of every agent type
func DefaultConfig(features, actions int) Config {
	return Config{
		Features: features,
		Actions:  actions,
		Tabular:  qlearning.DefaultConfig(),
		Network:  deepq.DefaultConfig(),
	}
}

// New creates a new agent of type t
func New(t Type, c Config) (Agent, error) {
	if c.Actions < 1 || (t.Learns() && c.Features < 1) {
		return nil, fmt.Errorf("new: invalid state size (%v) or number of "+
			"actions (%v)", c.Features, c.Actions)
	}

	var (
		a   Agent
		err error
	)
	switch t {
	case Tabular:
		a, err = newTabular(c)

	case ValueNetwork:
		a, err = newNetwork(c, false)

	case DuelingNetwork:
		a, err = newNetwork(c, true)

	case FixedTime:
		a = fixedtime.New()

	default:
		err = &InvalidTypeError{Name: string(t)}
	}

	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return a, nil
}

func newTabular(c Config) (Agent, error) {
	q, err := qlearning.New(c.Actions, c.Tabular)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func newNetwork(c Config, dueling bool) (Agent, error) {
	var (
		d   *deepq.DeepQ
		err error
	)
	if dueling {
		d, err = deepq.NewDueling(c.Features, c.Actions, c.Network)
	} else {
		d, err = deepq.New(c.Features, c.Actions, c.Network)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
