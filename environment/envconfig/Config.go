// Package envconfig provides the configuration struct of the simulated
// intersection, with default physical parameters matching the reference
// network. Configurations are serializable with both mapstructure and YAML
// tags.
package envconfig

import (
	"errors"
	"fmt"
	"time"

	"github.com/coolport/thesis/environment/demand"
)

// Layout of the state vector
const (
	NumLanes      = 12
	NumDirections = 4
	Features      = NumLanes + NumDirections + 1
)

// Config is an explicit configuration of the simulator and of the state
// normalization
type Config struct {
	// SumoConfig is the path to the simulator's .sumocfg file
	SumoConfig string `mapstructure:"sumo_config" yaml:"sumo_config"`

	// DemandCurves maps a direction (N, S, E, W) to its curve file
	DemandCurves map[string]string `mapstructure:"demand_curves" yaml:"demand_curves"`

	GUI bool `mapstructure:"gui" yaml:"gui"`

	// Binary overrides the simulator binary. If empty, sumo or sumo-gui
	// is used, resolved under $SUMO_HOME/bin when set.
	Binary string `mapstructure:"binary" yaml:"binary"`
	Port   int    `mapstructure:"port" yaml:"port"`
	Seed   int    `mapstructure:"seed" yaml:"seed"`

	ConnectAttempts int           `mapstructure:"connect_attempts" yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `mapstructure:"connect_backoff" yaml:"connect_backoff"`

	// MacroStep is the number of simulated seconds per decision step
	MacroStep int `mapstructure:"macro_step" yaml:"macro_step"`

	// StepCeiling is the number of simulated seconds after which an
	// episode is done
	StepCeiling int `mapstructure:"step_ceiling" yaml:"step_ceiling"`

	MaxQueue  float64 `mapstructure:"max_queue" yaml:"max_queue"`
	MaxDemand float64 `mapstructure:"max_demand" yaml:"max_demand"`
	NumPhases int     `mapstructure:"num_phases" yaml:"num_phases"`

	TrafficLight string   `mapstructure:"traffic_light" yaml:"traffic_light"`
	Lanes        []string `mapstructure:"lanes" yaml:"lanes"`
	Detectors    []string `mapstructure:"detectors" yaml:"detectors"`
}

// Default returns the configuration of the reference intersection
func Default() Config {
	var lanes []string
	for _, d := range demand.Directions {
		for i := 0; i < NumLanes/NumDirections; i++ {
			lanes = append(lanes, fmt.Sprintf("%v_to_center_%d", d, i))
		}
	}

	return Config{
		SumoConfig:      "simulation/intersection.sumocfg",
		DemandCurves:    map[string]string{},
		Port:            8813,
		ConnectAttempts: 10,
		ConnectBackoff:  time.Second,
		MacroStep:       5,
		StepCeiling:     500,
		MaxQueue:        50,
		MaxDemand:       4000,
		NumPhases:       4,
		TrafficLight:    "center",
		Lanes:           lanes,
		Detectors:       []string{"det_N", "det_S", "det_E", "det_W"},
	}
}

// Validate checks the configuration, returning a *ConfigurationError
// describing the first problem found
func (c Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return &ConfigurationError{
			Op:  "validate",
			Err: fmt.Errorf(format, args...),
		}
	}

	switch {
	case c.SumoConfig == "":
		return invalid("sumo config path is empty")
	case c.Port <= 0 || c.Port > 65535:
		return invalid("port %d out of range", c.Port)
	case c.ConnectAttempts < 1:
		return invalid("connect attempts must be positive, got %d",
			c.ConnectAttempts)
	case c.ConnectBackoff < 0:
		return invalid("connect backoff must be non-negative")
	case c.MacroStep < 1:
		return invalid("macro step must be positive, got %d", c.MacroStep)
	case c.StepCeiling < c.MacroStep:
		return invalid("step ceiling %d smaller than macro step %d",
			c.StepCeiling, c.MacroStep)
	case c.MaxQueue <= 0 || c.MaxDemand <= 0:
		return invalid("normalization constants must be positive")
	case c.NumPhases < 2:
		return invalid("at least 2 phases are needed, got %d", c.NumPhases)
	case c.TrafficLight == "":
		return invalid("traffic light id is empty")
	case len(c.Lanes) != NumLanes:
		return invalid("expected %d lanes, got %d", NumLanes, len(c.Lanes))
	}

	for dir := range c.DemandCurves {
		if !knownDirection(dir) {
			return invalid("unknown demand curve direction %q", dir)
		}
	}
	return nil
}

// Curves loads the configured demand curves. Directions without a curve
// file have zero forecast demand.
func (c Config) Curves() (*demand.Curves, error) {
	paths := make(map[demand.Direction]string, len(c.DemandCurves))
	for dir, path := range c.DemandCurves {
		if !knownDirection(dir) {
			return nil, &ConfigurationError{
				Op:  "curves",
				Err: fmt.Errorf("unknown direction %q", dir),
			}
		}
		paths[demand.Direction(dir)] = path
	}

	curves, err := demand.Load(paths)
	if err != nil {
		return nil, &ConfigurationError{Op: "curves", Err: err}
	}
	return curves, nil
}

func knownDirection(dir string) bool {
	for _, d := range demand.Directions {
		if string(d) == dir {
			return true
		}
	}
	return false
}

// ConfigurationError is returned when a configuration, demand curve, or
// model file is missing or malformed. It is raised before any episode
// starts.
type ConfigurationError struct {
	Op  string
	Err error
}

func (c *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: configuration error: %v", c.Op, c.Err)
}

func (c *ConfigurationError) Unwrap() error {
	return c.Err
}

// IsConfigurationError returns whether err was caused by bad configuration
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
