// Package initwfn names Gorgonia weight initializers so that they can be
// selected from configuration files.
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
type Type string

// Available InitWFn types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	HeU     Type = "HeU"
	HeN     Type = "HeN"
	Zeroes  Type = "Zeroes"
)

// Config describes a weight initializer
type Config struct {
	Type Type    `mapstructure:"type" yaml:"type"`
	Gain float64 `mapstructure:"gain" yaml:"gain"`
}

// Create returns the Gorgonia InitWFn that the Config describes
func (c Config) Create() (G.InitWFn, error) {
	gain := c.Gain
	if gain == 0 {
		gain = 1
	}

	switch c.Type {
	case GlorotU, "":
		return G.GlorotU(gain), nil
	case GlorotN:
		return G.GlorotN(gain), nil
	case HeU:
		return G.HeU(gain), nil
	case HeN:
		return G.HeN(gain), nil
	case Zeroes:
		return G.Zeroes(), nil
	}
	return nil, fmt.Errorf("create: unknown weight initializer %q", c.Type)
}

// String implements the fmt.Stringer interface
func (c Config) String() string {
	return fmt.Sprintf("{%v InitWFn: gain %v}", c.Type, c.Gain)
}
