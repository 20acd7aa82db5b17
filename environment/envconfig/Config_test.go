package envconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if len(c.Lanes) != NumLanes {
		t.Errorf("expected %d lanes, received %d", NumLanes, len(c.Lanes))
	}
	if c.Lanes[0] != "N_to_center_0" || c.Lanes[11] != "W_to_center_2" {
		t.Errorf("unexpected lane order: %v", c.Lanes)
	}
}

func TestValidate(t *testing.T) {
	mutations := map[string]func(*Config){
		"no config":    func(c *Config) { c.SumoConfig = "" },
		"bad port":     func(c *Config) { c.Port = 0 },
		"no attempts":  func(c *Config) { c.ConnectAttempts = 0 },
		"macro step":   func(c *Config) { c.MacroStep = 0 },
		"ceiling":      func(c *Config) { c.StepCeiling = 1 },
		"max queue":    func(c *Config) { c.MaxQueue = 0 },
		"phases":       func(c *Config) { c.NumPhases = 1 },
		"lanes":        func(c *Config) { c.Lanes = c.Lanes[:3] },
		"no tls":       func(c *Config) { c.TrafficLight = "" },
		"bad curve id": func(c *Config) { c.DemandCurves = map[string]string{"Q": "x"} },
	}

	for name, mutate := range mutations {
		c := Default()
		mutate(&c)
		if err := c.Validate(); !IsConfigurationError(err) {
			t.Errorf("%v: expected ConfigurationError, received %v", name, err)
		}
	}
}

func TestCurves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "n.json")
	data := `[{"time": "00:00:00", "expected_demand": 800}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c := Default()
	c.DemandCurves = map[string]string{"N": path}
	curves, err := c.Curves()
	if err != nil {
		t.Fatalf("Curves: %v", err)
	}
	if got := curves.Lookup("N", 10); got != 800 {
		t.Errorf("expected 800, received %v", got)
	}

	c.DemandCurves = map[string]string{"S": filepath.Join(dir, "missing.json")}
	_, err = c.Curves()
	if !IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, received %v", err)
	}

	wrapped := fmt.Errorf("setup: %w", err)
	if !IsConfigurationError(wrapped) {
		t.Errorf("wrapped ConfigurationError not detected")
	}
}
