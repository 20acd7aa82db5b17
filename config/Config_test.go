package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coolport/thesis/environment/envconfig"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	want := envconfig.Default()
	if c.Environment.Port != want.Port || c.Environment.ConnectBackoff != time.Second ||
		len(c.Environment.Lanes) != envconfig.NumLanes {
		t.Errorf("expected the default environment, received %+v", c.Environment)
	}
	if c.Agent.Features != envconfig.Features || c.Agent.Actions != 2 {
		t.Errorf("expected 17 features and 2 actions, received %v and %v",
			c.Agent.Features, c.Agent.Actions)
	}
	if c.Agent.Network.BatchSize != 128 || c.Agent.Tabular.Epsilon != 0.1 {
		t.Errorf("unexpected agent defaults %+v", c.Agent)
	}
	if c.Evaluate.StepCeiling != 3600 || c.Train.MaxSteps != 500 {
		t.Errorf("unexpected run defaults %+v, %+v", c.Train, c.Evaluate)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := []byte(`
environment:
  port: 9000
  demand_curves:
    N: curves/north.json
agent:
  network:
    hidden_sizes: [64, 32]
train:
  episodes: 7
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("THESIS_TRAIN_EPISODES", "11")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Environment.Port != 9000 {
		t.Errorf("expected port 9000 from the file, received %v",
			c.Environment.Port)
	}
	if c.Environment.DemandCurves["N"] != "curves/north.json" {
		t.Errorf("expected the north curve, received %v",
			c.Environment.DemandCurves)
	}
	if hs := c.Agent.Network.HiddenSizes; len(hs) != 2 || hs[0] != 64 {
		t.Errorf("expected hidden sizes [64 32], received %v", hs)
	}
	if c.Train.Episodes != 11 {
		t.Errorf("expected the environment to override episodes, received %v",
			c.Train.Episodes)
	}
	if c.Environment.MacroStep != 5 {
		t.Errorf("expected unset keys to keep their defaults")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "run.yaml")
	c := Default()
	c.Train.Episodes = 3
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Train.Episodes != 3 {
		t.Errorf("expected 3 episodes, received %v", loaded.Train.Episodes)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !envconfig.IsConfigurationError(err) {
		t.Errorf("expected a configuration error, received %v", err)
	}

	c := Default()
	c.Log.Level = "loud"
	if _, err := c.Logger(os.Stderr); !envconfig.IsConfigurationError(err) {
		t.Errorf("expected a configuration error, received %v", err)
	}
}
