// Package config loads the run configuration of the command line tool.
//
// Every setting has a default. A YAML file overrides the defaults, and
// THESIS_* environment variables override the file: the key
// environment.port is overridden by THESIS_ENVIRONMENT_PORT. Variables in
// a .env file in the working directory are loaded first.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/coolport/thesis/agent"
	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/experiment"
	"github.com/coolport/thesis/timestep"
)

// EnvPrefix prefixes environment variable overrides
const EnvPrefix = "THESIS"

// LogConfig configures logging
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config is the complete configuration of a run
type Config struct {
	Log         LogConfig              `mapstructure:"log" yaml:"log"`
	Environment envconfig.Config       `mapstructure:"environment" yaml:"environment"`
	Agent       agent.Config           `mapstructure:"agent" yaml:"agent"`
	Train       experiment.TrainConfig `mapstructure:"train" yaml:"train"`
	Evaluate    experiment.EvalConfig  `mapstructure:"evaluate" yaml:"evaluate"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Log:         LogConfig{Level: "info"},
		Environment: envconfig.Default(),
		Agent:       agent.DefaultConfig(envconfig.Features, timestep.NumActions),
		Train:       experiment.DefaultTrainConfig(),
		Evaluate:    experiment.DefaultEvalConfig(),
	}
}

// Load returns the configuration read from the YAML file at path over the
// defaults. An empty path loads the defaults and environment overrides
// only.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, &envconfig.ConfigurationError{Op: "load", Err: err}
	}

	c := Default()
	defaults, err := yaml.Marshal(c)
	if err != nil {
		return Config{}, &envconfig.ConfigurationError{Op: "load", Err: err}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, &envconfig.ConfigurationError{Op: "load", Err: err}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, &envconfig.ConfigurationError{Op: "load",
				Err: fmt.Errorf("error reading config file: %w", err)}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, &envconfig.ConfigurationError{Op: "load",
			Err: fmt.Errorf("error unmarshaling config: %w", err)}
	}

	// Keys are case insensitive, directions are not
	curves := make(map[string]string, len(c.Environment.DemandCurves))
	for dir, file := range c.Environment.DemandCurves {
		curves[strings.ToUpper(dir)] = file
	}
	c.Environment.DemandCurves = curves

	c.Agent.Features = envconfig.Features
	c.Agent.Actions = timestep.NumActions
	return c, nil
}

// Save writes the configuration to path as YAML
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("save: error marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: error writing config file: %w", err)
	}
	return nil
}

// Logger returns a logger writing to out at the configured level
func (c Config) Logger(out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, &envconfig.ConfigurationError{Op: "logger", Err: err}
	}
	return log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
	}), nil
}
