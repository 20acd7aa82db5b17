package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coolport/thesis/agent"
	"github.com/coolport/thesis/agent/schedule"
	"github.com/coolport/thesis/environment"
	"github.com/coolport/thesis/experiment/checkpointer"
	"github.com/coolport/thesis/experiment/tracker"
	"github.com/coolport/thesis/timestep"
)

// TrainConfig configures a training run
type TrainConfig struct {
	Episodes int `mapstructure:"episodes" yaml:"episodes"`

	// MaxSteps caps the decision steps of an episode; the capped step is
	// treated as terminal
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`

	// CheckpointEvery saves an enumerated checkpoint every this many
	// episodes. Zero disables checkpoints.
	CheckpointEvery int `mapstructure:"checkpoint_every" yaml:"checkpoint_every"`

	ModelPath   string               `mapstructure:"model_path" yaml:"model_path"`
	Exploration schedule.Exponential `mapstructure:"exploration" yaml:"exploration"`
}

// DefaultTrainConfig returns the default training configuration
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Episodes:  50,
		MaxSteps:  500,
		ModelPath: "models/agent.gob",
		Exploration: schedule.Exponential{
			Start: 0.9,
			End:   0.05,
			Decay: 1000,
		},
	}
}

// Trainer runs a learning agent on an environment for a number of
// episodes, saving it when training finishes.
//
// The Trainer owns the count of actions taken, which drives the
// exploration schedule of ε-greedy network agents and persists across
// episodes. Tabular agents explore with their configured ε throughout.
type Trainer struct {
	base
	config       TrainConfig
	schedule     schedule.Schedule
	limit        environment.StepLimit
	checkpointer checkpointer.Checkpointer
	actions      int
}

// NewTrainer returns a Trainer of agent a of type t on env
func NewTrainer(env environment.Environment, a agent.Agent, t agent.Type,
	c TrainConfig, opts ...Option) (*Trainer, error) {
	if !t.Learns() {
		return nil, fmt.Errorf("newTrainer: %v agents do not learn", t)
	}
	if err := validateEpisodes(c.Episodes); err != nil {
		return nil, fmt.Errorf("newTrainer: %w", err)
	}
	if c.MaxSteps < 1 {
		return nil, fmt.Errorf("newTrainer: max steps must be positive, "+
			"got %v", c.MaxSteps)
	}
	if err := c.Exploration.Validate(); err != nil {
		return nil, fmt.Errorf("newTrainer: %w", err)
	}

	tr := &Trainer{
		base:     newBase(env, a, t, opts),
		config:   c,
		schedule: c.Exploration,
		limit:    environment.NewStepLimit(c.MaxSteps),
	}
	if eg, ok := a.(agent.EGreedy); ok && t == agent.Tabular {
		tr.schedule = schedule.Constant(eg.Epsilon())
	}

	// Checkpoints are written next to the model before the first save
	if dir := filepath.Dir(c.ModelPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("newTrainer: %w", err)
		}
	}

	if c.CheckpointEvery > 0 {
		ext := filepath.Ext(c.ModelPath)
		name := c.ModelPath[:len(c.ModelPath)-len(ext)]
		check, err := checkpointer.NewNEpisode(c.CheckpointEvery, a,
			checkpointer.FilenameEnumerator(0, name, ext))
		if err != nil {
			return nil, fmt.Errorf("newTrainer: %w", err)
		}
		tr.checkpointer = check
	}
	return tr, nil
}

// Actions returns the number of actions taken so far
func (t *Trainer) Actions() int {
	return t.actions
}

// Run starts the environment, trains for the configured number of
// episodes and saves the agent. The environment is closed before Run
// returns. Errors are not retried.
func (t *Trainer) Run(ctx context.Context) (summaries []tracker.EpisodeMetrics,
	err error) {
	defer t.release(&err)

	if err := t.env.Start(ctx); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	t.state = Running
	t.agent.Train()
	t.logger.Info("training started", "episodes", t.config.Episodes,
		"max_steps", t.config.MaxSteps)

	bar := t.progressBar(t.config.Episodes)
	for episode := 0; episode < t.config.Episodes; episode++ {
		if err := ctx.Err(); err != nil {
			return summaries, fmt.Errorf("run: %w", err)
		}

		m, err := t.RunEpisode(episode)
		if err != nil {
			return summaries, fmt.Errorf("run: episode %v: %w", episode, err)
		}
		summaries = append(summaries, m)
		t.logger.Info("episode finished", "episode", episode+1, "return",
			fmt.Sprintf("%.2f", m.Return), "steps", m.Steps, "epsilon",
			fmt.Sprintf("%.4f", t.epsilon()))

		if t.checkpointer != nil {
			path, err := t.checkpointer.Checkpoint(episode + 1)
			if err != nil {
				return summaries, fmt.Errorf("run: %w", err)
			}
			if path != "" {
				t.logger.Info("checkpoint saved", "path", path)
			}
		}

		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}

	t.state = Saving
	if err := t.save(); err != nil {
		return summaries, fmt.Errorf("run: %w", err)
	}
	t.state = Done
	return summaries, nil
}

// RunEpisode runs a single training episode. The agent learns after every
// decision step.
func (t *Trainer) RunEpisode(episode int) (tracker.EpisodeMetrics, error) {
	step, err := t.env.Reset()
	if err != nil {
		return tracker.EpisodeMetrics{}, err
	}
	metrics := tracker.NewEpisode(episode)

	for !step.Last() {
		if eg, ok := t.agent.(agent.EGreedy); ok {
			eg.SetEpsilon(t.schedule.At(t.actions))
		}
		action := t.agent.SelectAction(step)
		t.actions++

		next, info, err := t.env.Step(action)
		if err != nil {
			return metrics.Metrics(), err
		}
		t.limit.End(&next)
		metrics.Track(next, info)

		transition := timestep.NewTransition(step, action, next)
		if err := t.agent.Observe(transition); err != nil {
			return metrics.Metrics(), err
		}
		if err := t.agent.Step(); err != nil {
			return metrics.Metrics(), err
		}
		step = next
	}
	return metrics.Metrics(), nil
}

func (t *Trainer) epsilon() float64 {
	if eg, ok := t.agent.(agent.EGreedy); ok {
		return eg.Epsilon()
	}
	return 0
}

func (t *Trainer) save() error {
	if err := t.agent.Save(t.config.ModelPath); err != nil {
		return err
	}
	t.logger.Info("model saved", "path", t.config.ModelPath)
	return nil
}
