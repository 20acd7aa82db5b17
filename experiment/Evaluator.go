package experiment

import (
	"context"
	"fmt"

	"github.com/coolport/thesis/agent"
	"github.com/coolport/thesis/environment"
	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/experiment/tracker"
)

// EvalConfig configures an evaluation run
type EvalConfig struct {
	Episodes int `mapstructure:"episodes" yaml:"episodes"`

	// ModelPath is required unless the agent is a fixed-time agent
	ModelPath string `mapstructure:"model_path" yaml:"model_path"`

	// StepCeiling replaces the simulator step ceiling during evaluation
	StepCeiling int `mapstructure:"step_ceiling" yaml:"step_ceiling"`

	OutputFile string `mapstructure:"output_file" yaml:"output_file"`
	XLSXFile   string `mapstructure:"xlsx_file" yaml:"xlsx_file"`
}

// DefaultEvalConfig returns the default evaluation configuration
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		Episodes:    1,
		ModelPath:   "models/agent.gob",
		StepCeiling: 3600,
		OutputFile:  "results/evaluation.csv",
	}
}

// Evaluator runs a loaded agent greedily and records one row of metrics
// per episode in a results log
type Evaluator struct {
	base
	config EvalConfig
	log    tracker.Log
}

// NewEvaluator returns an Evaluator of agent a of type t on env. Rows are
// appended to results, which may be nil.
func NewEvaluator(env environment.Environment, a agent.Agent, t agent.Type,
	c EvalConfig, results tracker.Log, opts ...Option) (*Evaluator, error) {
	if err := validateEpisodes(c.Episodes); err != nil {
		return nil, fmt.Errorf("newEvaluator: %w", err)
	}
	if t.Learns() && c.ModelPath == "" {
		return nil, fmt.Errorf("newEvaluator: %w",
			&envconfig.ConfigurationError{Op: "validate",
				Err: fmt.Errorf("a model path is required for %v agents", t)})
	}

	return &Evaluator{
		base:   newBase(env, a, t, opts),
		config: c,
		log:    results,
	}, nil
}

// Run loads the agent, then evaluates it for the configured number of
// episodes. The environment is closed before Run returns.
func (e *Evaluator) Run(ctx context.Context) (results []tracker.EpisodeMetrics,
	err error) {
	if e.agentType.Learns() {
		if err := e.agent.Load(e.config.ModelPath); err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
		e.logger.Info("model loaded", "path", e.config.ModelPath)
	}
	e.agent.Eval()

	defer e.release(&err)
	if err := e.env.Start(ctx); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	e.state = Running

	bar := e.progressBar(e.config.Episodes)
	for episode := 0; episode < e.config.Episodes; episode++ {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("run: %w", err)
		}

		m, err := e.RunEpisode(episode)
		if err != nil {
			return results, fmt.Errorf("run: episode %v: %w", episode, err)
		}
		results = append(results, m)
		e.logger.Info("evaluation finished", "episode", episode+1,
			"avg_wait_time", fmt.Sprintf("%.2f", m.AvgWaitTime),
			"avg_queue_length", fmt.Sprintf("%.2f", m.AvgQueueLength),
			"total_throughput", m.TotalThroughput)

		if e.log != nil {
			row := tracker.Row{
				Timestamp:      e.now(),
				AgentType:      string(e.agentType),
				EpisodeMetrics: m,
			}
			if err := e.log.Append(row); err != nil {
				return results, fmt.Errorf("run: %w", err)
			}
		}

		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}
	e.state = Done
	return results, nil
}

// RunEpisode runs a single evaluation episode until the environment
// reports the episode is done
func (e *Evaluator) RunEpisode(episode int) (tracker.EpisodeMetrics, error) {
	step, err := e.env.Reset()
	if err != nil {
		return tracker.EpisodeMetrics{}, err
	}
	metrics := tracker.NewEpisode(episode)

	for !step.Last() {
		action := e.agent.SelectAction(step)
		next, info, err := e.env.Step(action)
		if err != nil {
			return metrics.Metrics(), err
		}
		metrics.Track(next, info)
		step = next
	}
	return metrics.Metrics(), nil
}
