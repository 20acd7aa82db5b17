// Package experiment implements the training and evaluation runs of an
// agent on an environment
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/coolport/thesis/agent"
	"github.com/coolport/thesis/environment"
	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/experiment/tracker"
	"github.com/coolport/thesis/utils/progressbar"
)

// Experiment outlines structs that run an agent on an environment for a
// number of episodes. Run acquires the environment and always releases
// it before returning.
type Experiment interface {
	Run(ctx context.Context) ([]tracker.EpisodeMetrics, error)
}

// State is the lifecycle state of a run
type State int

const (
	Idle State = iota
	Running
	Saving
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Saving:
		return "saving"
	default:
		return "done"
	}
}

// Option configures a Trainer or Evaluator
type Option func(*base)

// WithLogger sets the logger of a run
func WithLogger(l *log.Logger) Option {
	return func(b *base) { b.logger = l }
}

// WithProgress displays a progress bar of completed episodes on out
func WithProgress(out io.Writer) Option {
	return func(b *base) { b.progress = out }
}

// WithClock replaces the clock used to timestamp results
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// base holds what the Trainer and Evaluator share
type base struct {
	env       environment.Environment
	agent     agent.Agent
	agentType agent.Type

	logger   *log.Logger
	progress io.Writer
	now      func() time.Time
	runID    uuid.UUID
	state    State
}

func newBase(env environment.Environment, a agent.Agent, t agent.Type,
	opts []Option) base {
	b := base{
		env:       env,
		agent:     a,
		agentType: t,
		logger:    log.New(io.Discard),
		now:       time.Now,
		runID:     uuid.New(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With("run", b.runID.String()[:8], "agent", t)
	return b
}

// RunID returns the identifier tagging the run's log lines
func (b *base) RunID() uuid.UUID {
	return b.runID
}

// State returns the lifecycle state of the run
func (b *base) State() State {
	return b.state
}

func (b *base) progressBar(episodes int) *progressbar.ManualProgressBar {
	if b.progress == nil {
		return nil
	}
	return progressbar.NewManualProgressBar(b.progress, 40, episodes)
}

// release closes the environment, joining any error with err
func (b *base) release(err *error) {
	if closeErr := b.env.Close(); closeErr != nil {
		*err = errors.Join(*err, fmt.Errorf("close: %w", closeErr))
	}
}

func validateEpisodes(n int) error {
	if n < 1 {
		return &envconfig.ConfigurationError{Op: "validate",
			Err: fmt.Errorf("episodes must be positive, got %v", n)}
	}
	return nil
}
