// Package qlearning implements tabular Q-learning over discretized queue
// signatures.
package qlearning

import (
	"encoding/gob"
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/timestep"
	"github.com/coolport/thesis/utils/floatutils"
)

// Config represents a configuration for the QLearning agent
type Config struct {
	Epsilon      float64 `mapstructure:"epsilon" yaml:"epsilon"` // ε for behaviour policy
	LearningRate float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	Discount     float64 `mapstructure:"discount" yaml:"discount"`
	Seed         uint64  `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns the default tabular configuration
func DefaultConfig() Config {
	return Config{Epsilon: 0.1, LearningRate: 0.1, Discount: 0.9}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0, 1], got %v", c.Epsilon)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning rate must be in (0, 1], got %v",
			c.LearningRate)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1], got %v", c.Discount)
	}
	return nil
}

// QLearning implements the Q-Learning algorithm with an ε-greedy
// behaviour policy. Updates are applied in Step to the transition last
// recorded by Observe.
type QLearning struct {
	table      *Table
	numActions int

	epsilon      float64
	learningRate float64
	discount     float64
	seed         rand.Source

	transition *timestep.Transition
	eval       bool
}

// New creates a new QLearning agent over numActions actions
func New(numActions int, c Config) (*QLearning, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if numActions < 1 {
		return nil, fmt.Errorf("new: need at least one action")
	}

	return &QLearning{
		table:        NewTable(numActions),
		numActions:   numActions,
		epsilon:      c.Epsilon,
		learningRate: c.LearningRate,
		discount:     c.Discount,
		seed:         rand.NewSource(c.Seed),
	}, nil
}

// SelectAction selects an action from the ε-greedy policy. In evaluation
// mode the greedy action is always selected. Ties are broken in favour of
// the first action.
func (q *QLearning) SelectAction(t timestep.TimeStep) timestep.Action {
	values := q.table.Values(Discretize(t.Observation))
	greedyAction := floatutils.ArgMax(values)
	if q.eval || q.epsilon == 0 {
		return timestep.Action(greedyAction)
	}

	// Calculate the ε probability of choosing any action at random
	prob := q.epsilon / float64(q.numActions)
	actionProbabilities := make([]float64, q.numActions)
	for i := range actionProbabilities {
		actionProbabilities[i] = prob
	}

	// Adjust the probability of choosing the greedy action
	actionProbabilities[greedyAction] += 1.0 - q.epsilon

	dist := distuv.NewCategorical(actionProbabilities, q.seed)
	return timestep.Action(int(dist.Rand()))
}

// Observe records a transition to learn from on the next call to Step
func (q *QLearning) Observe(t timestep.Transition) error {
	if err := t.Action.Validate(); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	if int(t.Action) >= q.numActions {
		return fmt.Errorf("observe: %w", &timestep.InvalidActionError{
			Action: t.Action})
	}
	q.transition = &t
	return nil
}

// Step performs the one-step Bellman backup
//
//	Q[s,a] ← (1-α)Q[s,a] + α(r + γ·max_a' Q[s',a'])
//
// on the last observed transition. The max term is zero for terminal
// transitions.
func (q *QLearning) Step() error {
	if q.transition == nil {
		return nil
	}
	t := *q.transition
	q.transition = nil

	values := q.table.Values(Discretize(t.State))
	target := t.Reward
	if !t.Terminal() {
		next, _ := floatutils.MaxSlice(q.table.Values(Discretize(t.NextState)))
		target += q.discount * next
	}

	a := int(t.Action)
	values[a] = (1-q.learningRate)*values[a] + q.learningRate*target
	return nil
}

// Table returns the agent's action-value table
func (q *QLearning) Table() *Table {
	return q.table
}

// SetEpsilon sets the exploration rate of the behaviour policy
func (q *QLearning) SetEpsilon(e float64) {
	q.epsilon = e
}

// Epsilon returns the exploration rate of the behaviour policy
func (q *QLearning) Epsilon() float64 {
	return q.epsilon
}

// Eval sets the agent to evaluation mode
func (q *QLearning) Eval() {
	q.eval = true
}

// Train sets the agent to training mode
func (q *QLearning) Train() {
	q.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (q *QLearning) IsEval() bool {
	return q.eval
}

type entry struct {
	Key    Key
	Values []float64
}

type savedTable struct {
	NumActions int
	Entries    []entry
}

// Save writes the table to path with encoding/gob
func (q *QLearning) Save(path string) error {
	saved := savedTable{NumActions: q.numActions}
	for k, v := range q.table.values {
		saved.Entries = append(saved.Entries, entry{k, v})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(saved); err != nil {
		f.Close()
		return fmt.Errorf("save: could not encode table: %w", err)
	}
	return f.Close()
}

// Load replaces the table with the one stored at path
func (q *QLearning) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &envconfig.ConfigurationError{Op: "load", Err: err}
	}
	defer f.Close()

	var saved savedTable
	if err := gob.NewDecoder(f).Decode(&saved); err != nil {
		return &envconfig.ConfigurationError{Op: "load",
			Err: fmt.Errorf("could not decode table %v: %w", path, err)}
	}
	if saved.NumActions != q.numActions {
		return &envconfig.ConfigurationError{Op: "load",
			Err: fmt.Errorf("table has %v actions, agent has %v",
				saved.NumActions, q.numActions)}
	}

	table := NewTable(q.numActions)
	for _, e := range saved.Entries {
		if !e.Key.Valid() || len(e.Values) != q.numActions {
			return &envconfig.ConfigurationError{Op: "load",
				Err: fmt.Errorf("corrupt table entry %v", e.Key)}
		}
		table.values[e.Key] = e.Values
	}
	q.table = table
	return nil
}
