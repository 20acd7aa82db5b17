package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is one (state, action, next state, reward) experience tuple.
// NextState is nil exactly when the transition ends an episode.
type Transition struct {
	State     *mat.VecDense
	Action    Action
	NextState *mat.VecDense
	Reward    float64
}

// NewTransition creates the transition from step to next under action a.
// If next is the Last step of its episode, the transition is terminal.
func NewTransition(step TimeStep, a Action, next TimeStep) Transition {
	t := Transition{
		State:  step.Observation,
		Action: a,
		Reward: next.Reward,
	}
	if !next.Last() {
		t.NextState = next.Observation
	}
	return t
}

// Terminal returns whether the transition ends an episode
func (t Transition) Terminal() bool {
	return t.NextState == nil
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward:  %.2f  |  "+
		"Terminal: %v", t.Action, t.Reward, t.Terminal())
}
