package timestep

import (
	"errors"
	"fmt"
)

// Action is a signal-control decision taken at a decision step
type Action int

const (
	// Stay keeps the current traffic-light phase
	Stay Action = iota

	// Switch advances the traffic light to its next phase
	Switch
)

// NumActions is the size of the action space
const NumActions = 2

func (a Action) String() string {
	switch a {
	case Stay:
		return "Stay"
	case Switch:
		return "Switch"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Validate returns an *InvalidActionError if a is outside the action space
func (a Action) Validate() error {
	if a < Stay || a > Switch {
		return &InvalidActionError{Action: a}
	}
	return nil
}

// InvalidActionError is returned when an action outside {Stay, Switch}
// reaches the simulator or replay memory
type InvalidActionError struct {
	Action Action
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %d: must be in [0, %d)", int(e.Action),
		NumActions)
}

// IsInvalidAction returns whether err was caused by an invalid action
func IsInvalidAction(err error) bool {
	var target *InvalidActionError
	return errors.As(err, &target)
}
