package environment

import (
	"errors"
	"fmt"
)

// ConnectionError is returned when the simulator could not be reached
// after all connection attempts were exhausted. It is fatal to a run.
type ConnectionError struct {
	Op       string
	Addr     string
	Attempts int
	Err      error
}

func (c *ConnectionError) Error() string {
	return fmt.Sprintf("%v: could not connect to simulator at %v after %d "+
		"attempts: %v", c.Op, c.Addr, c.Attempts, c.Err)
}

func (c *ConnectionError) Unwrap() error {
	return c.Err
}

// IsConnectionFailure returns whether err was caused by an exhausted
// connection retry loop
func IsConnectionFailure(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// StepError is returned when the simulator fails while an episode is
// being run. It is not retried.
type StepError struct {
	Op  string
	Err error
}

func (s *StepError) Error() string {
	return fmt.Sprintf("%v: simulator failure: %v", s.Op, s.Err)
}

func (s *StepError) Unwrap() error {
	return s.Err
}

// IsStepFailure returns whether err was caused by the simulator failing
// mid-episode
func IsStepFailure(err error) bool {
	var target *StepError
	return errors.As(err, &target)
}
