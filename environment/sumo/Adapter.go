// Package sumo implements an environment backed by an external SUMO
// process controlling a single signalized intersection
package sumo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"

	"github.com/coolport/thesis/environment"
	"github.com/coolport/thesis/environment/demand"
	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/timestep"
)

// Option configures an Adapter
type Option func(*Adapter)

// WithLauncher replaces the function used to start the simulator process
func WithLauncher(l Launcher) Option {
	return func(a *Adapter) { a.launch = l }
}

// WithDialer replaces the function used to connect to the simulator
func WithDialer(d Dialer) Option {
	return func(a *Adapter) { a.dial = d }
}

// WithLogger sets the logger of the Adapter
func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Adapter owns a simulator process and its TraCI connection, and turns
// simulator telemetry into normalized states and rewards.
//
// An Adapter is not safe for concurrent use.
type Adapter struct {
	config envconfig.Config
	curves *demand.Curves

	launch Launcher
	dial   Dialer
	logger *log.Logger

	proc Process
	conn Client

	// currentStep counts simulated seconds since the last reset
	currentStep int
	stepNumber  int

	obsSpec environment.Spec
	actSpec environment.Spec
}

// New returns an Adapter for the given configuration. The simulator is not
// started until Start is called.
func New(c envconfig.Config, curves *demand.Curves, opts ...Option) (*Adapter, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config: c,
		curves: curves,
		launch: Exec,
		dial:   DialTraCI,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}

	features := envconfig.Features
	lower := mat.NewVecDense(features, nil)
	upper := mat.NewVecDense(features, nil)
	for i := 0; i < features; i++ {
		upper.SetVec(i, 1)
	}
	a.obsSpec = environment.NewSpec(mat.NewVecDense(features, nil),
		environment.Observation, lower, upper, environment.Continuous)

	a.actSpec = environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Action, mat.NewVecDense(1, []float64{float64(timestep.Stay)}),
		mat.NewVecDense(1, []float64{float64(timestep.Switch)}),
		environment.Discrete)

	return a, nil
}

// ObservationSpec returns the observation specification of the Adapter
func (a *Adapter) ObservationSpec() environment.Spec {
	return a.obsSpec
}

// ActionSpec returns the action specification of the Adapter
func (a *Adapter) ActionSpec() environment.Spec {
	return a.actSpec
}

func (a *Adapter) addr() string {
	return net.JoinHostPort("localhost", strconv.Itoa(a.config.Port))
}

// Start launches the simulator and connects to it, retrying the connection
// a bounded number of times. When all attempts fail, a
// *environment.ConnectionError is returned. Close must be called even if
// Start fails.
func (a *Adapter) Start(ctx context.Context) error {
	if a.proc != nil || a.conn != nil {
		return errors.New("start: simulator already started")
	}

	binary := Binary(a.config, os.Getenv)
	args := []string{"-c", a.config.SumoConfig, "--remote-port",
		strconv.Itoa(a.config.Port), "--start"}
	if a.config.Seed != 0 {
		args = append(args, "--seed", strconv.Itoa(a.config.Seed))
	}

	proc, err := a.launch(binary, args...)
	if err != nil {
		return &environment.ConnectionError{Op: "start", Addr: a.addr(),
			Attempts: 0, Err: fmt.Errorf("launch %v: %w", binary, err)}
	}
	a.proc = proc
	a.logger.Info("launched simulator", "binary", binary, "config",
		a.config.SumoConfig, "gui", a.config.GUI)

	var lastErr error
	attempts := a.config.ConnectAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := a.dial(ctx, a.addr())
		if err == nil {
			a.conn = conn
			break
		}
		lastErr = err
		a.logger.Debug("connection attempt failed", "attempt", attempt,
			"of", attempts, "err", err)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return &environment.ConnectionError{Op: "start", Addr: a.addr(),
				Attempts: attempt, Err: ctx.Err()}
		case <-time.After(a.config.ConnectBackoff):
		}
	}
	if a.conn == nil {
		return &environment.ConnectionError{Op: "start", Addr: a.addr(),
			Attempts: attempts, Err: lastErr}
	}

	if api, ident, err := a.conn.Version(); err == nil {
		a.logger.Info("connected to simulator", "addr", a.addr(), "api", api,
			"version", ident)
	} else {
		a.logger.Warn("could not query simulator version", "err", err)
	}
	return nil
}

// Reset reloads the simulation and returns the first step of a new episode
func (a *Adapter) Reset() (timestep.TimeStep, error) {
	if a.conn == nil {
		return timestep.TimeStep{}, &environment.StepError{Op: "reset",
			Err: errors.New("simulator not started")}
	}

	args := []string{"-c", a.config.SumoConfig, "--start"}
	if err := a.conn.Load(args); err != nil {
		return timestep.TimeStep{}, &environment.StepError{Op: "reset", Err: err}
	}
	a.currentStep = 0
	a.stepNumber = 0

	state, _, err := a.observe()
	if err != nil {
		return timestep.TimeStep{}, &environment.StepError{Op: "reset", Err: err}
	}
	return timestep.New(timestep.First, 0, state, 0), nil
}

// Step applies the action, advances the simulation by one macro-step, and
// samples telemetry once afterwards. The reward is the negated total
// waiting time over all incoming lanes. The returned step is Last once the
// step ceiling has been reached.
func (a *Adapter) Step(action timestep.Action) (timestep.TimeStep, environment.Info, error) {
	if err := action.Validate(); err != nil {
		return timestep.TimeStep{}, environment.Info{}, err
	}
	if a.conn == nil {
		return timestep.TimeStep{}, environment.Info{}, &environment.StepError{
			Op: "step", Err: errors.New("simulator not started")}
	}

	if action == timestep.Switch {
		phase, err := a.conn.Phase(a.config.TrafficLight)
		if err != nil {
			return a.fail(err)
		}
		next := (phase + 1) % a.config.NumPhases
		if err := a.conn.SetPhase(a.config.TrafficLight, next); err != nil {
			return a.fail(err)
		}
	}

	for i := 0; i < a.config.MacroStep; i++ {
		if err := a.conn.SimulationStep(); err != nil {
			return a.fail(err)
		}
	}
	a.currentStep += a.config.MacroStep
	a.stepNumber++

	state, info, err := a.observe()
	if err != nil {
		return a.fail(err)
	}

	stepType := timestep.Mid
	if a.currentStep >= a.config.StepCeiling {
		stepType = timestep.Last
	}
	return timestep.New(stepType, -info.WaitingTime, state, a.stepNumber), info, nil
}

func (a *Adapter) fail(err error) (timestep.TimeStep, environment.Info, error) {
	return timestep.TimeStep{}, environment.Info{}, &environment.StepError{
		Op: "step", Err: err}
}

// observe samples the simulator and builds the normalized state along with
// the raw telemetry
func (a *Adapter) observe() (*mat.VecDense, environment.Info, error) {
	var info environment.Info
	state := mat.NewVecDense(envconfig.Features, nil)

	for i, lane := range a.config.Lanes {
		halted, err := a.conn.LaneHaltingNumber(lane)
		if err != nil {
			return nil, info, fmt.Errorf("halting number of %v: %w", lane, err)
		}
		wait, err := a.conn.LaneWaitingTime(lane)
		if err != nil {
			return nil, info, fmt.Errorf("waiting time of %v: %w", lane, err)
		}
		info.QueueLength += halted
		info.WaitingTime += wait
		state.SetVec(i, float64(halted)/a.config.MaxQueue)
	}

	simTime, err := a.conn.Time()
	if err != nil {
		return nil, info, fmt.Errorf("simulation time: %w", err)
	}
	info.SimTime = simTime
	for i, dir := range demand.Directions {
		forecast := a.curves.Lookup(dir, simTime)
		state.SetVec(envconfig.NumLanes+i, forecast/a.config.MaxDemand)
	}

	phase, err := a.conn.Phase(a.config.TrafficLight)
	if err != nil {
		return nil, info, fmt.Errorf("phase of %v: %w", a.config.TrafficLight, err)
	}
	info.Phase = phase
	state.SetVec(envconfig.Features-1, float64(phase)/float64(a.config.NumPhases))

	for _, det := range a.config.Detectors {
		n, err := a.conn.InductionLoopVehicleNumber(det)
		if err != nil {
			return nil, info, fmt.Errorf("vehicle number of %v: %w", det, err)
		}
		info.Throughput += n
	}

	return state, info, nil
}

// Close closes the connection and terminates the simulator process.
// Calling Close more than once, or after a failed Start, is safe.
func (a *Adapter) Close() error {
	var errs []error

	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
		a.conn = nil
	}
	if a.proc != nil {
		if err := a.proc.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("terminate simulator: %w", err))
		}
		a.proc = nil
		a.logger.Info("simulator closed")
	}

	return errors.Join(errs...)
}
