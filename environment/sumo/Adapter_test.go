package sumo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/coolport/thesis/environment"
	"github.com/coolport/thesis/environment/demand"
	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/timestep"
)

var _ environment.Environment = (*Adapter)(nil)

// fakeSim is an in-memory simulator answering TraCI queries
type fakeSim struct {
	halted   map[string]int
	wait     map[string]float64
	detector map[string]int
	phase    int
	ticks    int
	loads    int
	closed   int
	failStep bool
}

func newFakeSim(halted int) *fakeSim {
	s := &fakeSim{
		halted:   make(map[string]int),
		wait:     make(map[string]float64),
		detector: make(map[string]int),
	}
	for _, lane := range envconfig.Default().Lanes {
		s.halted[lane] = halted
		s.wait[lane] = 1.5
	}
	s.detector["det_N"] = 2
	s.detector["det_E"] = 1
	return s
}

func (s *fakeSim) Version() (int, string, error) {
	return 21, "fake", nil
}

func (s *fakeSim) Load([]string) error {
	s.loads++
	s.ticks = 0
	s.phase = 0
	return nil
}

func (s *fakeSim) SimulationStep() error {
	if s.failStep {
		return errors.New("simulator crashed")
	}
	s.ticks++
	return nil
}

func (s *fakeSim) Time() (float64, error) {
	return float64(s.ticks), nil
}

func (s *fakeSim) LaneHaltingNumber(id string) (int, error) {
	return s.halted[id], nil
}

func (s *fakeSim) LaneWaitingTime(id string) (float64, error) {
	return s.wait[id], nil
}

func (s *fakeSim) Phase(string) (int, error) {
	return s.phase, nil
}

func (s *fakeSim) SetPhase(_ string, p int) error {
	s.phase = p
	return nil
}

func (s *fakeSim) InductionLoopVehicleNumber(id string) (int, error) {
	return s.detector[id], nil
}

func (s *fakeSim) Close() error {
	s.closed++
	return nil
}

type fakeProcess struct {
	terminated int
}

func (p *fakeProcess) Terminate() error {
	p.terminated++
	return nil
}

func newTestAdapter(t *testing.T, sim *fakeSim, curves *demand.Curves) (*Adapter, *fakeProcess) {
	t.Helper()
	proc := &fakeProcess{}
	a, err := New(envconfig.Default(), curves,
		WithLauncher(func(string, ...string) (Process, error) { return proc, nil }),
		WithDialer(func(context.Context, string) (Client, error) { return sim, nil }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return a, proc
}

func TestResetState(t *testing.T) {
	sim := newFakeSim(10)
	a, _ := newTestAdapter(t, sim, demand.New(nil))
	defer a.Close()

	step, err := a.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if !step.First() {
		t.Errorf("reset should return a First step, received %v", step.StepType)
	}

	state := step.Observation.RawVector().Data
	if len(state) != envconfig.Features {
		t.Fatalf("expected %d features, received %d", envconfig.Features,
			len(state))
	}
	for i := 0; i < envconfig.NumLanes; i++ {
		if state[i] != 0.2 {
			t.Errorf("queue %d: expected 0.2, received %v", i, state[i])
		}
	}
	for i := envconfig.NumLanes; i < envconfig.Features; i++ {
		if state[i] != 0 {
			t.Errorf("feature %d: expected 0, received %v", i, state[i])
		}
	}
}

func TestStep(t *testing.T) {
	sim := newFakeSim(3)
	north, err := demand.NewCurve([]demand.Record{
		{Time: "00:00:00", ExpectedDemand: 2000},
	})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := newTestAdapter(t, sim, demand.New(map[demand.Direction]*demand.Curve{
		demand.North: north,
	}))
	defer a.Close()

	if _, err := a.Reset(); err != nil {
		t.Fatal(err)
	}

	step, info, err := a.Step(timestep.Switch)
	if err != nil {
		t.Fatal(err)
	}
	if sim.ticks != 5 {
		t.Errorf("expected a macro-step of 5 ticks, simulator advanced %v",
			sim.ticks)
	}
	if sim.phase != 1 {
		t.Errorf("switch should advance the phase to 1, received %v", sim.phase)
	}

	state := step.Observation.RawVector().Data
	if len(state) != envconfig.Features {
		t.Fatalf("expected %d features, received %d", envconfig.Features,
			len(state))
	}
	if state[envconfig.NumLanes] != 0.5 {
		t.Errorf("north demand: expected 0.5, received %v",
			state[envconfig.NumLanes])
	}
	if state[envconfig.Features-1] != 0.25 {
		t.Errorf("phase: expected 0.25, received %v", state[envconfig.Features-1])
	}

	if math.Abs(step.Reward-(-18)) > 1e-9 {
		t.Errorf("reward: expected -18, received %v", step.Reward)
	}
	if info.QueueLength != 36 || info.Throughput != 3 || info.Phase != 1 {
		t.Errorf("unexpected info %v", info)
	}

	// The reported queue is the unnormalised sum of the lane queue features
	queues := floats.Sum(state[:envconfig.NumLanes]) * envconfig.Default().MaxQueue
	if math.Abs(queues-float64(info.QueueLength)) > 1e-9 {
		t.Errorf("queue length: expected %v vehicles, received %v", queues,
			info.QueueLength)
	}

	if _, _, err := a.Step(timestep.Stay); err != nil {
		t.Fatal(err)
	}
	if sim.phase != 1 || sim.ticks != 10 {
		t.Errorf("stay: expected phase 1 at tick 10, received %v at %v",
			sim.phase, sim.ticks)
	}

	// Phases wrap around
	sim.phase = 3
	if _, _, err := a.Step(timestep.Switch); err != nil {
		t.Fatal(err)
	}
	if sim.phase != 0 {
		t.Errorf("switch from the last phase should wrap to 0, received %v",
			sim.phase)
	}
}

func TestDone(t *testing.T) {
	sim := newFakeSim(0)
	a, _ := newTestAdapter(t, sim, nil)
	defer a.Close()

	if _, err := a.Reset(); err != nil {
		t.Fatal(err)
	}

	ceiling := envconfig.Default().StepCeiling / envconfig.Default().MacroStep
	for i := 1; i <= ceiling; i++ {
		step, _, err := a.Step(timestep.Stay)
		if err != nil {
			t.Fatal(err)
		}
		if step.Last() != (i == ceiling) {
			t.Fatalf("step %d: Last() = %v", i, step.Last())
		}
	}

	// Reset starts a fresh episode
	step, err := a.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if step.Number != 0 || sim.loads != 2 {
		t.Errorf("reset should reload the simulation")
	}
}

func TestStepErrors(t *testing.T) {
	sim := newFakeSim(0)
	a, _ := newTestAdapter(t, sim, nil)
	defer a.Close()

	if _, err := a.Reset(); err != nil {
		t.Fatal(err)
	}

	if _, _, err := a.Step(timestep.Action(5)); !timestep.IsInvalidAction(err) {
		t.Errorf("expected InvalidActionError, received %v", err)
	}

	sim.failStep = true
	if _, _, err := a.Step(timestep.Stay); !environment.IsStepFailure(err) {
		t.Errorf("expected StepError, received %v", err)
	}
}

func TestConnectionFailure(t *testing.T) {
	c := envconfig.Default()
	c.ConnectAttempts = 3
	c.ConnectBackoff = time.Millisecond

	proc := &fakeProcess{}
	dials := 0
	a, err := New(c, nil,
		WithLauncher(func(string, ...string) (Process, error) { return proc, nil }),
		WithDialer(func(context.Context, string) (Client, error) {
			dials++
			return nil, errors.New("connection refused")
		}),
	)
	if err != nil {
		t.Fatal(err)
	}

	err = a.Start(context.Background())
	if !environment.IsConnectionFailure(err) {
		t.Fatalf("expected ConnectionError, received %v", err)
	}
	if dials != 3 {
		t.Errorf("expected 3 connection attempts, received %v", dials)
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close after failed Start: %v", err)
	}
	if proc.terminated != 1 {
		t.Errorf("process should be terminated once, received %v",
			proc.terminated)
	}
}

func TestConnectRetrySucceeds(t *testing.T) {
	c := envconfig.Default()
	c.ConnectBackoff = time.Millisecond

	sim := newFakeSim(0)
	dials := 0
	a, err := New(c, nil,
		WithLauncher(func(string, ...string) (Process, error) { return &fakeProcess{}, nil }),
		WithDialer(func(context.Context, string) (Client, error) {
			dials++
			if dials < 4 {
				return nil, errors.New("connection refused")
			}
			return sim, nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if dials != 4 {
		t.Errorf("expected 4 connection attempts, received %v", dials)
	}
}

func TestCloseIdempotent(t *testing.T) {
	sim := newFakeSim(0)
	a, proc := newTestAdapter(t, sim, nil)

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if sim.closed != 1 || proc.terminated != 1 {
		t.Errorf("expected a single close and terminate, received %v and %v",
			sim.closed, proc.terminated)
	}
}

func TestBinary(t *testing.T) {
	env := func(home string) func(string) string {
		return func(string) string { return home }
	}

	c := envconfig.Default()
	if b := Binary(c, env("")); b != "sumo" {
		t.Errorf("expected sumo, received %v", b)
	}
	c.GUI = true
	if b := Binary(c, env("/opt/sumo")); b != "/opt/sumo/bin/sumo-gui" {
		t.Errorf("expected /opt/sumo/bin/sumo-gui, received %v", b)
	}
	c.Binary = "/usr/local/bin/sumo"
	if b := Binary(c, env("/opt/sumo")); b != c.Binary {
		t.Errorf("expected override %v, received %v", c.Binary, b)
	}
}
