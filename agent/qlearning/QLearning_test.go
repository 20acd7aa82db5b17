package qlearning

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/timestep"
)

func state(queues ...float64) *mat.VecDense {
	s := mat.NewVecDense(envconfig.Features, nil)
	for i, q := range queues {
		s.SetVec(i, q)
	}
	return s
}

func TestDiscretize(t *testing.T) {
	s := state(4, 16, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5)
	// Forecast and phase components are ignored
	s.SetVec(envconfig.NumLanes, 100)
	s.SetVec(envconfig.Features-1, 100)

	k := Discretize(s)
	expected := Key{Low, High, Low, Low, Low, Low, Low, Low, Low, Low, Low,
		Medium}
	if k != expected {
		t.Errorf("expected %v, received %v", expected, k)
	}

	for v, level := range map[float64]Level{
		-1: Low, 4.99: Low, 5: Medium, 14.99: Medium, 15: High, 1000: High,
	} {
		if got := Bucket(v); got != level {
			t.Errorf("Bucket(%v): expected %v, received %v", v, level, got)
		}
	}
}

func TestTableDefault(t *testing.T) {
	table := NewTable(2)
	k := Discretize(state())
	if _, ok := table.Lookup(k); ok {
		t.Fatalf("empty table should not contain %v", k)
	}

	v := table.Values(k)
	if len(v) != 2 || v[0] != 0 || v[1] != 0 {
		t.Errorf("expected zero action values, received %v", v)
	}
	if table.Len() != 1 {
		t.Errorf("first read should store the key")
	}
}

func TestUpdate(t *testing.T) {
	q, err := New(timestep.NumActions, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	s, next := state(0), state(20)
	q.Table().Values(Discretize(next))[timestep.Stay] = 10

	trans := timestep.Transition{
		State:     s,
		Action:    timestep.Switch,
		NextState: next,
		Reward:    -2,
	}
	if err := q.Observe(trans); err != nil {
		t.Fatal(err)
	}
	if err := q.Step(); err != nil {
		t.Fatal(err)
	}

	// 0.9·0 + 0.1·(-2 + 0.9·10)
	got := q.Table().Values(Discretize(s))[timestep.Switch]
	if math.Abs(got-0.7) > 1e-12 {
		t.Errorf("expected 0.7, received %v", got)
	}

	// Step without a new transition is a no-op
	if err := q.Step(); err != nil {
		t.Fatal(err)
	}
	if again := q.Table().Values(Discretize(s))[timestep.Switch]; again != got {
		t.Errorf("repeated Step should not update again")
	}

	// Terminal transitions ignore the next state's values
	trans.NextState = nil
	trans.State = next
	trans.Action = timestep.Stay
	if err := q.Observe(trans); err != nil {
		t.Fatal(err)
	}
	if err := q.Step(); err != nil {
		t.Fatal(err)
	}
	got = q.Table().Values(Discretize(next))[timestep.Stay]
	if math.Abs(got-(0.9*10+0.1*-2)) > 1e-12 {
		t.Errorf("terminal update: expected 8.8, received %v", got)
	}
}

func TestSelectAction(t *testing.T) {
	c := DefaultConfig()
	c.Epsilon = 1
	q, err := New(timestep.NumActions, c)
	if err != nil {
		t.Fatal(err)
	}

	s := state(7)
	q.Table().Values(Discretize(s))[timestep.Switch] = 1
	step := timestep.New(timestep.First, 0, s, 0)

	// ε = 1 explores uniformly
	counts := make([]int, timestep.NumActions)
	for i := 0; i < 2000; i++ {
		counts[q.SelectAction(step)]++
	}
	if counts[timestep.Stay] < 800 || counts[timestep.Switch] < 800 {
		t.Errorf("expected uniform exploration, received %v", counts)
	}

	q.Eval()
	for i := 0; i < 100; i++ {
		if a := q.SelectAction(step); a != timestep.Switch {
			t.Fatalf("evaluation should be greedy, received %v", a)
		}
	}

	// Ties go to the first action
	tie := timestep.New(timestep.First, 0, state(100), 0)
	if a := q.SelectAction(tie); a != timestep.Stay {
		t.Errorf("expected Stay on ties, received %v", a)
	}
}

func TestSaveLoad(t *testing.T) {
	q, err := New(timestep.NumActions, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	k1, k2 := Discretize(state(1)), Discretize(state(30, 10))
	q.Table().Values(k1)[0] = -1.25
	q.Table().Values(k2)[1] = 3.5

	path := filepath.Join(t.TempDir(), "table.gob")
	if err := q.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := New(timestep.NumActions, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Table().Len() != 2 {
		t.Errorf("expected 2 keys, received %v", loaded.Table().Len())
	}
	if v, _ := loaded.Table().Lookup(k1); v[0] != -1.25 {
		t.Errorf("key %v: expected -1.25, received %v", k1, v)
	}
	if v, _ := loaded.Table().Lookup(k2); v[1] != 3.5 {
		t.Errorf("key %v: expected 3.5, received %v", k2, v)
	}

	err = loaded.Load(filepath.Join(t.TempDir(), "missing.gob"))
	if !envconfig.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, received %v", err)
	}
}
