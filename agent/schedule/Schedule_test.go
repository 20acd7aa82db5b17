package schedule

import (
	"math"
	"testing"
)

func TestExponential(t *testing.T) {
	e := Exponential{Start: 0.9, End: 0.05, Decay: 1000}

	if got := e.At(0); got != 0.9 {
		t.Errorf("At(0): expected 0.9, received %v", got)
	}
	if got := e.At(1000); math.Abs(got-0.3627) > 1e-4 {
		t.Errorf("At(1000): expected ~0.3627, received %v", got)
	}
	if got := e.At(1_000_000); math.Abs(got-0.05) > 1e-9 {
		t.Errorf("At(1e6): expected 0.05, received %v", got)
	}

	prev := e.At(0)
	for steps := 1; steps < 5000; steps += 250 {
		if cur := e.At(steps); cur > prev {
			t.Fatalf("schedule increased at step %v", steps)
		} else {
			prev = cur
		}
	}

	if err := e.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (Exponential{Start: 1.5, End: 0, Decay: 1}).Validate(); err == nil {
		t.Errorf("expected an error for start > 1")
	}
}

func TestConstant(t *testing.T) {
	c := Constant(0.1)
	for _, steps := range []int{0, 10, 100000} {
		if got := c.At(steps); got != 0.1 {
			t.Errorf("At(%v): expected 0.1, received %v", steps, got)
		}
	}
}
