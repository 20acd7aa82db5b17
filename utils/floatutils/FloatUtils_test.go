package floatutils

import "testing"

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{1, 3, -2, 3, 0})
	if max != 3 {
		t.Errorf("expected max 3, received %v", max)
	}
	if len(indices) != 2 || indices[0] != 1 || indices[1] != 3 {
		t.Errorf("expected indices [1 3], received %v", indices)
	}
}

func TestArgMax(t *testing.T) {
	tests := []struct {
		values   []float64
		expected int
	}{
		{[]float64{0, 0}, 0},
		{[]float64{-1, 2}, 1},
		{[]float64{5, 1, 5}, 0},
		{[]float64{-3}, 0},
	}
	for _, test := range tests {
		if got := ArgMax(test.values); got != test.expected {
			t.Errorf("ArgMax(%v): expected %v, received %v", test.values,
				test.expected, got)
		}
	}
}

func TestClip(t *testing.T) {
	if got := Clip(5, 0, 1); got != 1 {
		t.Errorf("expected 1, received %v", got)
	}
	if got := Clip(-5, 0, 1); got != 0 {
		t.Errorf("expected 0, received %v", got)
	}
	if got := Clip(0.5, 0, 1); got != 0.5 {
		t.Errorf("expected 0.5, received %v", got)
	}
}
