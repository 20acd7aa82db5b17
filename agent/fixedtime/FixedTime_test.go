package fixedtime

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/coolport/thesis/timestep"
)

func TestAlwaysStays(t *testing.T) {
	f := New()
	obs := mat.NewVecDense(17, nil)
	for i := 0; i < 10; i++ {
		obs.SetVec(i, float64(i))
		ts := timestep.New(timestep.Mid, -float64(i), obs, i)
		if a := f.SelectAction(ts); a != timestep.Stay {
			t.Fatalf("expected %v, received %v", timestep.Stay, a)
		}
	}

	if err := f.Load("does-not-exist"); err != nil {
		t.Errorf("expected load to be a no-op, received %v", err)
	}
}
