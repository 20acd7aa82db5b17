package solver

import "testing"

func TestCreate(t *testing.T) {
	for _, typ := range []Type{Adam, Vanilla, RMSProp, ""} {
		c := NewDefaultAdam(1e-4, 100)
		c.Type = typ
		s, err := c.Create()
		if err != nil {
			t.Errorf("%q: unexpected error %v", typ, err)
		}
		if s == nil {
			t.Errorf("%q: nil solver", typ)
		}
	}

	if _, err := (Config{Type: "SGDR", StepSize: 0.1}).Create(); err == nil {
		t.Errorf("expected an error for an unknown solver")
	}
	if _, err := (Config{Type: Adam}).Create(); err == nil {
		t.Errorf("expected an error for a zero step size")
	}
}
