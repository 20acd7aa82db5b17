package initwfn

import "testing"

func TestCreate(t *testing.T) {
	for _, typ := range []Type{GlorotU, GlorotN, HeU, HeN, Zeroes, ""} {
		f, err := Config{Type: typ}.Create()
		if err != nil || f == nil {
			t.Errorf("%q: expected an initializer, received %v", typ, err)
		}
	}

	if _, err := (Config{Type: "Orthogonal"}).Create(); err == nil {
		t.Errorf("expected an error for an unknown initializer")
	}
}
