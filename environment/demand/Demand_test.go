package demand

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := map[string]int{
		"00:00:00": 0,
		"00:01:00": 60,
		"01:00:30": 3630,
		"23:59:59": 86399,
	}
	for clock, expected := range tests {
		got, err := ParseClock(clock)
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", clock, err)
			continue
		}
		if got != expected {
			t.Errorf("ParseClock(%q): expected %v, received %v", clock,
				expected, got)
		}
	}

	for _, bad := range []string{"", "12:00", "aa:00:00", "24:00:00", "10:61:00"} {
		if _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q): expected an error", bad)
		}
	}
}

func TestLookup(t *testing.T) {
	north, err := NewCurve([]Record{
		{Time: "00:00:00", ExpectedDemand: 100},
		{Time: "00:01:00", ExpectedDemand: 200},
		{Time: "00:03:00", ExpectedDemand: 400},
	})
	if err != nil {
		t.Fatal(err)
	}
	late, err := NewCurve([]Record{{Time: "00:05:00", ExpectedDemand: 50}})
	if err != nil {
		t.Fatal(err)
	}
	c := New(map[Direction]*Curve{North: north, East: late})

	tests := []struct {
		dir      Direction
		simTime  float64
		expected float64
	}{
		{North, 0, 100},
		{North, 59.9, 100},
		{North, 60, 200},
		{North, 119, 200},
		{North, 150, 200}, // un-keyed minute falls back to the previous record
		{North, 185, 400},
		{North, SecondsPerDay + 65, 200},
		{East, 0, 0},
		{East, 300, 50},
		{South, 120, 0},
	}

	for _, test := range tests {
		got := c.Lookup(test.dir, test.simTime)
		if got != test.expected {
			t.Errorf("Lookup(%v, %v): expected %v, received %v", test.dir,
				test.simTime, test.expected, got)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "north.json")
	data := `[{"time": "00:00:00", "expected_demand": 1200.5},
	          {"time": "00:01:00", "expected_demand": 1300}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(map[Direction]string{North: path, South: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Lookup(North, 30); got != 1200.5 {
		t.Errorf("north: expected 1200.5, received %v", got)
	}
	if got := c.Lookup(South, 61); got != 1300 {
		t.Errorf("south: expected 1300, received %v", got)
	}

	if _, err := Load(map[Direction]string{West: filepath.Join(dir, "nope.json")}); err == nil {
		t.Errorf("Load: expected an error for a missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"time": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Errorf("LoadFile: expected an error for malformed JSON")
	}
}
