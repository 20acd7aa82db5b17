package qlearning

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Level is the bucket of a discretized queue length
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Thresholds between buckets. Values are compared as they appear in the
// state vector.
const (
	LowThreshold    = 5.0
	MediumThreshold = 15.0
)

// NumQueues is the number of leading state components that are
// discretized. Forecast and phase components do not index the table.
const NumQueues = 12

// Key is the discretized queue signature of a state
type Key [NumQueues]Level

func (k Key) String() string {
	levels := make([]string, len(k))
	for i, l := range k {
		levels[i] = string(l)
	}
	return "(" + strings.Join(levels, ", ") + ")"
}

// Valid returns whether every component of the key is a known Level
func (k Key) Valid() bool {
	for _, l := range k {
		if l != Low && l != Medium && l != High {
			return false
		}
	}
	return true
}

// Bucket discretizes a single queue component
func Bucket(v float64) Level {
	switch {
	case v < LowThreshold:
		return Low
	case v < MediumThreshold:
		return Medium
	default:
		return High
	}
}

// Discretize returns the key of a state from its first NumQueues
// components
func Discretize(state mat.Vector) Key {
	if state.Len() < NumQueues {
		panic(fmt.Sprintf("discretize: state must have at least %d "+
			"components, got %d", NumQueues, state.Len()))
	}

	var k Key
	for i := range k {
		k[i] = Bucket(state.AtVec(i))
	}
	return k
}

// Table maps discretized states to action values
type Table struct {
	values     map[Key][]float64
	numActions int
}

// NewTable returns an empty table over numActions actions
func NewTable(numActions int) *Table {
	return &Table{
		values:     make(map[Key][]float64),
		numActions: numActions,
	}
}

// Values returns the action values of a key. A key seen for the first
// time is stored with all-zero values. The returned slice aliases the
// table.
func (t *Table) Values(k Key) []float64 {
	v, ok := t.values[k]
	if !ok {
		v = make([]float64, t.numActions)
		t.values[k] = v
	}
	return v
}

// Lookup returns the action values of a key without storing it
func (t *Table) Lookup(k Key) ([]float64, bool) {
	v, ok := t.values[k]
	return v, ok
}

// Len returns the number of stored keys
func (t *Table) Len() int {
	return len(t.values)
}

// NumActions returns the number of action values per key
func (t *Table) NumActions() int {
	return t.numActions
}
