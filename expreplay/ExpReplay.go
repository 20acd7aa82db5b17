// Package expreplay implements a fixed-capacity experience replay memory
package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/coolport/thesis/timestep"
)

// Batch is a batch of transitions sampled from a Memory. States and
// NextStates are stored row-major with one row per transition.
// NonTerminal is 0 for transitions that ended an episode and 1 otherwise;
// the NextStates rows of terminal transitions are zero.
type Batch struct {
	States      []float64
	Actions     []int
	Rewards     []float64
	NextStates  []float64
	NonTerminal []float64
	Size        int
}

// Memory is a cyclic experience replay memory. Once full, each insertion
// evicts the oldest stored transition. Batches are sampled uniformly
// without replacement within a batch, and with replacement across batches.
//
// A Memory is not safe for concurrent use.
type Memory struct {
	stateCache       []float64
	actionCache      []int
	rewardCache      []float64
	nextStateCache   []float64
	nonTerminalCache []float64

	// indices[:Len()] is always a permutation of the in-use positions
	indices         []int
	currentInUsePos int
	isFull          bool

	featureSize int
	maxCapacity int
	rng         *rand.Rand
}

// New returns a new Memory holding at most capacity transitions whose
// states have featureSize features
func New(capacity, featureSize int, seed uint64) (*Memory, error) {
	if capacity < 1 {
		return nil, &ExpReplayError{Op: "new",
			Err: fmt.Errorf("capacity must be positive, got %d", capacity)}
	}
	if featureSize < 1 {
		return nil, &ExpReplayError{Op: "new",
			Err: fmt.Errorf("feature size must be positive, got %d", featureSize)}
	}

	indices := make([]int, capacity)
	for i := range indices {
		indices[i] = i
	}

	return &Memory{
		stateCache:       make([]float64, capacity*featureSize),
		actionCache:      make([]int, capacity),
		rewardCache:      make([]float64, capacity),
		nextStateCache:   make([]float64, capacity*featureSize),
		nonTerminalCache: make([]float64, capacity),
		indices:          indices,
		featureSize:      featureSize,
		maxCapacity:      capacity,
		rng:              rand.New(rand.NewSource(seed)),
	}, nil
}

// Add stores a transition, evicting the oldest one if the memory is full
func (m *Memory) Add(t timestep.Transition) error {
	if err := t.Action.Validate(); err != nil {
		return &ExpReplayError{Op: "add", Err: err}
	}
	if t.State == nil || t.State.Len() != m.featureSize {
		return &ExpReplayError{Op: "add",
			Err: fmt.Errorf("state must have %d features", m.featureSize)}
	}
	if t.NextState != nil && t.NextState.Len() != m.featureSize {
		return &ExpReplayError{Op: "add",
			Err: fmt.Errorf("next state must have %d features", m.featureSize)}
	}

	pos := m.currentInUsePos
	row := m.stateCache[pos*m.featureSize : (pos+1)*m.featureSize]
	copyVec(row, t.State)

	next := m.nextStateCache[pos*m.featureSize : (pos+1)*m.featureSize]
	if t.Terminal() {
		for i := range next {
			next[i] = 0
		}
		m.nonTerminalCache[pos] = 0
	} else {
		copyVec(next, t.NextState)
		m.nonTerminalCache[pos] = 1
	}
	m.actionCache[pos] = int(t.Action)
	m.rewardCache[pos] = t.Reward

	m.currentInUsePos++
	if m.currentInUsePos >= m.maxCapacity {
		m.isFull = true
		m.currentInUsePos = 0
	}
	return nil
}

func copyVec(dst []float64, src *mat.VecDense) {
	if raw := src.RawVector(); raw.Inc == 1 {
		copy(dst, raw.Data[:len(dst)])
		return
	}
	for i := range dst {
		dst[i] = src.AtVec(i)
	}
}

// Sample returns n distinct transitions chosen uniformly at random. If
// fewer than n transitions are stored, an error satisfying
// IsInsufficientSamples is returned.
func (m *Memory) Sample(n int) (Batch, error) {
	size := m.Len()
	if size == 0 {
		return Batch{}, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if n < 1 {
		return Batch{}, &ExpReplayError{Op: "sample",
			Err: fmt.Errorf("batch size must be positive, got %d", n)}
	}
	if size < n {
		return Batch{}, &ExpReplayError{Op: "sample", Err: errInsufficientSamples}
	}

	// Partial Fisher-Yates shuffle of the in-use positions
	for i := 0; i < n; i++ {
		j := i + m.rng.Intn(size-i)
		m.indices[i], m.indices[j] = m.indices[j], m.indices[i]
	}

	b := Batch{
		States:      make([]float64, n*m.featureSize),
		Actions:     make([]int, n),
		Rewards:     make([]float64, n),
		NextStates:  make([]float64, n*m.featureSize),
		NonTerminal: make([]float64, n),
		Size:        n,
	}
	for i, pos := range m.indices[:n] {
		src := m.stateCache[pos*m.featureSize : (pos+1)*m.featureSize]
		copy(b.States[i*m.featureSize:], src)

		src = m.nextStateCache[pos*m.featureSize : (pos+1)*m.featureSize]
		copy(b.NextStates[i*m.featureSize:], src)

		b.Actions[i] = m.actionCache[pos]
		b.Rewards[i] = m.rewardCache[pos]
		b.NonTerminal[i] = m.nonTerminalCache[pos]
	}
	return b, nil
}

// Transitions returns the stored transitions from oldest to newest
func (m *Memory) Transitions() []timestep.Transition {
	order := make([]int, 0, m.Len())
	if m.isFull {
		for i := m.currentInUsePos; i < m.maxCapacity; i++ {
			order = append(order, i)
		}
	}
	for i := 0; i < m.currentInUsePos; i++ {
		order = append(order, i)
	}

	out := make([]timestep.Transition, len(order))
	for i, pos := range order {
		state := make([]float64, m.featureSize)
		copy(state, m.stateCache[pos*m.featureSize:])
		out[i] = timestep.Transition{
			State:  mat.NewVecDense(m.featureSize, state),
			Action: timestep.Action(m.actionCache[pos]),
			Reward: m.rewardCache[pos],
		}

		if m.nonTerminalCache[pos] != 0 {
			next := make([]float64, m.featureSize)
			copy(next, m.nextStateCache[pos*m.featureSize:])
			out[i].NextState = mat.NewVecDense(m.featureSize, next)
		}
	}
	return out
}

// Len returns the number of stored transitions
func (m *Memory) Len() int {
	if m.isFull {
		return m.maxCapacity
	}
	return m.currentInUsePos
}

// Capacity returns the maximum number of stored transitions
func (m *Memory) Capacity() int {
	return m.maxCapacity
}

// FeatureSize returns the number of features of each stored state
func (m *Memory) FeatureSize() int {
	return m.featureSize
}
