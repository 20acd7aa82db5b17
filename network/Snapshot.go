package network

import (
	"fmt"
)

// Snapshot is a serializable copy of the learnable parameters of a
// NeuralNet. Snapshots are encoded with encoding/gob.
type Snapshot struct {
	Architecture Architecture
	Features     int
	Outputs      int
	Names        []string
	Shapes       [][]int
	Weights      [][]float64
}

// TakeSnapshot copies the learnable parameters of a network
func TakeSnapshot(net NeuralNet) Snapshot {
	learnables := net.Learnables()
	s := Snapshot{
		Architecture: net.Architecture(),
		Features:     net.Features(),
		Outputs:      net.Outputs(),
		Names:        make([]string, len(learnables)),
		Shapes:       make([][]int, len(learnables)),
		Weights:      make([][]float64, len(learnables)),
	}

	for i, node := range learnables {
		s.Names[i] = node.Name()
		s.Shapes[i] = append([]int{}, node.Shape()...)
		s.Weights[i] = append([]float64{}, data(node)...)
	}
	return s
}

// Restore copies the parameters of the snapshot into a network with the
// same layout
func (s Snapshot) Restore(net NeuralNet) error {
	if s.Architecture != net.Architecture() {
		return fmt.Errorf("restore: snapshot of a %v network cannot be "+
			"restored into a %v network", s.Architecture, net.Architecture())
	}
	if s.Features != net.Features() || s.Outputs != net.Outputs() {
		return fmt.Errorf("restore: snapshot maps %v features to %v outputs, "+
			"network maps %v to %v", s.Features, s.Outputs, net.Features(),
			net.Outputs())
	}

	learnables := net.Learnables()
	if len(learnables) != len(s.Weights) || len(s.Shapes) != len(s.Weights) {
		return fmt.Errorf("restore: snapshot has %v learnables, network "+
			"has %v", len(s.Weights), len(learnables))
	}

	for i, node := range learnables {
		if !sameShape(node.Shape(), s.Shapes[i]) {
			return fmt.Errorf("restore: learnable %v has shape %v, "+
				"snapshot has %v", node.Name(), node.Shape(), s.Shapes[i])
		}
		if len(s.Weights[i]) != len(data(node)) {
			return fmt.Errorf("restore: learnable %v: corrupt snapshot",
				node.Name())
		}
	}

	for i, node := range learnables {
		copy(data(node), s.Weights[i])
	}
	return nil
}

func sameShape(a []int, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
