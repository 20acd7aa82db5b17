// Package network implements the action-value function approximators used
// by the deep agents
package network

import (
	G "gorgonia.org/gorgonia"
)

// Architecture names the structure of a NeuralNet
type Architecture string

const (
	// MLP is a feed forward network with one linear output per action
	MLP Architecture = "mlp"

	// Dueling splits a shared trunk into a state-value stream and an
	// advantage stream that are recombined into one output per action
	Dueling Architecture = "dueling"
)

// NeuralNet is a neural network built in a gorgonia computational graph
type NeuralNet interface {
	Graph() *G.ExprGraph
	Architecture() Architecture
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}
