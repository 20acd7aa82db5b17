package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     activation
}

// newFCLayer adds the weights and bias of a new fully connected layer to
// the graph. Node names are derived from name and must be unique in g.
func newFCLayer(g *G.ExprGraph, in, out int, init G.InitWFn,
	act activation, name string) *fcLayer {
	weights := G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
		G.WithName(fmt.Sprintf("%v-w", name)), G.WithInit(init))
	bias := G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
		G.WithName(fmt.Sprintf("%v-b", name)), G.WithInit(G.Zeroes()))

	return &fcLayer{weights: weights, bias: bias, act: act}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, err
	}
	return f.act(x)
}

// cloneTo clones an fcLayer, including its weights, to a new
// computational graph
func (f *fcLayer) cloneTo(g *G.ExprGraph) *fcLayer {
	return &fcLayer{
		weights: f.weights.CloneTo(g),
		bias:    f.bias.CloneTo(g),
		act:     f.act,
	}
}

func cloneLayers(layers []*fcLayer, g *G.ExprGraph) []*fcLayer {
	cloned := make([]*fcLayer, len(layers))
	for i, l := range layers {
		cloned[i] = l.cloneTo(g)
	}
	return cloned
}

func fwdLayers(layers []*fcLayer, x *G.Node) (*G.Node, error) {
	var err error
	for i, l := range layers {
		if x, err = l.fwd(x); err != nil {
			return nil, fmt.Errorf("layer %v: %w", i, err)
		}
	}
	return x, nil
}
