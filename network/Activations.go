package network

import (
	G "gorgonia.org/gorgonia"
)

// activation is the nonlinearity applied to a layer's affine output
type activation func(x *G.Node) (*G.Node, error)

var (
	relu     activation = G.Rectify
	identity activation = func(x *G.Node) (*G.Node, error) { return x, nil }
)
