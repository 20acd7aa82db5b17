package deepq

import (
	G "gorgonia.org/gorgonia"
)

// smoothL1 adds the mean Huber loss (δ = 1) between predictions and
// targets to the graph. With a = |p - t| and c = min(a, 1), the loss of
// each element is c²/2 + (a - c).
func smoothL1(predictions, targets *G.Node) (*G.Node, error) {
	one := G.NewConstant(1.0)
	half := G.NewConstant(0.5)

	diff, err := G.Sub(predictions, targets)
	if err != nil {
		return nil, err
	}
	abs, err := G.Abs(diff)
	if err != nil {
		return nil, err
	}

	// min(a, 1) = (a + 1 - |a - 1|) / 2
	shifted, err := G.Sub(abs, one)
	if err != nil {
		return nil, err
	}
	spread, err := G.Abs(shifted)
	if err != nil {
		return nil, err
	}
	sum, err := G.Add(abs, one)
	if err != nil {
		return nil, err
	}
	clipped, err := G.Sub(sum, spread)
	if err != nil {
		return nil, err
	}
	clipped, err = G.HadamardProd(clipped, half)
	if err != nil {
		return nil, err
	}

	quadratic, err := G.Square(clipped)
	if err != nil {
		return nil, err
	}
	quadratic, err = G.HadamardProd(quadratic, half)
	if err != nil {
		return nil, err
	}
	linear, err := G.Sub(abs, clipped)
	if err != nil {
		return nil, err
	}

	losses, err := G.Add(quadratic, linear)
	if err != nil {
		return nil, err
	}
	return G.Mean(losses)
}
