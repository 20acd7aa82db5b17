package network

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// qNetwork predicts one action value per output. Its layers are a shared
// trunk followed by one head for MLP networks, or a value and an
// advantage stream for Dueling networks.
type qNetwork struct {
	g          *G.ExprGraph
	arch       Architecture
	input      *G.Node
	numInputs  int
	numOutputs int
	batchSize  int

	hiddenSizes []int
	streamSize  int

	trunk []*fcLayer
	heads [][]*fcLayer

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// with one output per action. The graph parameter g is populated with
// the MLP.
//
// The MLP has len(hiddenSizes) ReLU hidden layers, each with a bias
// unit, followed by a linear output layer of size outputs. The parameter
// init determines the weight initialization scheme; biases start at zero.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, init G.InitWFn) (NeuralNet, error) {
	if err := validate(features, batch, outputs, hiddenSizes); err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: %w", err)
	}

	trunk, last := addTrunk(g, features, hiddenSizes, init)
	head := []*fcLayer{newFCLayer(g, last, outputs, init, identity, "out")}

	net := &qNetwork{
		g:           g,
		arch:        MLP,
		numInputs:   features,
		numOutputs:  outputs,
		batchSize:   batch,
		hiddenSizes: hiddenSizes,
		trunk:       trunk,
		heads:       [][]*fcLayer{head},
	}
	if err := net.fwd(newInput(g, batch, features)); err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: could not compute forward "+
			"pass: %w", err)
	}
	return net, nil
}

// NewDueling creates and returns a new dueling network. A shared trunk of
// ReLU layers with sizes hiddenSizes feeds a value stream and an
// advantage stream, each with one ReLU hidden layer of size streamSize.
// The streams are combined as Q = V + (A - mean(A)).
func NewDueling(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, streamSize int, init G.InitWFn) (NeuralNet, error) {
	if err := validate(features, batch, outputs, hiddenSizes); err != nil {
		return nil, fmt.Errorf("newDueling: %w", err)
	}
	if streamSize < 1 {
		return nil, fmt.Errorf("newDueling: stream size must be positive")
	}

	trunk, last := addTrunk(g, features, hiddenSizes, init)
	value := []*fcLayer{
		newFCLayer(g, last, streamSize, init, relu, "value0"),
		newFCLayer(g, streamSize, 1, init, identity, "value1"),
	}
	advantage := []*fcLayer{
		newFCLayer(g, last, streamSize, init, relu, "advantage0"),
		newFCLayer(g, streamSize, outputs, init, identity, "advantage1"),
	}

	net := &qNetwork{
		g:           g,
		arch:        Dueling,
		numInputs:   features,
		numOutputs:  outputs,
		batchSize:   batch,
		hiddenSizes: hiddenSizes,
		streamSize:  streamSize,
		trunk:       trunk,
		heads:       [][]*fcLayer{value, advantage},
	}
	if err := net.fwd(newInput(g, batch, features)); err != nil {
		return nil, fmt.Errorf("newDueling: could not compute forward "+
			"pass: %w", err)
	}
	return net, nil
}

func validate(features, batch, outputs int, hiddenSizes []int) error {
	if features < 1 || batch < 1 || outputs < 1 {
		return fmt.Errorf("features (%v), batch (%v), and outputs (%v) "+
			"must be positive", features, batch, outputs)
	}
	for i, h := range hiddenSizes {
		if h < 1 {
			return fmt.Errorf("hidden layer %v has invalid size %v", i, h)
		}
	}
	return nil
}

func newInput(g *G.ExprGraph, batch, features int) *G.Node {
	return G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))
}

func addTrunk(g *G.ExprGraph, features int, hiddenSizes []int,
	init G.InitWFn) ([]*fcLayer, int) {
	trunk := make([]*fcLayer, len(hiddenSizes))
	in := features
	for i, h := range hiddenSizes {
		trunk[i] = newFCLayer(g, in, h, init, relu, fmt.Sprintf("hidden%d", i))
		in = h
	}
	return trunk, in
}

// fwd builds the forward pass of the network on the input node
func (q *qNetwork) fwd(input *G.Node) error {
	q.input = input

	features, err := fwdLayers(q.trunk, input)
	if err != nil {
		return fmt.Errorf("trunk: %w", err)
	}

	var pred *G.Node
	switch q.arch {
	case MLP:
		pred, err = fwdLayers(q.heads[0], features)
		if err != nil {
			return fmt.Errorf("head: %w", err)
		}

	case Dueling:
		value, err := fwdLayers(q.heads[0], features)
		if err != nil {
			return fmt.Errorf("value stream: %w", err)
		}
		advantage, err := fwdLayers(q.heads[1], features)
		if err != nil {
			return fmt.Errorf("advantage stream: %w", err)
		}
		pred, err = combine(q.g, value, advantage, q.numOutputs)
		if err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown architecture %q", q.arch)
	}

	q.prediction = pred
	G.Read(q.prediction, &q.predVal)
	return nil
}

// combine computes V·1ᵀ + A·(I - 11ᵀ/n), which equals V + A - mean(A)
// row-wise
func combine(g *G.ExprGraph, value, advantage *G.Node, n int) (*G.Node, error) {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	expand := G.NewMatrix(g, tensor.Float64, G.WithShape(1, n),
		G.WithName("dueling-expand"), G.WithValue(tensor.New(
			tensor.WithShape(1, n), tensor.WithBacking(ones))))

	centring := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			centring[i*n+j] = -1 / float64(n)
			if i == j {
				centring[i*n+j] += 1
			}
		}
	}
	centre := G.NewMatrix(g, tensor.Float64, G.WithShape(n, n),
		G.WithName("dueling-centre"), G.WithValue(tensor.New(
			tensor.WithShape(n, n), tensor.WithBacking(centring))))

	v, err := G.Mul(value, expand)
	if err != nil {
		return nil, fmt.Errorf("combine: %w", err)
	}
	a, err := G.Mul(advantage, centre)
	if err != nil {
		return nil, fmt.Errorf("combine: %w", err)
	}
	return G.Add(v, a)
}

// Graph returns the computational graph of the network
func (q *qNetwork) Graph() *G.ExprGraph {
	return q.g
}

// Architecture returns the architecture of the network
func (q *qNetwork) Architecture() Architecture {
	return q.arch
}

// CloneWithBatch clones a network, including its weights, into a new
// computational graph with a new input batch size.
func (q *qNetwork) CloneWithBatch(batchSize int) (NeuralNet, error) {
	g := G.NewGraph()

	heads := make([][]*fcLayer, len(q.heads))
	for i, h := range q.heads {
		heads[i] = cloneLayers(h, g)
	}

	net := &qNetwork{
		g:           g,
		arch:        q.arch,
		numInputs:   q.numInputs,
		numOutputs:  q.numOutputs,
		batchSize:   batchSize,
		hiddenSizes: q.hiddenSizes,
		streamSize:  q.streamSize,
		trunk:       cloneLayers(q.trunk, g),
		heads:       heads,
	}
	if err := net.fwd(newInput(g, batchSize, q.numInputs)); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone: %w", err)
	}
	return net, nil
}

// BatchSize returns the batch size of inputs to the network
func (q *qNetwork) BatchSize() int {
	return q.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (q *qNetwork) Features() int {
	return q.numInputs
}

// Outputs returns the number of outputs from the network
func (q *qNetwork) Outputs() int {
	return q.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (q *qNetwork) SetInput(input []float64) error {
	if len(input) != q.numInputs*q.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", q.numInputs*q.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(q.input.Shape()...),
	)
	return G.Let(q.input, inputTensor)
}

// Set sets the weights of a network to be equal to the weights of
// another network with the same layout
func (q *qNetwork) Set(source NeuralNet) error {
	return q.eachLearnable(source, func(dst, src []float64) {
		copy(dst, src)
	})
}

// Polyak sets the weights of a network to be a polyak average between
// its existing weights and the weights of another network:
// θ ← τθ_source + (1-τ)θ
func (q *qNetwork) Polyak(source NeuralNet, tau float64) error {
	if tau < 0 || tau > 1 {
		return fmt.Errorf("polyak: tau must be in [0, 1], got %v", tau)
	}
	return q.eachLearnable(source, func(dst, src []float64) {
		floats.Scale(1-tau, dst)
		floats.AddScaled(dst, tau, src)
	})
}

func (q *qNetwork) eachLearnable(source NeuralNet,
	f func(dst, src []float64)) error {
	if source.Architecture() != q.arch {
		return fmt.Errorf("cannot copy weights of a %v network into a %v "+
			"network", source.Architecture(), q.arch)
	}

	sourceNodes := source.Learnables()
	nodes := q.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("networks have different numbers of layers")
	}

	for i := range nodes {
		dst, src := data(nodes[i]), data(sourceNodes[i])
		if len(dst) != len(src) {
			return fmt.Errorf("learnable %v: sizes differ (%v != %v)",
				nodes[i].Name(), len(dst), len(src))
		}
		f(dst, src)
	}
	return nil
}

// data returns the backing data of a learnable node's value
func data(n *G.Node) []float64 {
	return n.Value().Data().([]float64)
}

// Learnables returns the learnable nodes in a network
func (q *qNetwork) Learnables() G.Nodes {
	// Lazy instantiation
	if q.learnables == nil {
		q.learnables = q.computeLearnables()
	}
	return q.learnables
}

// computeLearnables computes all the learnables for the network
func (q *qNetwork) computeLearnables() G.Nodes {
	layers := append([]*fcLayer{}, q.trunk...)
	for _, h := range q.heads {
		layers = append(layers, h...)
	}

	learnables := make([]*G.Node, 0, 2*len(layers))
	for _, l := range layers {
		learnables = append(learnables, l.weights, l.bias)
	}
	return G.Nodes(learnables)
}

// Model returns the learnables nodes with their gradients.
func (q *qNetwork) Model() []G.ValueGrad {
	// Lazy instantiation
	if q.model == nil {
		for _, node := range q.Learnables() {
			q.model = append(q.model, node)
		}
	}
	return q.model
}

// Output returns the output of the network after the computational graph
// has been run.
func (q *qNetwork) Output() G.Value {
	return q.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the network
func (q *qNetwork) Prediction() *G.Node {
	return q.prediction
}
