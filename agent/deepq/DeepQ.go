// Package deepq implements value-network agents trained from experience
// replay with a soft-updated target network and the Huber loss.
package deepq

import (
	"encoding/gob"
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/expreplay"
	"github.com/coolport/thesis/network"
	"github.com/coolport/thesis/timestep"
	"github.com/coolport/thesis/utils/floatutils"
)

// DeepQ implements deep Q-learning with an ε-greedy behaviour policy.
// Created with New, the update target is r + γ·max_a' Q⁻(s', a'). Created
// with NewDueling, the network is a dueling network and the update target
// is the double estimate r + γ·Q⁻(s', argmax_a' Q(s', a')).
type DeepQ struct {
	// Network that selects actions, batch size 1
	behaviourNet network.NeuralNet
	behaviourVM  G.VM

	// Network whose weights are adapted, batch size BatchSize
	trainNet network.NeuralNet
	trainVM  G.VM
	solver   G.Solver

	// Target network providing the update target
	targetNet network.NeuralNet
	targetVM  G.VM

	// Online network evaluated on next states for double estimation. Nil
	// unless double is set.
	selectNet network.NeuralNet
	selectVM  G.VM
	double    bool

	selectedActions *G.Node // One-hot actions taken in the sampled states
	targets         *G.Node // Update targets of the sampled transitions
	lossVal         G.Value

	tau           float64
	discount      float64
	gradientSteps int

	replay     *expreplay.Memory
	batchSize  int
	numActions int

	epsilon float64
	rng     *rand.Rand
	eval    bool
}

// New creates a value-network agent over an MLP mapping features state
// features to numActions action values
func New(features, numActions int, c Config) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	init, err := c.Init.Create()
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	net, err := network.NewMultiHeadMLP(features, 1, numActions, G.NewGraph(),
		c.HiddenSizes, init)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour network: %w",
			err)
	}
	return newDeepQ(net, numActions, c, false)
}

// NewDueling creates a dueling-network agent that uses double estimation
// for its update targets
func NewDueling(features, numActions int, c Config) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newDueling: %w", err)
	}
	init, err := c.Init.Create()
	if err != nil {
		return nil, fmt.Errorf("newDueling: %w", err)
	}

	net, err := network.NewDueling(features, 1, numActions, G.NewGraph(),
		c.HiddenSizes, c.StreamSize, init)
	if err != nil {
		return nil, fmt.Errorf("newDueling: could not create behaviour "+
			"network: %w", err)
	}
	return newDeepQ(net, numActions, c, true)
}

func newDeepQ(behaviourNet network.NeuralNet, numActions int, c Config,
	double bool) (*DeepQ, error) {
	batchSize := c.BatchSize

	targetNet, err := behaviourNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %w", err)
	}

	var selectNet network.NeuralNet
	var selectVM G.VM
	if double {
		selectNet, err = behaviourNet.CloneWithBatch(batchSize)
		if err != nil {
			return nil, fmt.Errorf("new: could not create selection "+
				"network: %w", err)
		}
		selectVM = G.NewTapeMachine(selectNet.Graph())
	}

	trainNet, err := behaviourNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create learning network: %w",
			err)
	}
	gTrain := trainNet.Graph()

	// Action selected in each sampled state. The network outputs one value
	// per action, so the loss is computed on the masked sum.
	selectedActions := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("actionSelected"),
		G.WithInit(G.Zeroes()))
	targets := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("updateTarget"), G.WithInit(G.Zeroes()))

	selectedActionsValue, err := G.HadamardProd(trainNet.Prediction(),
		selectedActions)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	selectedActionsValue, err = G.Sum(selectedActionsValue, 1)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	cost, err := smoothL1(selectedActionsValue, targets)
	if err != nil {
		return nil, fmt.Errorf("new: could not compute loss: %w", err)
	}
	if _, err = G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %w", err)
	}

	d := &DeepQ{
		behaviourNet:    behaviourNet,
		behaviourVM:     G.NewTapeMachine(behaviourNet.Graph()),
		trainNet:        trainNet,
		targetNet:       targetNet,
		targetVM:        G.NewTapeMachine(targetNet.Graph()),
		selectNet:       selectNet,
		selectVM:        selectVM,
		double:          double,
		selectedActions: selectedActions,
		targets:         targets,
		tau:             c.Tau,
		discount:        c.Discount,
		batchSize:       batchSize,
		numActions:      numActions,
		epsilon:         c.Epsilon,
		rng:             rand.New(rand.NewSource(c.Seed)),
	}
	G.Read(cost, &d.lossVal)

	d.trainVM = G.NewTapeMachine(gTrain,
		G.BindDualValues(trainNet.Learnables()...))
	if d.solver, err = c.Solver.Create(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	d.replay, err = expreplay.New(c.Capacity, behaviourNet.Features(),
		c.Seed+1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay memory: %w", err)
	}
	return d, nil
}

// SelectAction runs the behaviour network and returns an ε-greedy
// action. In evaluation mode the greedy action is always returned. Ties
// are broken in favour of the first action.
func (d *DeepQ) SelectAction(t timestep.TimeStep) timestep.Action {
	if !d.eval && d.rng.Float64() < d.epsilon {
		return timestep.Action(d.rng.Intn(d.numActions))
	}
	return timestep.Action(floatutils.ArgMax(d.ActionValues(t)))
}

// ActionValues returns the action values predicted by the behaviour
// network for a timestep's observation
func (d *DeepQ) ActionValues(t timestep.TimeStep) []float64 {
	obs := t.Observation.RawVector().Data
	if err := d.behaviourNet.SetInput(obs); err != nil {
		panic(fmt.Sprintf("actionValues: %v", err))
	}
	if err := d.behaviourVM.RunAll(); err != nil {
		panic(fmt.Sprintf("actionValues: %v", err))
	}
	values := append([]float64{}, outputs(d.behaviourNet)...)
	d.behaviourVM.Reset()
	return values
}

// Observe stores a transition in the replay memory
func (d *DeepQ) Observe(t timestep.Transition) error {
	if int(t.Action) < 0 || int(t.Action) >= d.numActions {
		return fmt.Errorf("observe: %w", &timestep.InvalidActionError{
			Action: t.Action})
	}
	if err := d.replay.Add(t); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	return nil
}

// Step performs one gradient step on a batch sampled from the replay
// memory, then soft-updates the target network. Step is a no-op until
// the replay memory holds a full batch.
func (d *DeepQ) Step() error {
	batch, err := d.replay.Sample(d.batchSize)
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("step: %w", err)
	}

	next, err := d.nextValues(batch.NextStates)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}
	updateTarget := BootstrapTargets(batch.Rewards, next, batch.NonTerminal,
		d.discount)

	// Previous action one-hot vectors
	oneHot := make([]float64, d.batchSize*d.numActions)
	for i, a := range batch.Actions {
		oneHot[i*d.numActions+a] = 1.0
	}
	err = G.Let(d.selectedActions, tensor.New(
		tensor.WithShape(d.batchSize, d.numActions),
		tensor.WithBacking(oneHot),
	))
	if err != nil {
		return fmt.Errorf("step: could not set selected actions: %w", err)
	}
	err = G.Let(d.targets, tensor.New(
		tensor.WithShape(d.batchSize),
		tensor.WithBacking(updateTarget),
	))
	if err != nil {
		return fmt.Errorf("step: could not set update targets: %w", err)
	}
	if err := d.trainNet.SetInput(batch.States); err != nil {
		return fmt.Errorf("step: could not set trainNet input: %w", err)
	}

	// Run the learning step
	if err := d.trainVM.RunAll(); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	d.trainVM.Reset()
	d.gradientSteps++

	if err := d.targetNet.Polyak(d.trainNet, d.tau); err != nil {
		return fmt.Errorf("step: could not update target network: %w", err)
	}
	return d.syncOnline()
}

// nextValues returns the value of each next state in a batch under the
// target network
func (d *DeepQ) nextValues(nextStates []float64) ([]float64, error) {
	if err := d.targetNet.SetInput(nextStates); err != nil {
		return nil, fmt.Errorf("could not set target net input: %w", err)
	}
	if err := d.targetVM.RunAll(); err != nil {
		return nil, err
	}
	target := append([]float64{}, outputs(d.targetNet)...)
	d.targetVM.Reset()

	if !d.double {
		return RowMax(target, d.numActions), nil
	}

	if err := d.selectNet.SetInput(nextStates); err != nil {
		return nil, fmt.Errorf("could not set selection net input: %w", err)
	}
	if err := d.selectVM.RunAll(); err != nil {
		return nil, err
	}
	online := append([]float64{}, outputs(d.selectNet)...)
	d.selectVM.Reset()

	return DoubleEstimate(online, target, d.numActions), nil
}

// syncOnline copies the learned weights into the networks that read them
func (d *DeepQ) syncOnline() error {
	if err := d.behaviourNet.Set(d.trainNet); err != nil {
		return fmt.Errorf("could not set behaviour network: %w", err)
	}
	if d.double {
		if err := d.selectNet.Set(d.trainNet); err != nil {
			return fmt.Errorf("could not set selection network: %w", err)
		}
	}
	return nil
}

func outputs(net network.NeuralNet) []float64 {
	return net.Output().Data().([]float64)
}

// Loss returns the loss of the most recent gradient step
func (d *DeepQ) Loss() float64 {
	if d.lossVal == nil {
		return 0
	}
	loss, _ := d.lossVal.Data().(float64)
	return loss
}

// GradientSteps returns the number of gradient steps taken
func (d *DeepQ) GradientSteps() int {
	return d.gradientSteps
}

// Memory returns the agent's replay memory
func (d *DeepQ) Memory() *expreplay.Memory {
	return d.replay
}

// SetEpsilon sets the exploration rate of the behaviour policy
func (d *DeepQ) SetEpsilon(e float64) {
	d.epsilon = e
}

// Epsilon returns the exploration rate of the behaviour policy
func (d *DeepQ) Epsilon() float64 {
	return d.epsilon
}

// Eval sets the agent to evaluation mode
func (d *DeepQ) Eval() {
	d.eval = true
}

// Train sets the agent to training mode
func (d *DeepQ) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.eval
}

type checkpoint struct {
	Double  bool
	Network network.Snapshot
}

// Save writes the learned network to path with encoding/gob
func (d *DeepQ) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	c := checkpoint{Double: d.double, Network: network.TakeSnapshot(d.trainNet)}
	if err := gob.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("save: could not encode network: %w", err)
	}
	return f.Close()
}

// Load restores the network stored at path into every network of the
// agent
func (d *DeepQ) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &envconfig.ConfigurationError{Op: "load", Err: err}
	}
	defer f.Close()

	var c checkpoint
	if err := gob.NewDecoder(f).Decode(&c); err != nil {
		return &envconfig.ConfigurationError{Op: "load",
			Err: fmt.Errorf("could not decode network %v: %w", path, err)}
	}
	if c.Double != d.double {
		return &envconfig.ConfigurationError{Op: "load",
			Err: fmt.Errorf("model %v was trained with double estimation "+
				"set to %v", path, c.Double)}
	}
	if err := c.Network.Restore(d.trainNet); err != nil {
		return &envconfig.ConfigurationError{Op: "load", Err: err}
	}

	if err := d.targetNet.Set(d.trainNet); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := d.syncOnline(); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

// Close releases the agent's computational graph machines
func (d *DeepQ) Close() error {
	vms := []G.VM{d.behaviourVM, d.trainVM, d.targetVM}
	if d.selectVM != nil {
		vms = append(vms, d.selectVM)
	}
	for _, vm := range vms {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %w", err)
		}
	}
	return nil
}
