package neuralnet

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Structure describes the shape of a fully connected network: the length of
// the input vector and the number of neurons in each layer, input side first.
type Structure struct {
	InputVectorLength int   `json:"inputVectorLength"`
	NeuronsByLayers   []int `json:"neuronsByLayers"`
}

func (s Structure) Validate() error {
	if len(s.NeuronsByLayers) == 0 {
		return ErrNoLayers
	}
	if s.InputVectorLength <= 0 {
		return errors.Wrapf(ErrBadStructure, "input vector length %d", s.InputVectorLength)
	}
	for i, n := range s.NeuronsByLayers {
		if n <= 0 {
			return errors.Wrapf(ErrBadStructure, "layer %d has %d neurons", i, n)
		}
	}
	return nil
}

func (s Structure) layerInputs(layer int) int {
	if layer == 0 {
		return s.InputVectorLength
	}
	return s.NeuronsByLayers[layer-1]
}

type Neuron struct {
	weights    []float64
	bias       float64
	output     float64
	activation ActivationFunction
}

// Compute returns act(w·input + bias) and caches it as the neuron's output.
func (n *Neuron) Compute(input []float64) (float64, error) {
	if len(input) != len(n.weights) {
		return 0, dimensionError(-1, -1, len(n.weights), len(input))
	}
	n.output = n.activate(input)
	return n.output, nil
}

func (n *Neuron) activate(input []float64) float64 {
	return n.activation.Activate(floats.Dot(n.weights, input) + n.bias)
}

func (n *Neuron) InputsCount() int { return len(n.weights) }

// Weights returns a copy of the weight vector.
func (n *Neuron) Weights() []float64 {
	w := make([]float64, len(n.weights))
	copy(w, n.weights)
	return w
}

func (n *Neuron) Bias() float64 { return n.bias }
func (n *Neuron) Output() float64 { return n.output }

type Layer struct {
	neurons    []*Neuron
	inputs     int
	output     []float64
	activation ActivationFunction
}

// Compute feeds the same input to every neuron; the i-th value of the result
// belongs to the i-th neuron.
func (l *Layer) Compute(input []float64) ([]float64, error) {
	if len(input) != l.inputs {
		return nil, dimensionError(-1, -1, l.inputs, len(input))
	}
	for i, neuron := range l.neurons {
		neuron.output = neuron.activate(input)
		l.output[i] = neuron.output
	}
	out := make([]float64, len(l.output))
	copy(out, l.output)
	return out, nil
}

// computeInto evaluates the layer into dst without touching any cache.
// Training workers use it with their own buffers.
func (l *Layer) computeInto(input, dst []float64) {
	for i, neuron := range l.neurons {
		dst[i] = neuron.activate(input)
	}
}

func (l *Layer) Neurons() []*Neuron { return l.neurons }
func (l *Layer) InputsCount() int { return l.inputs }
func (l *Layer) NeuronsCount() int { return len(l.neurons) }
func (l *Layer) Activation() ActivationFunction { return l.activation }

// Output returns a copy of the last computed layer output.
func (l *Layer) Output() []float64 {
	out := make([]float64, len(l.output))
	copy(out, l.output)
	return out
}

func (l *Layer) setActivation(activation ActivationFunction) {
	l.activation = activation
	for _, neuron := range l.neurons {
		neuron.activation = activation
	}
}

// NeuralNetwork is a stack of fully connected layers, input side first.
type NeuralNetwork struct {
	structure Structure
	layers    []*Layer
}

type Option func(*NeuralNetwork)

// WithActivation sets the activation function of every layer.
func WithActivation(activation ActivationFunction) Option {
	return func(nn *NeuralNetwork) {
		for _, layer := range nn.layers {
			layer.setActivation(activation)
		}
	}
}

// New builds a network of the given structure with weights taken from
// source. Every layer uses a sigmoid unless an option says otherwise.
func New(structure Structure, source WeightSource, opts ...Option) (*NeuralNetwork, error) {
	if err := structure.Validate(); err != nil {
		return nil, err
	}

	nn := &NeuralNetwork{
		structure: Structure{
			InputVectorLength: structure.InputVectorLength,
			NeuronsByLayers:   append([]int(nil), structure.NeuronsByLayers...),
		},
		layers: make([]*Layer, len(structure.NeuronsByLayers)),
	}
	for i, size := range structure.NeuronsByLayers {
		layer := &Layer{
			neurons:    make([]*Neuron, size),
			inputs:     structure.layerInputs(i),
			output:     make([]float64, size),
			activation: Sigmoid{},
		}
		for j := range layer.neurons {
			weights, bias, err := source.LoadWeights(i, j)
			if err != nil {
				return nil, errors.Wrapf(err, "loading weights of layer %d neuron %d", i, j)
			}
			if len(weights) != layer.inputs {
				return nil, dimensionError(i, j, layer.inputs, len(weights))
			}
			layer.neurons[j] = &Neuron{
				weights:    append([]float64(nil), weights...),
				bias:       bias,
				activation: layer.activation,
			}
		}
		nn.layers[i] = layer
	}

	for _, opt := range opts {
		opt(nn)
	}
	return nn, nil
}

// SetActivation replaces the activation function of one layer.
func (nn *NeuralNetwork) SetActivation(layerIndex int, activation ActivationFunction) {
	nn.layers[layerIndex].setActivation(activation)
}

// Compute runs a forward pass. The input width is checked before any neuron
// is evaluated, so a rejected input leaves every cached output as it was.
func (nn *NeuralNetwork) Compute(input []float64) ([]float64, error) {
	if len(input) != nn.structure.InputVectorLength {
		return nil, dimensionError(0, -1, nn.structure.InputVectorLength, len(input))
	}
	current := input
	for i, layer := range nn.layers {
		out, err := layer.Compute(current)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		current = out
	}
	return current, nil
}

// SaveMemory writes the weights and bias of every neuron to sink.
func (nn *NeuralNetwork) SaveMemory(sink WeightSink) error {
	for i, layer := range nn.layers {
		for j, neuron := range layer.neurons {
			if err := sink.SaveWeights(i, j, neuron.Weights(), neuron.bias); err != nil {
				return errors.Wrapf(err, "saving layer %d neuron %d", i, j)
			}
		}
	}
	return nil
}

func (nn *NeuralNetwork) Structure() Structure {
	return Structure{
		InputVectorLength: nn.structure.InputVectorLength,
		NeuronsByLayers:   append([]int(nil), nn.structure.NeuronsByLayers...),
	}
}

func (nn *NeuralNetwork) Layers() []*Layer { return nn.layers }
func (nn *NeuralNetwork) InputsCount() int { return nn.structure.InputVectorLength }

func (nn *NeuralNetwork) OutputsCount() int {
	return len(nn.layers[len(nn.layers)-1].neurons)
}

// Output returns the output of the last layer from the latest Compute call.
func (nn *NeuralNetwork) Output() []float64 {
	return nn.layers[len(nn.layers)-1].Output()
}

// Debug
func (l *Layer) String() string {
	var sb strings.Builder

	for i, neuron := range l.neurons {
		sb.WriteString(fmt.Sprintf("Neuron %d: bias=%.4f weights=%.4f output=%.4f\n",
			i, neuron.bias, neuron.weights, neuron.output))
	}

	return sb.String()
}

func (nn *NeuralNetwork) String() string {
	var sb strings.Builder

	for i, layer := range nn.layers {
		sb.WriteString(fmt.Sprintf("Layer %d:\n%s\n", i, layer.String()))
	}

	return sb.String()
}
