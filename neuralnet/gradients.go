package neuralnet

import "sync"

// LayerGradients holds the training state of one layer's parameters in three
// contiguous buffers. The parameters of neuron i occupy [i*Stride, (i+1)*Stride):
// its weights first, its bias in the last slot.
type LayerGradients struct {
	Stride int

	// Derivative is this epoch's accumulated partial derivative.
	Derivative []float64
	// Previous is the derivative kept from the last epoch.
	Previous []float64
	// Step is the per-parameter update magnitude.
	Step []float64

	rows []sync.Mutex
}

// Row returns the offset of neuron i's first parameter.
func (g *LayerGradients) Row(i int) int {
	return i * g.Stride
}

// BiasOffset returns the offset of neuron i's bias.
func (g *LayerGradients) BiasOffset(i int) int {
	return i*g.Stride + g.Stride - 1
}

// accumulate adds delta*input to the weights of neuron i and delta to its
// bias while holding that neuron's row lock.
func (g *LayerGradients) accumulate(i int, delta float64, input []float64) {
	g.rows[i].Lock()
	defer g.rows[i].Unlock()
	row := g.Derivative[i*g.Stride : (i+1)*g.Stride]
	for j, x := range input {
		row[j] += delta * x
	}
	row[len(input)] += delta
}

// Gradients is the arena of per-parameter training state for a whole network.
// It belongs to a trainer, never to the network.
type Gradients struct {
	Layers []*LayerGradients
}

// NewGradients allocates the arena for nn with every step set to initialStep.
func NewGradients(nn *NeuralNetwork, initialStep float64) *Gradients {
	g := &Gradients{Layers: make([]*LayerGradients, len(nn.layers))}
	for i, layer := range nn.layers {
		stride := layer.inputs + 1
		size := stride * len(layer.neurons)
		lg := &LayerGradients{
			Stride:     stride,
			Derivative: make([]float64, size),
			Previous:   make([]float64, size),
			Step:       make([]float64, size),
			rows:       make([]sync.Mutex, len(layer.neurons)),
		}
		for k := range lg.Step {
			lg.Step[k] = initialStep
		}
		g.Layers[i] = lg
	}
	return g
}

// Reset zeros every derivative accumulator.
func (g *Gradients) Reset() {
	for _, lg := range g.Layers {
		for k := range lg.Derivative {
			lg.Derivative[k] = 0
		}
	}
}
