package neuralnet

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// WeightSource supplies the weight vector and bias of one neuron.
type WeightSource interface {
	LoadWeights(layer, neuron int) ([]float64, float64, error)
}

// WeightSink persists the weight vector and bias of one neuron.
type WeightSink interface {
	SaveWeights(layer, neuron int, weights []float64, bias float64) error
}

// WeightStore can both load and save a network's memory.
type WeightStore interface {
	WeightSource
	WeightSink
}

// RandomWeights draws Xavier-uniform initial weights for a structure from an
// explicitly seeded generator, so equal seeds build equal networks.
type RandomWeights struct {
	structure Structure
	rng       *rand.Rand
}

func NewRandomWeights(structure Structure, rng *rand.Rand) *RandomWeights {
	return &RandomWeights{structure: structure, rng: rng}
}

// NewSeededWeights is NewRandomWeights with a fresh generator for seed.
func NewSeededWeights(structure Structure, seed int64) *RandomWeights {
	return NewRandomWeights(structure, rand.New(rand.NewSource(seed)))
}

func (r *RandomWeights) LoadWeights(layer, neuron int) ([]float64, float64, error) {
	if layer < 0 || layer >= len(r.structure.NeuronsByLayers) {
		return nil, 0, errors.Errorf("layer %d out of range", layer)
	}
	if neuron < 0 || neuron >= r.structure.NeuronsByLayers[layer] {
		return nil, 0, errors.Errorf("neuron %d out of range for layer %d", neuron, layer)
	}
	inputs := r.structure.layerInputs(layer)
	outputs := r.structure.NeuronsByLayers[layer]
	weights := make([]float64, inputs)
	for k := range weights {
		weights[k] = r.xavierInit(inputs, outputs)
	}
	return weights, r.xavierInit(inputs, outputs), nil
}

func (r *RandomWeights) xavierInit(numInputs int, numOutputs int) float64 {
	limit := math.Sqrt(6.0 / float64(numInputs+numOutputs))
	return 2*r.rng.Float64()*limit - limit
}
