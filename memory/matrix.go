// Package memory holds stores for the weights of trained networks.
package memory

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"rpropnet/neuralnet"
)

// Matrix keeps a network's memory in one dense matrix per layer. Row i holds
// the weights of neuron i followed by its bias.
type Matrix struct {
	layers []*mat.Dense
}

// NewMatrix allocates a zeroed store shaped after structure.
func NewMatrix(structure neuralnet.Structure) (*Matrix, error) {
	if err := structure.Validate(); err != nil {
		return nil, err
	}
	m := &Matrix{layers: make([]*mat.Dense, len(structure.NeuronsByLayers))}
	inputs := structure.InputVectorLength
	for i, n := range structure.NeuronsByLayers {
		m.layers[i] = mat.NewDense(n, inputs+1, nil)
		inputs = n
	}
	return m, nil
}

// FromNetwork copies the current weights of nn into a new store.
func FromNetwork(nn *neuralnet.NeuralNetwork) (*Matrix, error) {
	m, err := NewMatrix(nn.Structure())
	if err != nil {
		return nil, err
	}
	if err := nn.SaveMemory(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Matrix) dense(layer, neuron int) (*mat.Dense, error) {
	if layer < 0 || layer >= len(m.layers) {
		return nil, errors.Errorf("layer %d out of range", layer)
	}
	d := m.layers[layer]
	if rows, _ := d.Dims(); neuron < 0 || neuron >= rows {
		return nil, errors.Errorf("neuron %d out of range for layer %d", neuron, layer)
	}
	return d, nil
}

func (m *Matrix) LoadWeights(layer, neuron int) ([]float64, float64, error) {
	d, err := m.dense(layer, neuron)
	if err != nil {
		return nil, 0, err
	}
	row := mat.Row(nil, neuron, d)
	return row[:len(row)-1], row[len(row)-1], nil
}

func (m *Matrix) SaveWeights(layer, neuron int, weights []float64, bias float64) error {
	d, err := m.dense(layer, neuron)
	if err != nil {
		return err
	}
	if _, cols := d.Dims(); len(weights) != cols-1 {
		return &neuralnet.DimensionError{Layer: layer, Neuron: neuron, Want: cols - 1, Got: len(weights)}
	}
	d.SetRow(neuron, append(append([]float64(nil), weights...), bias))
	return nil
}

// Layer exposes the matrix of one layer for inspection.
func (m *Matrix) Layer(i int) mat.Matrix {
	return m.layers[i]
}

// Layers is the number of stored layers.
func (m *Matrix) Layers() int {
	return len(m.layers)
}
