// Package dataset supplies training samples as parallel input/output tensors.
package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"rpropnet/neuralnet"
)

// Set holds n samples as two n×width matrices.
type Set struct {
	Inputs  tensor.Tensor
	Outputs tensor.Tensor
}

func matrix(rows, cols int, backing []float64) *tensor.Dense {
	return tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}

// FromSlices copies parallel input and output vectors into a Set.
func FromSlices(inputs, outputs [][]float64) (*Set, error) {
	if len(inputs) == 0 {
		return nil, neuralnet.ErrNoSamples
	}
	if len(inputs) != len(outputs) {
		return nil, errors.Wrapf(neuralnet.ErrSampleCount, "%d inputs, %d outputs", len(inputs), len(outputs))
	}
	in, err := pack(inputs)
	if err != nil {
		return nil, errors.Wrap(err, "inputs")
	}
	out, err := pack(outputs)
	if err != nil {
		return nil, errors.Wrap(err, "outputs")
	}
	return &Set{Inputs: in, Outputs: out}, nil
}

func pack(rows [][]float64) (*tensor.Dense, error) {
	width := len(rows[0])
	backing := make([]float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, errors.Errorf("row %d has %d values, want %d", i, len(row), width)
		}
		backing = append(backing, row...)
	}
	return matrix(len(rows), width, backing), nil
}

// XOR is the exclusive-or truth table.
func XOR() *Set {
	return &Set{
		Inputs:  matrix(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1}),
		Outputs: matrix(4, 1, []float64{0, 1, 1, 0}),
	}
}

// Len is the number of samples.
func (s *Set) Len() int {
	return s.Inputs.Shape()[0]
}

func width(t tensor.Tensor) int {
	return t.Shape()[1]
}

// Samples returns the rows of both tensors as slices sharing their backing data.
func (s *Set) Samples() (inputs, outputs [][]float64) {
	return rows(s.Inputs), rows(s.Outputs)
}

func rows(t tensor.Tensor) [][]float64 {
	data := t.Data().([]float64)
	n, w := t.Shape()[0], t.Shape()[1]
	out := make([][]float64, n)
	for i := range out {
		out[i] = data[i*w : (i+1)*w : (i+1)*w]
	}
	return out
}

// Validate checks that the sample widths fit a network of the given structure.
func (s *Set) Validate(structure neuralnet.Structure) error {
	if s.Inputs.Shape()[0] != s.Outputs.Shape()[0] {
		return errors.Wrapf(neuralnet.ErrSampleCount, "%d inputs, %d outputs", s.Inputs.Shape()[0], s.Outputs.Shape()[0])
	}
	if w := width(s.Inputs); w != structure.InputVectorLength {
		return &neuralnet.DimensionError{Layer: 0, Neuron: -1, Want: structure.InputVectorLength, Got: w}
	}
	last := len(structure.NeuronsByLayers) - 1
	if last < 0 {
		return neuralnet.ErrNoLayers
	}
	if w := width(s.Outputs); w != structure.NeuronsByLayers[last] {
		return &neuralnet.DimensionError{Layer: last, Neuron: -1, Want: structure.NeuronsByLayers[last], Got: w}
	}
	return nil
}

// Load reads one sample per line: inputWidth input values followed by
// outputWidth target values, separated by white space or commas. Blank lines
// and lines starting with # are skipped.
func Load(r io.Reader, inputWidth, outputWidth int) (*Set, error) {
	records, err := readRecords(r, inputWidth+outputWidth)
	if err != nil {
		return nil, err
	}
	inputs := make([]float64, 0, len(records)*inputWidth)
	outputs := make([]float64, 0, len(records)*outputWidth)
	for _, rec := range records {
		inputs = append(inputs, rec[:inputWidth]...)
		outputs = append(outputs, rec[inputWidth:]...)
	}
	return &Set{
		Inputs:  matrix(len(records), inputWidth, inputs),
		Outputs: matrix(len(records), outputWidth, outputs),
	}, nil
}

// LoadLabeled reads lines of inputWidth values followed by an integer class
// label in [0, classes) and one-hot encodes the labels.
func LoadLabeled(r io.Reader, inputWidth, classes int) (*Set, error) {
	records, err := readRecords(r, inputWidth+1)
	if err != nil {
		return nil, err
	}
	inputs := make([]float64, 0, len(records)*inputWidth)
	labels := make([]int, len(records))
	for i, rec := range records {
		inputs = append(inputs, rec[:inputWidth]...)
		label := rec[inputWidth]
		if label != float64(int(label)) || int(label) < 0 || int(label) >= classes {
			return nil, errors.Errorf("sample %d: label %v is not a class in [0, %d)", i, label, classes)
		}
		labels[i] = int(label)
	}
	return &Set{
		Inputs:  matrix(len(records), inputWidth, inputs),
		Outputs: OneHot(labels, classes),
	}, nil
}

// LoadFile opens path and reads it with Load, or LoadLabeled when labeled is set.
func LoadFile(path string, inputWidth, outputWidth int, labeled bool) (*Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open dataset %s", path)
	}
	defer file.Close()

	if labeled {
		return LoadLabeled(file, inputWidth, outputWidth)
	}
	return Load(file, inputWidth, outputWidth)
}

func readRecords(r io.Reader, fields int) ([][]float64, error) {
	var records [][]float64
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.FieldsFunc(text, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t'
		})
		if len(parts) != fields {
			return nil, errors.Errorf("line %d: %d values, want %d", line, len(parts), fields)
		}
		rec := make([]float64, fields)
		for i, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			rec[i] = v
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading dataset")
	}
	if len(records) == 0 {
		return nil, neuralnet.ErrNoSamples
	}
	return records, nil
}

// OneHot encodes class labels as rows of a len(labels)×numClasses matrix.
func OneHot(labels []int, numClasses int) tensor.Tensor {
	numLabels := len(labels)
	norm := make([]float64, numLabels*numClasses)

	for i, label := range labels {
		norm[i*numClasses+label] = 1.0
	}

	return matrix(numLabels, numClasses, norm)
}
