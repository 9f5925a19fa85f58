package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpropnet/neuralnet"
)

func TestLoad(t *testing.T) {
	input := `# x1 x2 target
0 0 0
0,1,1

1	0	1
1 1 0
`
	set, err := Load(strings.NewReader(input), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())

	inputs, outputs := set.Samples()
	want := XOR()
	wantInputs, wantOutputs := want.Samples()
	assert.Equal(t, wantInputs, inputs)
	assert.Equal(t, wantOutputs, outputs)
}

func TestLoadRejectsMalformedRows(t *testing.T) {
	_, err := Load(strings.NewReader("0 0 0\n1 1\n"), 2, 1)
	assert.ErrorContains(t, err, "line 2")

	_, err = Load(strings.NewReader("0 x 1\n"), 2, 1)
	assert.ErrorContains(t, err, "line 1")

	_, err = Load(strings.NewReader("# nothing\n"), 2, 1)
	assert.ErrorIs(t, err, neuralnet.ErrNoSamples)
}

func TestLoadLabeled(t *testing.T) {
	set, err := LoadLabeled(strings.NewReader("0.5 0.25 2\n1 0 0\n"), 2, 3)
	require.NoError(t, err)

	_, outputs := set.Samples()
	assert.Equal(t, [][]float64{{0, 0, 1}, {1, 0, 0}}, outputs)

	_, err = LoadLabeled(strings.NewReader("0.5 0.25 3\n"), 2, 3)
	assert.Error(t, err)
	_, err = LoadLabeled(strings.NewReader("0.5 0.25 1.5\n"), 2, 3)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "and.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 0 0\n0 1 0\n1 0 0\n1 1 1\n"), 0o644))

	set, err := LoadFile(path, 2, 1, false)
	require.NoError(t, err)
	_, outputs := set.Samples()
	assert.Equal(t, [][]float64{{0}, {0}, {0}, {1}}, outputs)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"), 2, 1, false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOneHot(t *testing.T) {
	encoded := OneHot([]int{1, 0, 2}, 3)
	assert.Equal(t, []int{3, 3}, []int(encoded.Shape()))
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 0, 0, 0, 1}, encoded.Data())
}

func TestFromSlicesAndValidate(t *testing.T) {
	set, err := FromSlices([][]float64{{1, 2}, {3, 4}}, [][]float64{{1}, {0}})
	require.NoError(t, err)

	require.NoError(t, set.Validate(neuralnet.Structure{InputVectorLength: 2, NeuronsByLayers: []int{3, 1}}))

	var dim *neuralnet.DimensionError
	err = set.Validate(neuralnet.Structure{InputVectorLength: 3, NeuronsByLayers: []int{1}})
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 0, dim.Layer)

	err = set.Validate(neuralnet.Structure{InputVectorLength: 2, NeuronsByLayers: []int{2, 2}})
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 1, dim.Layer)

	_, err = FromSlices([][]float64{{1}}, nil)
	assert.ErrorIs(t, err, neuralnet.ErrSampleCount)
	_, err = FromSlices([][]float64{{1}, {1, 2}}, [][]float64{{1}, {1}})
	assert.Error(t, err)
	_, err = FromSlices(nil, nil)
	assert.ErrorIs(t, err, neuralnet.ErrNoSamples)
}

func TestSamplesTrainNetwork(t *testing.T) {
	set := XOR()
	structure := neuralnet.Structure{InputVectorLength: 2, NeuronsByLayers: []int{3, 1}}
	require.NoError(t, set.Validate(structure))

	nn, err := neuralnet.New(structure, neuralnet.NewSeededWeights(structure, 1))
	require.NoError(t, err)
	inputs, outputs := set.Samples()
	_, err = neuralnet.NewSequentialTrainer(nn, neuralnet.DefaultParams()).Train(inputs, outputs)
	assert.NoError(t, err)
}
