package neuralnet

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

var (
	logicInputs = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	andTargets  = [][]float64{{0}, {0}, {0}, {1}}
	logicLayout = Structure{InputVectorLength: 2, NeuronsByLayers: []int{2, 2, 1}}
)

func TestTrainConvergesOnLogicTable(t *testing.T) {
	for name, newTrainer := range map[string]func(*NeuralNetwork) *Trainer{
		"sequential": func(nn *NeuralNetwork) *Trainer { return NewSequentialTrainer(nn, DefaultParams()) },
		"parallel":   func(nn *NeuralNetwork) *Trainer { return NewParallelTrainer(nn, DefaultParams(), 2) },
	} {
		t.Run(name, func(t *testing.T) {
			nn := seededNetwork(t, logicLayout, 1)
			trainer := newTrainer(nn)

			mse, epochs, err := trainer.TrainEpochs(logicInputs, andTargets, 1000, 1e-3)
			require.NoError(t, err)
			assert.Less(t, mse, 0.05)
			assert.LessOrEqual(t, epochs, 1000)
			assert.Equal(t, epochs, trainer.Epoch())

			for s, input := range logicInputs {
				out, err := trainer.Compute(input)
				require.NoError(t, err)
				assert.InDelta(t, andTargets[s][0], out[0], 0.15, "sample %v", input)
			}
		})
	}
}

func TestTrainKeepsStepsWithinBounds(t *testing.T) {
	params := DefaultParams()
	trainer := NewSequentialTrainer(seededNetwork(t, logicLayout, 5), params)

	for e := 0; e < 300; e++ {
		_, err := trainer.Train(logicInputs, andTargets)
		require.NoError(t, err)
		for _, lg := range trainer.Gradients().Layers {
			for _, step := range lg.Step {
				require.GreaterOrEqual(t, step, params.MinStep)
				require.LessOrEqual(t, step, params.MaxStep)
			}
		}
	}
}

// flatten lists every parameter in arena order: per layer, per neuron, the
// weights followed by the bias.
func flatten(nn *NeuralNetwork) []float64 {
	var params []float64
	for _, layer := range nn.Layers() {
		for _, neuron := range layer.Neurons() {
			params = append(params, neuron.weights...)
			params = append(params, neuron.bias)
		}
	}
	return params
}

func load(nn *NeuralNetwork, params []float64) {
	k := 0
	for _, layer := range nn.Layers() {
		for _, neuron := range layer.Neurons() {
			k += copy(neuron.weights, params[k:])
			neuron.bias = params[k]
			k++
		}
	}
}

func TestAccumulatedGradientMatchesFiniteDifferences(t *testing.T) {
	structure := Structure{InputVectorLength: 3, NeuronsByLayers: []int{4, 3, 2}}
	nn := seededNetwork(t, structure, 9)
	nn.SetActivation(0, Tanh{})
	nn.SetActivation(1, SoftPlus{})
	inputs := [][]float64{{0.5, -1, 0.25}, {1, 0.3, -0.7}, {-0.2, 0.8, 0.9}}
	targets := [][]float64{{0.1, 0.9}, {0.7, 0.2}, {0.4, 0.4}}

	g := NewGradients(nn, 0.0125)
	_, err := Sequential{}.Run(nn, g, SquaredError{}, inputs, targets)
	require.NoError(t, err)

	halfSSE := func(params []float64) float64 {
		load(nn, params)
		var sum float64
		for s, input := range inputs {
			out, err := nn.Compute(input)
			require.NoError(t, err)
			sum += SquaredError{}.Compute(out, targets[s])
		}
		return sum / 2
	}
	origin := flatten(nn)
	want := fd.Gradient(nil, halfSSE, origin, &fd.Settings{Formula: fd.Central, Step: 1e-6})
	load(nn, origin)

	var got []float64
	for _, lg := range g.Layers {
		got = append(got, lg.Derivative...)
	}
	require.Len(t, got, len(want))
	for k := range want {
		assert.InDelta(t, want[k], got[k], 1e-6, "parameter %d", k)
	}
}

func TestFirstEpochGradientIsReproducible(t *testing.T) {
	first := NewSequentialTrainer(seededNetwork(t, logicLayout, 21), DefaultParams())
	second := NewSequentialTrainer(seededNetwork(t, logicLayout, 21), DefaultParams())

	_, err := first.Train(logicInputs, andTargets)
	require.NoError(t, err)
	_, err = second.Train(logicInputs, andTargets)
	require.NoError(t, err)

	for l := range first.Gradients().Layers {
		assert.Equal(t, first.Gradients().Layers[l].Derivative, second.Gradients().Layers[l].Derivative)
	}
}

func TestTrainResetsDerivativesEachEpoch(t *testing.T) {
	trainer := NewSequentialTrainer(seededNetwork(t, logicLayout, 4), DefaultParams())
	_, err := trainer.Train(logicInputs, andTargets)
	require.NoError(t, err)

	// the second epoch must see only the gradient of the updated weights
	fresh, err := New(logicLayout, snapshot(t, trainer.Network()))
	require.NoError(t, err)
	g := NewGradients(fresh, 0)
	_, err = Sequential{}.Run(fresh, g, SquaredError{}, logicInputs, andTargets)
	require.NoError(t, err)

	_, err = trainer.Train(logicInputs, andTargets)
	require.NoError(t, err)
	for l, lg := range trainer.Gradients().Layers {
		assert.Equal(t, g.Layers[l].Derivative, lg.Derivative, "layer %d", l)
	}
}

func TestSequentialAndParallelAgree(t *testing.T) {
	inputs := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {0.5, 0.5}, {0.2, 0.9}, {0.9, 0.1}}
	targets := [][]float64{{0}, {1}, {1}, {0}, {0.5}, {0.8}, {0.7}}

	for _, workers := range []int{1, 2, 3, 7, 16} {
		sequential := NewSequentialTrainer(seededNetwork(t, logicLayout, 13), DefaultParams())
		parallel := NewParallelTrainer(seededNetwork(t, logicLayout, 13), DefaultParams(), workers)

		for e := 0; e < 100; e++ {
			want, err := sequential.Train(inputs, targets)
			require.NoError(t, err)
			got, err := parallel.Train(inputs, targets)
			require.NoError(t, err)
			require.InEpsilon(t, want, got, 1e-9, "workers %d epoch %d", workers, e)
		}

		want, got := flatten(sequential.Network()), flatten(parallel.Network())
		for k := range want {
			assert.InDelta(t, want[k], got[k], 1e-9, "workers %d parameter %d", workers, k)
		}
	}
}

func TestTrainRejectsBadSamples(t *testing.T) {
	trainer := NewSequentialTrainer(seededNetwork(t, logicLayout, 2), DefaultParams())
	before := snapshot(t, trainer.Network())

	_, err := trainer.Train(nil, nil)
	assert.True(t, errors.Is(err, ErrNoSamples))

	_, err = trainer.Train(logicInputs, andTargets[:3])
	assert.True(t, errors.Is(err, ErrSampleCount))

	var dim *DimensionError
	_, err = trainer.Train([][]float64{{0, 0}, {1}}, [][]float64{{0}, {1}})
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 0, dim.Layer)

	_, err = trainer.Train([][]float64{{0, 0}}, [][]float64{{0, 1}})
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 2, dim.Layer)
	assert.Equal(t, 1, dim.Want)

	assert.Equal(t, before, snapshot(t, trainer.Network()))
	assert.Equal(t, 0, trainer.Epoch())
}

// failingLoss panics on a chosen target so a worker dies mid-epoch.
type failingLoss struct {
	SquaredError
	target float64
}

func (f failingLoss) Gradient(output []float64, target []float64) []float64 {
	if target[0] == f.target {
		panic(errors.New("loss exploded"))
	}
	return f.SquaredError.Gradient(output, target)
}

func TestWorkerFailureAbortsEpoch(t *testing.T) {
	for name, phase := range map[string]SamplePhase{
		"sequential": Sequential{},
		"parallel":   Parallel{Workers: 4},
	} {
		t.Run(name, func(t *testing.T) {
			nn := seededNetwork(t, logicLayout, 8)
			trainer := NewTrainer(nn, DefaultParams(),
				WithSamplePhase(phase), WithLoss(failingLoss{target: 1}))
			before := snapshot(t, nn)
			steps := append([]float64(nil), trainer.Gradients().Layers[0].Step...)

			_, err := trainer.Train(logicInputs, andTargets)
			var worker *WorkerError
			require.True(t, errors.As(err, &worker), "got %v", err)
			assert.Equal(t, 3, worker.Sample)
			assert.Contains(t, err.Error(), "loss exploded")

			assert.Equal(t, before, snapshot(t, nn))
			assert.Equal(t, steps, trainer.Gradients().Layers[0].Step)
			assert.Equal(t, 0, trainer.Epoch())

			// the network is still trainable once the failure is gone
			trainer = NewTrainer(nn, DefaultParams(), WithSamplePhase(phase))
			mse, err := trainer.Train(logicInputs, andTargets)
			require.NoError(t, err)
			assert.False(t, math.IsNaN(mse))
		})
	}
}

func TestTrainWithSGD(t *testing.T) {
	params := DefaultParams()
	params.Lr = 2
	params.Momentum = 0.5
	nn := seededNetwork(t, Structure{InputVectorLength: 2, NeuronsByLayers: []int{3, 1}}, 17)
	trainer := NewTrainer(nn, params, WithOptimizer(NewSGD(params)))

	first, err := trainer.Train(logicInputs, andTargets)
	require.NoError(t, err)
	last, _, err := trainer.TrainEpochs(logicInputs, andTargets, 500, 0)
	require.NoError(t, err)
	assert.Less(t, last, first)
}
