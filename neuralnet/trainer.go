package neuralnet

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
)

// Trainer runs epochs of batch training on a borrowed network. It owns the
// gradient arena; the network only ever holds weights.
//
// One epoch resets the derivative accumulators, lets the sample phase
// accumulate the gradient of every sample, and only then hands the fully
// reduced gradient to the optimizer. A failed sample phase returns before the
// optimizer runs, so the weights keep their pre-epoch values.
type Trainer struct {
	nn        *NeuralNetwork
	params    Params
	gradients *Gradients
	optimizer Optimizer
	phase     SamplePhase
	loss      LossFunction
	logger    *slog.Logger
	epoch     int

	// LogEvery is the epoch interval of TrainEpochs progress lines.
	LogEvery int
}

type TrainerOption func(*Trainer)

// WithOptimizer replaces the default RProp update rule.
func WithOptimizer(optimizer Optimizer) TrainerOption {
	return func(t *Trainer) {
		t.optimizer = optimizer
	}
}

// WithSamplePhase selects how samples are processed; Sequential by default.
func WithSamplePhase(phase SamplePhase) TrainerOption {
	return func(t *Trainer) {
		t.phase = phase
	}
}

func WithLoss(loss LossFunction) TrainerOption {
	return func(t *Trainer) {
		t.loss = loss
	}
}

func WithLogger(logger *slog.Logger) TrainerOption {
	return func(t *Trainer) {
		t.logger = logger
	}
}

func NewTrainer(nn *NeuralNetwork, params Params, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		nn:        nn,
		params:    params,
		gradients: NewGradients(nn, params.InitialStep),
		optimizer: NewRProp(params),
		phase:     Sequential{},
		loss:      SquaredError{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		LogEvery:  100,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewSequentialTrainer trains nn with RProp on the calling goroutine.
func NewSequentialTrainer(nn *NeuralNetwork, params Params) *Trainer {
	return NewTrainer(nn, params)
}

// NewParallelTrainer trains nn with RProp, spreading samples over workers.
func NewParallelTrainer(nn *NeuralNetwork, params Params, workers int) *Trainer {
	return NewTrainer(nn, params, WithSamplePhase(Parallel{Workers: workers}))
}

// Train runs one epoch over the samples and returns the mean squared error
// measured before the weights were updated.
func (t *Trainer) Train(inputs, outputs [][]float64) (float64, error) {
	if err := t.check(inputs, outputs); err != nil {
		return 0, err
	}

	t.gradients.Reset()
	sse, err := t.phase.Run(t.nn, t.gradients, t.loss, inputs, outputs)
	if err != nil {
		return 0, errors.Wrapf(err, "epoch %d", t.epoch)
	}
	if err := t.optimizer.Apply(t.nn, t.gradients, len(inputs)); err != nil {
		return 0, errors.Wrapf(err, "epoch %d", t.epoch)
	}
	t.epoch++

	return sse / float64(len(inputs)), nil
}

// TrainEpochs trains until the error drops below targetError or epochs have
// run, and returns the last error and the number of epochs run.
func (t *Trainer) TrainEpochs(inputs, outputs [][]float64, epochs int, targetError float64) (float64, int, error) {
	var mse float64
	for e := 0; e < epochs; e++ {
		var err error
		mse, err = t.Train(inputs, outputs)
		if err != nil {
			return mse, e, err
		}
		if t.LogEvery > 0 && e%t.LogEvery == 0 {
			t.logger.Debug("training epoch finished", "epoch", t.epoch, "mse", mse)
		}
		if mse < targetError {
			t.logger.Info("target error reached", "epoch", t.epoch, "mse", mse)
			return mse, e + 1, nil
		}
	}
	t.logger.Info("training stopped", "epoch", t.epoch, "mse", mse)
	return mse, epochs, nil
}

func (t *Trainer) check(inputs, outputs [][]float64) error {
	if len(inputs) == 0 {
		return ErrNoSamples
	}
	if len(inputs) != len(outputs) {
		return errors.Wrapf(ErrSampleCount, "%d inputs, %d outputs", len(inputs), len(outputs))
	}
	in, out := t.nn.InputsCount(), t.nn.OutputsCount()
	for s := range inputs {
		if len(inputs[s]) != in {
			return errors.Wrapf(dimensionError(0, -1, in, len(inputs[s])), "input of sample %d", s)
		}
		if len(outputs[s]) != out {
			last := len(t.nn.layers) - 1
			return errors.Wrapf(dimensionError(last, -1, out, len(outputs[s])), "target of sample %d", s)
		}
	}
	return nil
}

// Compute runs inference on the trained network.
func (t *Trainer) Compute(input []float64) ([]float64, error) {
	return t.nn.Compute(input)
}

// SaveMemory persists the trained weights.
func (t *Trainer) SaveMemory(sink WeightSink) error {
	return t.nn.SaveMemory(sink)
}

func (t *Trainer) Network() *NeuralNetwork { return t.nn }
func (t *Trainer) Gradients() *Gradients { return t.gradients }
func (t *Trainer) Params() Params { return t.params }

// Epoch is the number of epochs completed.
func (t *Trainer) Epoch() int { return t.epoch }
