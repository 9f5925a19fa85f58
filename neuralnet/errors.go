package neuralnet

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is used for failures that need no information beyond their message.
type Error struct{ string }

func (err Error) Error() string {
	return err.string
}

var (
	ErrNoLayers          = Error{"network has no layers"}
	ErrBadStructure      = Error{"network structure is invalid"}
	ErrSampleCount       = Error{"inputs and outputs have different sample counts"}
	ErrNoSamples         = Error{"no training samples"}
	ErrUnknownActivation = Error{"unknown activation function"}
	ErrInvalidBatchSize  = Error{"invalid batch size"}
	ErrBadParams         = Error{"training parameters are invalid"}
)

// DimensionError reports a vector whose length disagrees with the width a
// layer declared. Layer and Neuron are -1 when the check is not tied to one.
type DimensionError struct {
	Layer  int
	Neuron int
	Want   int
	Got    int
}

func (err *DimensionError) Error() string {
	if err.Layer < 0 {
		return fmt.Sprintf("dimension mismatch: want %d values, got %d", err.Want, err.Got)
	}
	if err.Neuron >= 0 {
		return fmt.Sprintf("dimension mismatch at layer %d neuron %d: want %d values, got %d",
			err.Layer, err.Neuron, err.Want, err.Got)
	}
	return fmt.Sprintf("dimension mismatch at layer %d: want %d values, got %d", err.Layer, err.Want, err.Got)
}

func dimensionError(layer, neuron, want, got int) error {
	return &DimensionError{Layer: layer, Neuron: neuron, Want: want, Got: got}
}

// WorkerError wraps a failure raised inside a training worker. Sample is the
// index of the sample that was being processed.
type WorkerError struct {
	Sample int
	Err    error
}

func (err *WorkerError) Error() string {
	return fmt.Sprintf("training worker failed on sample %d: %v", err.Sample, err.Err)
}

func (err *WorkerError) Unwrap() error {
	return err.Err
}

// Cause is the innermost error, as reported by github.com/pkg/errors.
func (err *WorkerError) Cause() error {
	return err.Err
}

// recovered turns a panic value from a worker into an error.
func recovered(sample int, v interface{}) error {
	if e, ok := v.(error); ok {
		return &WorkerError{Sample: sample, Err: errors.WithStack(e)}
	}
	return &WorkerError{Sample: sample, Err: errors.Errorf("panic: %v", v)}
}
