package neuralnet

// LossFunction defines the interface for computing loss and its gradient.
type LossFunction interface {
	// Compute returns the loss of output against target.
	Compute(output []float64, target []float64) float64
	// Gradient returns the error term of each output neuron.
	Gradient(output []float64, target []float64) []float64
}

// SquaredError is the sum of squared differences. Its gradient is taken of
// half the loss, which makes the error term simply output - target.
type SquaredError struct{}

func (se SquaredError) Compute(output []float64, target []float64) float64 {
	var loss float64
	for i := range output {
		e := output[i] - target[i]
		loss += e * e
	}
	return loss
}

func (se SquaredError) Gradient(output []float64, target []float64) []float64 {
	grad := make([]float64, len(output))
	for i := range output {
		grad[i] = output[i] - target[i]
	}
	return grad
}
