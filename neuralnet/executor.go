package neuralnet

import (
	"context"
	"runtime"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// SamplePhase runs the forward pass, the backward pass and the gradient
// accumulation for every sample of an epoch and returns the summed squared
// error. It must not change any weight of nn.
type SamplePhase interface {
	Run(nn *NeuralNetwork, g *Gradients, loss LossFunction, inputs, outputs [][]float64) (float64, error)
}

// pass is the scratch space of one worker: each layer's outputs and error
// terms for the sample being processed.
type pass struct {
	outputs [][]float64
	deltas  [][]float64
}

func newPass(nn *NeuralNetwork) *pass {
	p := &pass{
		outputs: make([][]float64, len(nn.layers)),
		deltas:  make([][]float64, len(nn.layers)),
	}
	for i, layer := range nn.layers {
		p.outputs[i] = make([]float64, len(layer.neurons))
		p.deltas[i] = make([]float64, len(layer.neurons))
	}
	return p
}

func (p *pass) run(nn *NeuralNetwork, g *Gradients, loss LossFunction, input, target []float64) (float64, error) {
	last := len(nn.layers) - 1
	if len(input) != nn.structure.InputVectorLength {
		return 0, dimensionError(0, -1, nn.structure.InputVectorLength, len(input))
	}
	if len(target) != len(nn.layers[last].neurons) {
		return 0, dimensionError(last, -1, len(nn.layers[last].neurons), len(target))
	}

	current := input
	for i, layer := range nn.layers {
		layer.computeInto(current, p.outputs[i])
		current = p.outputs[i]
	}

	out := p.outputs[last]
	act := nn.layers[last].activation
	for i, e := range loss.Gradient(out, target) {
		p.deltas[last][i] = e * act.DerivativeByOutput(out[i])
	}

	for j := last - 1; j >= 0; j-- {
		layer, next := nn.layers[j], nn.layers[j+1]
		for i := range layer.neurons {
			var sum float64
			for k, consumer := range next.neurons {
				sum += p.deltas[j+1][k] * consumer.weights[i]
			}
			p.deltas[j][i] = layer.activation.DerivativeByOutput(p.outputs[j][i]) * sum
		}
	}

	for j, layer := range nn.layers {
		in := input
		if j > 0 {
			in = p.outputs[j-1]
		}
		lg := g.Layers[j]
		for i := range layer.neurons {
			lg.accumulate(i, p.deltas[j][i], in)
		}
	}

	return loss.Compute(out, target), nil
}

// sample runs one sample and converts both errors and panics into a
// WorkerError for that sample.
func (p *pass) sample(nn *NeuralNetwork, g *Gradients, loss LossFunction, inputs, outputs [][]float64, s int) (sse float64, err error) {
	defer func() {
		if v := recover(); v != nil {
			sse, err = 0, recovered(s, v)
		}
	}()
	sse, err = p.run(nn, g, loss, inputs[s], outputs[s])
	if err != nil {
		return 0, &WorkerError{Sample: s, Err: err}
	}
	return sse, nil
}

// Sequential processes the samples one after another on the calling goroutine.
type Sequential struct{}

func (Sequential) Run(nn *NeuralNetwork, g *Gradients, loss LossFunction, inputs, outputs [][]float64) (float64, error) {
	p := newPass(nn)
	var sse float64
	for s := range inputs {
		e, err := p.sample(nn, g, loss, inputs, outputs, s)
		if err != nil {
			return 0, err
		}
		sse += e
	}
	return sse, nil
}

// Parallel splits the samples into contiguous chunks, one per worker. Each
// worker owns its scratch buffers; the only shared writes are the gradient
// accumulators, guarded by one lock per neuron row, and the error sum.
type Parallel struct {
	// Workers defaults to the number of CPUs.
	Workers int
}

func (p Parallel) Run(nn *NeuralNetwork, g *Gradients, loss LossFunction, inputs, outputs [][]float64) (float64, error) {
	n := len(inputs)
	if n == 0 {
		return 0, nil
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, n)
	chunk := (n + workers - 1) / workers

	sse := atomic.NewFloat64(0)
	group, ctx := errgroup.WithContext(context.Background())
	for start := 0; start < n; start += chunk {
		start, end := start, min(start+chunk, n)
		group.Go(func() error {
			scratch := newPass(nn)
			var local float64
			for s := start; s < end; s++ {
				if ctx.Err() != nil {
					// another worker failed, the epoch is lost anyway
					return nil
				}
				e, err := scratch.sample(nn, g, loss, inputs, outputs, s)
				if err != nil {
					return err
				}
				local += e
			}
			sse.Add(local)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}
	return sse.Load(), nil
}
