package neuralnet

import (
	"math"

	"github.com/pkg/errors"
)

// Params holds the training hyperparameters.
type Params struct {
	// InitialStep is the starting update magnitude of every parameter.
	InitialStep float64 `json:"initialStep"`
	Increase    float64 `json:"increase"`
	Decrease    float64 `json:"decrease"`
	MaxStep     float64 `json:"maxStep"`
	MinStep     float64 `json:"minStep"`
	// Epsilon is the magnitude below which a derivative product counts as zero.
	Epsilon float64 `json:"epsilon"`

	// Lr, Decay and Momentum are only read by SGD.
	Lr       float64 `json:"lr"`
	Decay    float64 `json:"decay"`
	Momentum float64 `json:"momentum"`
}

// DefaultParams returns the classic iRprop constants.
func DefaultParams() Params {
	return Params{
		InitialStep: 0.0125,
		Increase:    1.2,
		Decrease:    0.5,
		MaxStep:     50.0,
		MinStep:     1e-6,
		Epsilon:     1e-17,
		Lr:          0.7,
		Decay:       1.0,
		Momentum:    0.0,
	}
}

// Validate checks that the step bounds are ordered, the initial step lies
// within them and the growth factors move the step the right way.
func (p Params) Validate() error {
	switch {
	case !(p.MinStep > 0):
		return errors.Wrapf(ErrBadParams, "minStep %v is not positive", p.MinStep)
	case p.MinStep > p.MaxStep:
		return errors.Wrapf(ErrBadParams, "minStep %v exceeds maxStep %v", p.MinStep, p.MaxStep)
	case p.InitialStep < p.MinStep || p.InitialStep > p.MaxStep:
		return errors.Wrapf(ErrBadParams, "initialStep %v outside [%v, %v]", p.InitialStep, p.MinStep, p.MaxStep)
	case !(p.Increase > 1):
		return errors.Wrapf(ErrBadParams, "increase %v must exceed 1", p.Increase)
	case !(p.Decrease > 0 && p.Decrease < 1):
		return errors.Wrapf(ErrBadParams, "decrease %v outside (0, 1)", p.Decrease)
	case p.Epsilon < 0:
		return errors.Wrapf(ErrBadParams, "epsilon %v is negative", p.Epsilon)
	case p.Lr < 0 || p.Decay < 0 || p.Momentum < 0:
		return errors.Wrapf(ErrBadParams, "lr %v, decay %v and momentum %v must not be negative", p.Lr, p.Decay, p.Momentum)
	}
	return nil
}

// Optimizer defines interface to apply an epoch's accumulated gradients.
type Optimizer interface {
	Apply(nn *NeuralNetwork, g *Gradients, samples int) error
}

// signOf is 0 when |x| is below epsilon, otherwise ±1.
func signOf(x, epsilon float64) float64 {
	if math.Abs(x) < epsilon {
		return 0
	}
	if x > 0 {
		return 1
	}
	return -1
}

// RProp implements the iRprop- update: every parameter adapts its own step
// from the sign agreement of consecutive derivatives.
type RProp struct {
	Params Params
}

func NewRProp(params Params) *RProp {
	return &RProp{Params: params}
}

// Apply updates every weight and bias of nn from g. samples is unused; the
// rule only looks at signs.
func (o *RProp) Apply(nn *NeuralNetwork, g *Gradients, samples int) error {
	for l, layer := range nn.layers {
		lg := g.Layers[l]
		for i, neuron := range layer.neurons {
			row := lg.Row(i)
			for k := range neuron.weights {
				rpropUpdate(&o.Params, &neuron.weights[k], lg.Derivative[row+k], &lg.Previous[row+k], &lg.Step[row+k])
			}
			b := lg.BiasOffset(i)
			rpropUpdate(&o.Params, &neuron.bias, lg.Derivative[b], &lg.Previous[b], &lg.Step[b])
		}
	}
	return nil
}

// rpropUpdate applies one iRprop- step to a single parameter. A sign flip
// shrinks the step, forgets the previous derivative and leaves the weight
// in place for this epoch.
func rpropUpdate(p *Params, weight *float64, derivative float64, previous, step *float64) {
	switch sign := signOf(*previous*derivative, p.Epsilon); {
	case sign > 0:
		*step = math.Min(*step*p.Increase, p.MaxStep)
		*weight -= signOf(derivative, p.Epsilon) * *step
		*previous = derivative
	case sign < 0:
		*step = math.Max(*step*p.Decrease, p.MinStep)
		*previous = 0
	default:
		*weight -= signOf(derivative, p.Epsilon) * *step
		*previous = derivative
	}
}

// SGD implements batch gradient descent, the classic backpropagation rule.
// The previous-derivative buffer of the arena holds the momentum velocity.
type SGD struct {
	Params Params
}

func NewSGD(params Params) *SGD {
	return &SGD{Params: params}
}

// Apply applies averaged gradients and updates learning rate based on decay.
func (o *SGD) Apply(nn *NeuralNetwork, g *Gradients, samples int) error {
	if samples <= 0 {
		return ErrInvalidBatchSize
	}
	n := float64(samples)
	for l, layer := range nn.layers {
		lg := g.Layers[l]
		for i, neuron := range layer.neurons {
			row := lg.Row(i)
			for k := range neuron.weights {
				o.step(&neuron.weights[k], lg.Derivative[row+k]/n, &lg.Previous[row+k])
			}
			b := lg.BiasOffset(i)
			o.step(&neuron.bias, lg.Derivative[b]/n, &lg.Previous[b])
		}
	}
	if o.Params.Decay > 0 {
		o.Params.Lr *= o.Params.Decay
	}
	return nil
}

func (o *SGD) step(weight *float64, gradient float64, velocity *float64) {
	*velocity = o.Params.Momentum*(*velocity) - o.Params.Lr*gradient
	*weight += *velocity
}
