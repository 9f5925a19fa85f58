package neuralnet

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ActivationFunction is applied by every neuron of a layer to its weighted sum.
//
// DerivativeByOutput(Activate(x)) must equal Derivative(x): the backward pass
// only keeps neuron outputs, never the raw sums.
type ActivationFunction interface {
	Activate(x float64) float64
	Derivative(x float64) float64
	DerivativeByOutput(y float64) float64
}

// exp arguments beyond this saturate the logistic curve in float64.
const saturation = 45.0

func scale(alpha float64) float64 {
	if alpha == 0 {
		return 1
	}
	return alpha
}

// Sigmoid is the logistic function 1/(1+e^(-alpha*x)).
type Sigmoid struct {
	Alpha float64
}

func NewSigmoid(alpha float64) Sigmoid {
	return Sigmoid{Alpha: alpha}
}

func (s Sigmoid) Activate(x float64) float64 {
	z := scale(s.Alpha) * x
	if z > saturation {
		return 1
	}
	if z < -saturation {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

func (s Sigmoid) Derivative(x float64) float64 {
	return s.DerivativeByOutput(s.Activate(x))
}

func (s Sigmoid) DerivativeByOutput(y float64) float64 {
	return scale(s.Alpha) * y * (1 - y)
}

type Tanh struct {
	Alpha float64
}

func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(scale(t.Alpha) * x)
}

func (t Tanh) Derivative(x float64) float64 {
	return t.DerivativeByOutput(t.Activate(x))
}

func (t Tanh) DerivativeByOutput(y float64) float64 {
	return scale(t.Alpha) * (1 - y*y)
}

// SoftPlus is ln(1+e^x). Its derivative is the logistic function.
type SoftPlus struct{}

func (s SoftPlus) Activate(x float64) float64 {
	if x > saturation {
		return x
	}
	if x < -saturation {
		return math.Exp(x)
	}
	return math.Log1p(math.Exp(x))
}

func (s SoftPlus) Derivative(x float64) float64 {
	return Sigmoid{}.Activate(x)
}

func (s SoftPlus) DerivativeByOutput(y float64) float64 {
	return -math.Expm1(-y)
}

type Linear struct{}

func (t Linear) Activate(x float64) float64 {
	return x
}

func (t Linear) Derivative(x float64) float64 {
	return 1
}

func (t Linear) DerivativeByOutput(y float64) float64 {
	return 1
}

// Elliott is a rational approximation of the sigmoid with range (0,1).
type Elliott struct {
	Alpha float64
}

func (e Elliott) Activate(x float64) float64 {
	z := scale(e.Alpha) * x
	return 0.5*z/(1+math.Abs(z)) + 0.5
}

func (e Elliott) Derivative(x float64) float64 {
	d := 1 + math.Abs(scale(e.Alpha)*x)
	return 0.5 * scale(e.Alpha) / (d * d)
}

func (e Elliott) DerivativeByOutput(y float64) float64 {
	r := 1 - math.Abs(2*y-1)
	return 0.5 * scale(e.Alpha) * r * r
}

// SymmetricElliott approximates tanh with range (-1,1).
type SymmetricElliott struct {
	Alpha float64
}

func (e SymmetricElliott) Activate(x float64) float64 {
	z := scale(e.Alpha) * x
	return z / (1 + math.Abs(z))
}

func (e SymmetricElliott) Derivative(x float64) float64 {
	d := 1 + math.Abs(scale(e.Alpha)*x)
	return scale(e.Alpha) / (d * d)
}

func (e SymmetricElliott) DerivativeByOutput(y float64) float64 {
	r := 1 - math.Abs(y)
	return scale(e.Alpha) * r * r
}

type ReLU struct{}

func (r ReLU) Activate(x float64) float64 {
	return math.Max(x, 0)
}

func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (r ReLU) DerivativeByOutput(y float64) float64 {
	return r.Derivative(y)
}

type LeakyReLU struct {
	alpha float64
}

func NewLeakyReLU(alpha float64) LeakyReLU {
	return LeakyReLU{alpha: alpha}
}

func (l LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.alpha * x
}

func (l LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.alpha
}

// DerivativeByOutput assumes a positive alpha so that the sign of the output
// matches the sign of the input.
func (l LeakyReLU) DerivativeByOutput(y float64) float64 {
	return l.Derivative(y)
}

// ActivationByName resolves the names used in configuration files.
func ActivationByName(name string, alpha float64) (ActivationFunction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sigmoid":
		return Sigmoid{Alpha: alpha}, nil
	case "tanh":
		return Tanh{Alpha: alpha}, nil
	case "softplus", "soft-plus":
		return SoftPlus{}, nil
	case "linear":
		return Linear{}, nil
	case "elliott":
		return Elliott{Alpha: alpha}, nil
	case "symmetric-elliott", "elliott-symmetric":
		return SymmetricElliott{Alpha: alpha}, nil
	case "relu":
		return ReLU{}, nil
	case "leaky-relu", "leakyrelu":
		if alpha == 0 {
			alpha = 0.01
		}
		return NewLeakyReLU(alpha), nil
	}
	return nil, errors.Wrapf(ErrUnknownActivation, "%q", name)
}
