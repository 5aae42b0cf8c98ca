// Package train fits ballprediction networks to
// trajectory samples.
package train

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// ErrUnknownMinimizer is returned for an unsupported
// "minimizer" value.
var ErrUnknownMinimizer = errors.New("unknown minimizer")

// Minimizer names accepted by NewTransformer.
const (
	MinimizerGradient = "gradient"
	MinimizerSGD      = "sgd"
	MinimizerMomentum = "momentum"
	MinimizerAdam     = "adam"
	MinimizerRMSProp  = "rmsprop"
)

// NewTransformer creates the gradient transformer for a
// minimizer.
//
// Plain gradient descent has no transformer, so it yields
// nil.
// The momentum argument is only used by "momentum".
func NewTransformer(minimizer string, momentum float64) (anysgd.Transformer, error) {
	switch strings.ToLower(minimizer) {
	case MinimizerGradient, MinimizerSGD:
		return nil, nil
	case MinimizerMomentum:
		return &anysgd.Momentum{Momentum: momentum}, nil
	case MinimizerAdam:
		return &anysgd.Adam{}, nil
	case MinimizerRMSProp:
		return &anysgd.RMSProp{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMinimizer, minimizer)
	}
}

// ExpDecay is an exponentially decaying learning rate:
//
//	rate := Rate * DecayRate^(step / DecaySteps)
//
// If Staircase is set, step / DecaySteps is truncated to
// an integer.
// A DecaySteps of 0 means a constant rate.
type ExpDecay struct {
	Rate       float64
	DecayRate  float64
	DecaySteps int
	Staircase  bool
}

// StepRate returns the learning rate for the given step.
func (e *ExpDecay) StepRate(step int) float64 {
	if e.DecaySteps == 0 {
		return e.Rate
	}
	p := float64(step) / float64(e.DecaySteps)
	if e.Staircase {
		p = math.Floor(p)
	}
	return e.Rate * math.Pow(e.DecayRate, p)
}

// ClipNorm rescales gradients whose global L2 norm exceeds
// Max.
// A Max of 0 leaves gradients untouched.
type ClipNorm struct {
	Max float64

	// LastNorm is the norm of the last gradient, before
	// clipping.
	LastNorm float64
}

// Transform clips the gradient in place.
func (c *ClipNorm) Transform(g anydiff.Grad) anydiff.Grad {
	c.LastNorm = GradNorm(g)
	if c.Max == 0 || c.LastNorm <= c.Max {
		return g
	}
	g.Scale(creatorOf(g).MakeNumeric(c.Max / c.LastNorm))
	return g
}

// GradNorm computes the L2 norm of every component of the
// gradient together.
func GradNorm(g anydiff.Grad) float64 {
	var sum float64
	for _, v := range g {
		sum += numFloat(v.Dot(v))
	}
	return math.Sqrt(sum)
}

func creatorOf(g anydiff.Grad) anyvec.Creator {
	for _, v := range g {
		return v.Creator()
	}
	return nil
}

func numFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type %T", n))
	}
}
