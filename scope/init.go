package scope

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anyvec"
)

// Zero leaves the parameter zero'd out.
func Zero() Initializer {
	return func(v anyvec.Vector, s Shape) {}
}

// Const sets every component to x.
func Const(x float64) Initializer {
	return func(v anyvec.Vector, s Shape) {
		v.AddScalar(v.Creator().MakeNumeric(x))
	}
}

// Values copies fixed values into the parameter.
// The number of values must match the shape.
func Values(x []float64) Initializer {
	return func(v anyvec.Vector, s Shape) {
		if len(x) != s.Len() {
			panic("value count does not match parameter shape")
		}
		v.SetData(v.Creator().MakeNumericList(x))
	}
}

// Normal draws components from a normal distribution with
// variance 1/cols, so that a matrix applied to unit
// variance inputs yields unit variance outputs.
//
// If r is nil, the global source is used.
func Normal(r *rand.Rand) Initializer {
	return func(v anyvec.Vector, s Shape) {
		anyvec.Rand(v, anyvec.Normal, r)
		if s.Cols > 0 {
			v.Scale(v.Creator().MakeNumeric(1 / math.Sqrt(float64(s.Cols))))
		}
	}
}
