package ballprediction

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// StepHName is the name of the first hidden-state
// placeholder used for incremental inference.
const StepHName = "step_h"

// ZeroState creates symbolic zero hidden-state tensors
// for a batch of sequences.
func ZeroState(c anyvec.Creator, sizes []int, batch int) []anydiff.Res {
	res := make([]anydiff.Res, len(sizes))
	for i, s := range sizes {
		res[i] = anydiff.NewConst(c.MakeVector(s * batch))
	}
	return res
}

// StepPlaceholders creates one unbound placeholder per
// hidden-state tensor.
func StepPlaceholders(sizes []int) []*Placeholder {
	res := make([]*Placeholder, len(sizes))
	for i, s := range sizes {
		name := StepHName
		if i > 0 {
			name = fmt.Sprintf("%s_%d", StepHName, i)
		}
		res[i] = NewPlaceholder(name, s)
	}
	return res
}

// ConcreteZeros creates zero vectors, one per hidden-state
// tensor, for initializing actual runs.
func ConcreteZeros(c anyvec.Creator, sizes []int) []anyvec.Vector {
	res := make([]anyvec.Vector, len(sizes))
	for i, s := range sizes {
		res[i] = c.MakeVector(s)
	}
	return res
}
