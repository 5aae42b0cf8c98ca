// Package ballprediction provides a driver for unfolded
// recurrent neural networks.
//
// A Network owns the time-step loop and the hidden-state
// list, while a Cell defines the parameters and the
// per-step transition of one architecture, such as the
// GRU in the gru sub-package.
// Parameters live in a scope.Registry so that every time
// step shares the same variables.
package ballprediction

import (
	"github.com/kognitive/BallPrediction/scope"
	"github.com/unixpickle/anydiff"
)

// A Cell is a recurrent cell architecture.
//
// A Network contains several instances of a Cell, each one
// owning a slice of every hidden-state tensor.
type Cell interface {
	// HiddenSizes returns the size of each hidden-state
	// tensor of the whole network, for one sequence.
	// Every size must be divisible by the number of cells.
	HiddenSizes() []int

	// InitCell declares the parameters of the cell called
	// name inside the creating scope s.
	InitCell(s *scope.Scope, name string) error

	// CreateCell computes the new hidden-state slices of
	// the cell at the given index.
	//
	// The scope s reuses the parameters that InitCell
	// declared.
	// The input x and hidden state h are batches of batch
	// row vectors.
	// The result has one entry per hidden-state tensor.
	CreateCell(s *scope.Scope, name string, x anydiff.Res, h []anydiff.Res,
		index, batch int) ([]anydiff.Res, error)
}

// Initializers supplies the initial values of new
// parameters.
type Initializers struct {
	Weights scope.Initializer
	Biases  scope.Initializer
}
