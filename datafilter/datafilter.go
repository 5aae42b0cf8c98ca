// Package datafilter defines the preprocessing step that
// runs on trajectories when training data is loaded.
package datafilter

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by Base, which has no
// filter method of its own.
var ErrNotImplemented = errors.New("you have to supply a trajectory filter method")

// A Trajectory is an ordered list of rows, one row of
// features per time step.
type Trajectory [][]float64

// Len returns the number of rows.
func (t Trajectory) Len() int {
	return len(t)
}

// Cols returns the width of the first row, or 0 for an
// empty trajectory.
func (t Trajectory) Cols() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// Copy creates a deep copy of the trajectory.
func (t Trajectory) Copy() Trajectory {
	res := make(Trajectory, len(t))
	for i, row := range t {
		res[i] = append([]float64{}, row...)
	}
	return res
}

// A Filter transforms one trajectory.
//
// The result uses the same row representation as the
// input, and it may be shorter.
// An empty result means the trajectory should be dropped.
type Filter interface {
	ApplyFilter(t Trajectory) (Trajectory, error)
}

// Base is a Filter without a filter method.
// It can be embedded by types that override ApplyFilter.
type Base struct{}

// ApplyFilter always fails with ErrNotImplemented.
func (Base) ApplyFilter(t Trajectory) (Trajectory, error) {
	return nil, ErrNotImplemented
}

// FilterAll applies f to every trajectory and drops the
// empty results, preserving the order of the rest.
func FilterAll(f Filter, ts []Trajectory) ([]Trajectory, error) {
	res := make([]Trajectory, 0, len(ts))
	for i, t := range ts {
		filtered, err := f.ApplyFilter(t)
		if err != nil {
			return nil, fmt.Errorf("filter trajectory %d: %w", i, err)
		}
		if len(filtered) != 0 {
			res = append(res, filtered)
		}
	}
	return res, nil
}
