package datafilter

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Func turns a function into a Filter.
type Func func(t Trajectory) (Trajectory, error)

// ApplyFilter calls f.
func (f Func) ApplyFilter(t Trajectory) (Trajectory, error) {
	return f(t)
}

// Chain applies filters in order.
// It stops early once a filter yields an empty trajectory.
type Chain []Filter

// ApplyFilter applies every filter in the chain.
func (c Chain) ApplyFilter(t Trajectory) (Trajectory, error) {
	for i, f := range c {
		var err error
		t, err = f.ApplyFilter(t)
		if err != nil {
			return nil, fmt.Errorf("chain filter %d: %w", i, err)
		}
		if len(t) == 0 {
			return nil, nil
		}
	}
	return t, nil
}

// MinRows drops trajectories with fewer than N rows.
type MinRows struct {
	N int
}

// ApplyFilter returns t unchanged or an empty trajectory.
func (m *MinRows) ApplyFilter(t Trajectory) (Trajectory, error) {
	if len(t) < m.N {
		return nil, nil
	}
	return t, nil
}

// Window keeps the rows in [Start, End).
// An End of zero means the end of the trajectory.
// Bounds past the end are clamped.
type Window struct {
	Start int
	End   int
}

// ApplyFilter returns the rows inside the window.
func (w *Window) ApplyFilter(t Trajectory) (Trajectory, error) {
	if w.Start < 0 || w.End < 0 || (w.End != 0 && w.End < w.Start) {
		return nil, fmt.Errorf("invalid window [%d, %d)", w.Start, w.End)
	}
	end := w.End
	if end == 0 || end > len(t) {
		end = len(t)
	}
	if w.Start >= end {
		return nil, nil
	}
	return t[w.Start:end], nil
}

// Stride keeps every N-th row, starting with the first.
type Stride struct {
	N int
}

// ApplyFilter subsamples t.
func (s *Stride) ApplyFilter(t Trajectory) (Trajectory, error) {
	if s.N <= 0 {
		return nil, fmt.Errorf("invalid stride %d", s.N)
	}
	res := make(Trajectory, 0, (len(t)+s.N-1)/s.N)
	for i := 0; i < len(t); i += s.N {
		res = append(res, t[i])
	}
	return res, nil
}

// Columns keeps a subset of the features of every row, in
// the given order.
type Columns struct {
	Indices []int
}

// ApplyFilter selects the columns.
func (c *Columns) ApplyFilter(t Trajectory) (Trajectory, error) {
	res := make(Trajectory, len(t))
	for i, row := range t {
		newRow := make([]float64, len(c.Indices))
		for j, idx := range c.Indices {
			if idx < 0 || idx >= len(row) {
				return nil, fmt.Errorf("row %d: column %d out of range", i, idx)
			}
			newRow[j] = row[idx]
		}
		res[i] = newRow
	}
	return res, nil
}

// Normalize rescales every column to zero mean and unit
// variance, using statistics fit on a training set.
type Normalize struct {
	Mean   []float64
	StdDev []float64
}

// FitNormalize computes per-column statistics over every
// row of every trajectory.
// Columns with no variance are given a deviation of 1.
func FitNormalize(ts []Trajectory) (*Normalize, error) {
	var cols int
	var rows int
	for _, t := range ts {
		for _, row := range t {
			if rows == 0 {
				cols = len(row)
			} else if len(row) != cols {
				return nil, errors.New("fit normalize: inconsistent row widths")
			}
			rows++
		}
	}
	if rows == 0 {
		return nil, errors.New("fit normalize: no rows")
	}

	res := &Normalize{Mean: make([]float64, cols), StdDev: make([]float64, cols)}
	column := make([]float64, 0, rows)
	for c := 0; c < cols; c++ {
		column = column[:0]
		for _, t := range ts {
			for _, row := range t {
				column = append(column, row[c])
			}
		}
		var std float64
		if rows > 1 {
			res.Mean[c], std = stat.MeanStdDev(column, nil)
		} else {
			res.Mean[c] = column[0]
		}
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		res.StdDev[c] = std
	}
	return res, nil
}

// ApplyFilter returns a normalized copy of t.
func (n *Normalize) ApplyFilter(t Trajectory) (Trajectory, error) {
	res := make(Trajectory, len(t))
	for i, row := range t {
		if len(row) != len(n.Mean) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i, len(n.Mean),
				len(row))
		}
		newRow := make([]float64, len(row))
		for j, x := range row {
			newRow[j] = (x - n.Mean[j]) / n.StdDev[j]
		}
		res[i] = newRow
	}
	return res, nil
}

// Denormalize maps a normalized row back to the original
// units.
func (n *Normalize) Denormalize(row []float64) []float64 {
	res := make([]float64, len(row))
	for j, x := range row {
		res[j] = x*n.StdDev[j] + n.Mean[j]
	}
	return res
}
