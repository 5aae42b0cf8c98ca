package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kognitive/BallPrediction/datafilter"
	"github.com/unixpickle/anynet/anys2s"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// A Sample is one unfold of next-step prediction.
// Output[t] is the target for the input Input[t].
type Sample = anys2s.Sample

// SampleList is an anys2s.SampleList of unfolds.
// It can be split with anysgd.HashSplit.
type SampleList struct {
	creator anyvec.Creator
	Samples []*Sample
}

// NewSampleList creates a list of samples whose vectors
// come from c.
func NewSampleList(c anyvec.Creator, samples ...*Sample) *SampleList {
	return &SampleList{creator: c, Samples: samples}
}

// Creator returns the creator of the sample vectors.
func (s *SampleList) Creator() anyvec.Creator {
	return s.creator
}

// GetSample returns the sample at index i.
func (s *SampleList) GetSample(i int) (*anys2s.Sample, error) {
	if i < 0 || i >= len(s.Samples) {
		return nil, fmt.Errorf("get sample: index %d out of range [0, %d)", i, len(s.Samples))
	}
	return s.Samples[i], nil
}

// Len returns the number of samples.
func (s *SampleList) Len() int {
	return len(s.Samples)
}

// Swap swaps two samples.
func (s *SampleList) Swap(i, j int) {
	s.Samples[i], s.Samples[j] = s.Samples[j], s.Samples[i]
}

// Slice copies a sub-range of the list.
func (s *SampleList) Slice(i, j int) anysgd.SampleList {
	return NewSampleList(s.creator, append([]*Sample{}, s.Samples[i:j]...)...)
}

// Hash hashes the contents of a sample, so that equal
// samples always land in the same split.
func (s *SampleList) Hash(i int) []byte {
	h := sha256.New()
	var buf [8]byte
	for _, seq := range [][]anyvec.Vector{s.Samples[i].Input, s.Samples[i].Output} {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(seq)))
		h.Write(buf[:])
		for _, v := range seq {
			for _, x := range vectorFloats(v) {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
				h.Write(buf[:])
			}
		}
	}
	return h.Sum(nil)
}

// Split partitions the list into training and validation
// samples, with roughly trainRatio of them in training.
func (s *SampleList) Split(trainRatio float64) (train, validation *SampleList) {
	left, right := anysgd.HashSplit(s, trainRatio)
	return left.(*SampleList), right.(*SampleList)
}

// Sort puts the samples in the order of their hashes.
// The result does not depend on the previous order.
func (s *SampleList) Sort() {
	hashes := make([][]byte, s.Len())
	for i := range hashes {
		hashes[i] = s.Hash(i)
	}
	sort.Sort(&hashSorter{list: s, hashes: hashes})
}

type hashSorter struct {
	list   *SampleList
	hashes [][]byte
}

func (h *hashSorter) Len() int {
	return len(h.hashes)
}

func (h *hashSorter) Swap(i, j int) {
	h.list.Swap(i, j)
	h.hashes[i], h.hashes[j] = h.hashes[j], h.hashes[i]
}

func (h *hashSorter) Less(i, j int) bool {
	return bytes.Compare(h.hashes[i], h.hashes[j]) < 0
}

// SplitTrajectories partitions whole trajectories into
// training and validation sets by content hash, with
// roughly trainRatio of them in training.
// Windows of one trajectory never end up on both sides.
func SplitTrajectories(ts []datafilter.Trajectory, trainRatio float64) (train,
	validation []datafilter.Trajectory) {
	list := append(trajectoryList{}, ts...)
	left, right := anysgd.HashSplit(list, trainRatio)
	return left.(trajectoryList), right.(trajectoryList)
}

type trajectoryList []datafilter.Trajectory

func (t trajectoryList) Len() int {
	return len(t)
}

func (t trajectoryList) Swap(i, j int) {
	t[i], t[j] = t[j], t[i]
}

func (t trajectoryList) Slice(i, j int) anysgd.SampleList {
	return append(trajectoryList{}, t[i:j]...)
}

func (t trajectoryList) Hash(i int) []byte {
	h := sha256.New()
	var buf [8]byte
	for _, row := range t[i] {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(row)))
		h.Write(buf[:])
		for _, x := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			h.Write(buf[:])
		}
	}
	return h.Sum(nil)
}

// An Adapter cuts trajectories into samples.
//
// Each window of Steps+1 consecutive rows yields a sample
// whose inputs are the first NumInput features of the
// first Steps rows and whose targets are the first
// NumOutput features of the following rows.
// Windows advance by Steps rows.
type Adapter struct {
	// Filter, if non-nil, runs on the trajectories first.
	Filter datafilter.Filter

	NumInput  int
	NumOutput int
	Steps     int
}

// Samples filters the trajectories and cuts them into
// samples.
// Trajectories too short for one window are skipped.
func (a *Adapter) Samples(c anyvec.Creator, ts []datafilter.Trajectory) (*SampleList, error) {
	if a.Steps <= 0 || a.NumInput <= 0 || a.NumOutput <= 0 {
		return nil, errors.New("adapter: steps and feature counts must be positive")
	}
	if a.Filter != nil {
		var err error
		ts, err = datafilter.FilterAll(a.Filter, ts)
		if err != nil {
			return nil, fmt.Errorf("adapter: %w", err)
		}
	}
	res := NewSampleList(c)
	for i, t := range ts {
		if t.Len() > 0 && (t.Cols() < a.NumInput || t.Cols() < a.NumOutput) {
			return nil, fmt.Errorf("adapter: trajectory %d has %d columns", i, t.Cols())
		}
		for start := 0; start+a.Steps < t.Len(); start += a.Steps {
			res.Samples = append(res.Samples, a.window(c, t[start:start+a.Steps+1]))
		}
	}
	return res, nil
}

// Inputs converts rows into input vectors.
func (a *Adapter) Inputs(c anyvec.Creator, rows datafilter.Trajectory) ([]anyvec.Vector, error) {
	res := make([]anyvec.Vector, len(rows))
	for i, row := range rows {
		if len(row) < a.NumInput {
			return nil, fmt.Errorf("adapter: row %d has %d columns", i, len(row))
		}
		res[i] = makeVector(c, row[:a.NumInput])
	}
	return res, nil
}

func (a *Adapter) window(c anyvec.Creator, rows datafilter.Trajectory) *Sample {
	s := &Sample{
		Input:  make([]anyvec.Vector, a.Steps),
		Output: make([]anyvec.Vector, a.Steps),
	}
	for t := 0; t < a.Steps; t++ {
		s.Input[t] = makeVector(c, rows[t][:a.NumInput])
		s.Output[t] = makeVector(c, rows[t+1][:a.NumOutput])
	}
	return s
}

func makeVector(c anyvec.Creator, data []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(data))
}

func vectorFloats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported vector data %T", data))
	}
}
