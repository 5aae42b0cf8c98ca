package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kognitive/BallPrediction/datafilter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anynet/anys2s"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestReadCSV(t *testing.T) {
	input := "x,y,vx\n# comment\n1, 2, 3\n4,5,6\n"
	traj, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, datafilter.Trajectory{{1, 2, 3}, {4, 5, 6}}, traj)

	traj, err = ReadCSV(strings.NewReader("0.5,1e-3\n"))
	require.NoError(t, err)
	assert.Equal(t, datafilter.Trajectory{{0.5, 0.001}}, traj)

	_, err = ReadCSV(strings.NewReader("1,2\n3\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("1,2\nx,y\n"))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	traj := datafilter.Trajectory{{1.5, -2}, {0, 1e10}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, traj))
	actual, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, traj, actual)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.csv":    "3,3\n4,4\n",
		"a.csv":    "t,x\n1,1\n2,2\n",
		"c.csv":    "5,5\n",
		"note.txt": "not a trajectory",
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0644))
	}

	for _, workers := range []int{0, 1, 8} {
		ts, err := LoadDir(context.Background(), dir, workers)
		require.NoError(t, err)
		require.Len(t, ts, 3)
		assert.Equal(t, datafilter.Trajectory{{1, 1}, {2, 2}}, ts[0])
		assert.Equal(t, datafilter.Trajectory{{3, 3}, {4, 4}}, ts[1])
		assert.Equal(t, datafilter.Trajectory{{5, 5}}, ts[2])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadDir(ctx, dir, 2)
	assert.Error(t, err)

	_, err = LoadDir(context.Background(), t.TempDir(), 1)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.csv"), []byte("1,2\n3\n"), 0644))
	_, err = LoadDir(context.Background(), dir, 2)
	assert.Error(t, err)
}

func TestAdapterWindows(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	traj := datafilter.Trajectory{}
	for i := 0; i < 8; i++ {
		traj = append(traj, []float64{float64(i), float64(10 * i), -1})
	}
	a := &Adapter{NumInput: 3, NumOutput: 2, Steps: 3}
	samples, err := a.Samples(c, []datafilter.Trajectory{traj, traj[:3]})
	require.NoError(t, err)

	// Rows 0-3 and 3-6 form windows; 6-7 is too short, as is
	// the second trajectory.
	require.Equal(t, 2, samples.Len())
	first := samples.Samples[0]
	require.Len(t, first.Input, 3)
	require.Len(t, first.Output, 3)
	assert.Equal(t, []float64{0, 0, -1}, first.Input[0].Data())
	assert.Equal(t, []float64{10, 100, -1}, first.Input[1].Data())
	assert.Equal(t, []float64{1, 10}, first.Output[0].Data())
	assert.Equal(t, []float64{3, 30}, first.Output[2].Data())
	assert.Equal(t, []float64{3, 30, -1}, samples.Samples[1].Input[0].Data())
	assert.Equal(t, []float64{6, 60}, samples.Samples[1].Output[2].Data())

	_, err = (&Adapter{NumInput: 4, NumOutput: 1, Steps: 1}).Samples(c,
		[]datafilter.Trajectory{traj})
	assert.Error(t, err)
	_, err = (&Adapter{NumInput: 1, NumOutput: 1}).Samples(c, nil)
	assert.Error(t, err)
}

func TestAdapterFilter(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	ts := []datafilter.Trajectory{
		{{1}, {2}, {3}, {4}, {5}},
		{{1}, {2}},
	}
	a := &Adapter{
		Filter:    datafilter.Chain{&datafilter.Stride{N: 2}, &datafilter.MinRows{N: 3}},
		NumInput:  1,
		NumOutput: 1,
		Steps:     2,
	}
	samples, err := a.Samples(c, ts)
	require.NoError(t, err)
	require.Equal(t, 1, samples.Len())
	assert.Equal(t, []float64{3}, samples.Samples[0].Input[1].Data())
	assert.Equal(t, []float64{5}, samples.Samples[0].Output[1].Data())

	_, err = (&Adapter{Filter: datafilter.Base{}, NumInput: 1, NumOutput: 1,
		Steps: 1}).Samples(c, ts)
	assert.ErrorIs(t, err, datafilter.ErrNotImplemented)
}

func TestSampleListSplit(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	var traj datafilter.Trajectory
	for i := 0; i < 200; i++ {
		traj = append(traj, []float64{float64(i)})
	}
	a := &Adapter{NumInput: 1, NumOutput: 1, Steps: 1}
	samples, err := a.Samples(c, []datafilter.Trajectory{traj})
	require.NoError(t, err)
	require.Equal(t, 199, samples.Len())

	assert.Equal(t, samples.Hash(3), samples.Hash(3))
	assert.NotEqual(t, samples.Hash(3), samples.Hash(4))

	train, val := samples.Split(0.75)
	assert.Equal(t, samples.Len(), train.Len()+val.Len())
	assert.True(t, train.Len() > val.Len())

	inTrain := map[float64]bool{}
	for _, s := range train.Samples {
		inTrain[s.Input[0].Data().([]float64)[0]] = true
	}
	samples.Swap(0, 100)
	train2, _ := samples.Split(0.75)
	require.Equal(t, train.Len(), train2.Len())
	for _, s := range train2.Samples {
		assert.True(t, inTrain[s.Input[0].Data().([]float64)[0]])
	}

	sub := samples.Slice(2, 5).(*SampleList)
	assert.Equal(t, 3, sub.Len())
	sub.Swap(0, 1)
	assert.Equal(t, samples.Samples[2], sub.Samples[1])
}

func TestAdapterInputs(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	a := &Adapter{NumInput: 2, NumOutput: 2, Steps: 1}
	vecs, err := a.Inputs(c, datafilter.Trajectory{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{4, 5}, vecs[1].Data())
	_, err = a.Inputs(c, datafilter.Trajectory{{1}})
	assert.Error(t, err)
}

func TestSampleListAccessors(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	a := &Adapter{NumInput: 1, NumOutput: 1, Steps: 2}
	samples, err := a.Samples(c, []datafilter.Trajectory{{{1}, {2}, {3}, {4}, {5}}})
	require.NoError(t, err)
	require.Equal(t, 2, samples.Len())

	var list anys2s.SampleList = samples
	assert.Equal(t, c, list.Creator())
	sample, err := list.GetSample(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, sample.Input[0].Data())
	assert.Equal(t, []float64{5}, sample.Output[1].Data())
	_, err = list.GetSample(2)
	assert.Error(t, err)
	assert.Equal(t, c, samples.Slice(0, 1).(*SampleList).Creator())

	samples.Swap(0, 1)
	sorted := samples.Slice(0, 2).(*SampleList)
	sorted.Sort()
	samples.Swap(0, 1)
	samples.Sort()
	assert.Equal(t, samples.Samples, sorted.Samples)
	assert.True(t, bytes.Compare(samples.Hash(0), samples.Hash(1)) < 0)
}

func TestSplitTrajectories(t *testing.T) {
	var ts []datafilter.Trajectory
	for i := 0; i < 100; i++ {
		ts = append(ts, datafilter.Trajectory{{float64(i), 1}, {float64(i), 2}})
	}
	trainSet, valSet := SplitTrajectories(ts, 0.8)
	assert.Equal(t, len(ts), len(trainSet)+len(valSet))
	assert.True(t, len(trainSet) > len(valSet))
	assert.Equal(t, 3.0, ts[3][0][0], "input is not reordered")

	inTrain := map[float64]bool{}
	for _, traj := range trainSet {
		inTrain[traj[0][0]] = true
	}
	for _, traj := range valSet {
		assert.False(t, inTrain[traj[0][0]])
	}

	reversed := make([]datafilter.Trajectory, len(ts))
	for i, traj := range ts {
		reversed[len(ts)-1-i] = traj
	}
	train2, _ := SplitTrajectories(reversed, 0.8)
	require.Len(t, train2, len(trainSet))
	for _, traj := range train2 {
		assert.True(t, inTrain[traj[0][0]])
	}

	all, none := SplitTrajectories(ts, 1)
	assert.Len(t, all, len(ts))
	assert.Empty(t, none)
}
