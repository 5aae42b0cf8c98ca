package datafilter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrajectories() []Trajectory {
	return []Trajectory{
		{{1, 10}, {2, 20}, {3, 30}},
		{{4, 40}},
		{},
		{{5, 50}, {6, 60}},
	}
}

func TestBaseNotImplemented(t *testing.T) {
	_, err := Base{}.ApplyFilter(Trajectory{{1}})
	assert.True(t, errors.Is(err, ErrNotImplemented))

	_, err = FilterAll(Base{}, testTrajectories())
	assert.True(t, errors.Is(err, ErrNotImplemented))

	res, err := FilterAll(Base{}, nil)
	assert.NoError(t, err)
	assert.Empty(t, res)
}

type embeddingFilter struct {
	Base
}

func TestEmbeddedBase(t *testing.T) {
	var f Filter = embeddingFilter{}
	_, err := f.ApplyFilter(Trajectory{{1}})
	assert.True(t, errors.Is(err, ErrNotImplemented))
}

func TestFilterAllDropsEmpty(t *testing.T) {
	identity := Func(func(t Trajectory) (Trajectory, error) {
		return t, nil
	})
	res, err := FilterAll(identity, testTrajectories())
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, 3, res[0].Len())
	assert.Equal(t, 1, res[1].Len())
	assert.Equal(t, 2, res[2].Len())

	res, err = FilterAll(&MinRows{N: 2}, testTrajectories())
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, Trajectory{{1, 10}, {2, 20}, {3, 30}}, res[0])
	assert.Equal(t, Trajectory{{5, 50}, {6, 60}}, res[1])
}

func TestWindow(t *testing.T) {
	traj := testTrajectories()[0]
	res, err := (&Window{Start: 1}).ApplyFilter(traj)
	require.NoError(t, err)
	assert.Equal(t, Trajectory{{2, 20}, {3, 30}}, res)

	res, err = (&Window{Start: 0, End: 2}).ApplyFilter(traj)
	require.NoError(t, err)
	assert.Equal(t, Trajectory{{1, 10}, {2, 20}}, res)

	res, err = (&Window{Start: 5, End: 9}).ApplyFilter(traj)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = (&Window{Start: 2, End: 1}).ApplyFilter(traj)
	assert.Error(t, err)
}

func TestStrideColumns(t *testing.T) {
	traj := testTrajectories()[0]
	res, err := (&Stride{N: 2}).ApplyFilter(traj)
	require.NoError(t, err)
	assert.Equal(t, Trajectory{{1, 10}, {3, 30}}, res)
	_, err = (&Stride{}).ApplyFilter(traj)
	assert.Error(t, err)

	res, err = (&Columns{Indices: []int{1, 0, 1}}).ApplyFilter(traj[:1])
	require.NoError(t, err)
	assert.Equal(t, Trajectory{{10, 1, 10}}, res)
	_, err = (&Columns{Indices: []int{2}}).ApplyFilter(traj)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	ts := []Trajectory{
		{{1, 5}, {2, 5}},
		{{3, 5}},
	}
	n, err := FitNormalize(ts)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 5}, n.Mean, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 1}, n.StdDev, 1e-12)

	res, err := n.ApplyFilter(ts[0])
	require.NoError(t, err)
	assert.Equal(t, Trajectory{{-1, 0}, {0, 0}}, res)
	assert.Equal(t, []float64{1, 5}, n.Denormalize(res[0]))
	assert.Equal(t, 1.0, ts[0][0][0], "input should not be modified")

	_, err = n.ApplyFilter(Trajectory{{1}})
	assert.Error(t, err)
	_, err = FitNormalize(nil)
	assert.Error(t, err)
	_, err = FitNormalize([]Trajectory{{{1, 2}}, {{1}}})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	var calls int
	counter := Func(func(t Trajectory) (Trajectory, error) {
		calls++
		return t, nil
	})
	chain := Chain{&Stride{N: 2}, &MinRows{N: 2}, counter}

	res, err := FilterAll(chain, testTrajectories())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, Trajectory{{1, 10}, {3, 30}}, res[0])
	assert.Equal(t, 1, calls)

	_, err = Chain{&Stride{}}.ApplyFilter(Trajectory{{1}})
	assert.Error(t, err)
}
