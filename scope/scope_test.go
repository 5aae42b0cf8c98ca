package scope

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
)

func TestScopeCreateOnce(t *testing.T) {
	r := NewRegistry(anyvec64.DefaultCreator{})
	s := r.Root().Enter("model", false).Enter("input_gate", false)

	w, err := s.Variable("W", Shape{Rows: 3, Cols: 2}, Const(1))
	require.NoError(t, err)
	assert.Equal(t, "model/input_gate/W", w.Name)
	assert.Equal(t, 6, w.Var.Vector.Len())
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, w.Var.Vector.Data())

	_, err = s.Variable("W", Shape{Rows: 3, Cols: 2}, Const(2))
	assert.True(t, errors.Is(err, ErrExists))
	assert.Equal(t, 1, r.Len())

	reused := r.Root().Enter("model", true).Enter("input_gate", false)
	assert.True(t, reused.Reuse())
	w1, err := reused.Variable("W", Shape{Rows: 3, Cols: 2}, nil)
	require.NoError(t, err)
	w2, err := reused.Variable("W", Shape{Rows: 3, Cols: 2}, nil)
	require.NoError(t, err)
	assert.True(t, w1 == w && w2 == w, "reuse should return the same handle")
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, w.Var.Vector.Data())
}

func TestScopeReuseViolations(t *testing.T) {
	r := NewRegistry(anyvec64.DefaultCreator{})
	s := r.Root().Enter("cell_0", false)
	_, err := s.Variable("b", Shape{Rows: 2, Cols: 1}, Zero())
	require.NoError(t, err)

	reuse := r.Root().Enter("cell_0", true)
	_, err = reuse.Variable("W", Shape{Rows: 2, Cols: 1}, nil)
	assert.True(t, errors.Is(err, ErrMissing))
	_, err = reuse.Variable("b", Shape{Rows: 1, Cols: 2}, nil)
	assert.True(t, errors.Is(err, ErrShape))

	r.Freeze()
	assert.True(t, r.Frozen())
	_, err = s.Variable("R", Shape{Rows: 2, Cols: 2}, Zero())
	assert.True(t, errors.Is(err, ErrFrozen))
	_, err = reuse.Variable("b", Shape{Rows: 2, Cols: 1}, nil)
	assert.NoError(t, err)
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry(anyvec64.DefaultCreator{})
	s := r.Root()
	var want []string
	for _, name := range []string{"z", "a", "m"} {
		p, err := s.Variable(name, Shape{Rows: 1, Cols: 1}, Zero())
		require.NoError(t, err)
		want = append(want, name)
		assert.True(t, r.Parameters()[len(want)-1] == p.Var)
	}
	assert.Equal(t, want, r.Names())
}

func TestRegistrySerialize(t *testing.T) {
	r := NewRegistry(anyvec64.DefaultCreator{})
	gen := rand.New(rand.NewSource(1337))
	s := r.Root().Enter("gru", false)
	for _, name := range []string{"W", "R", "b"} {
		_, err := s.Variable(name, Shape{Rows: 2, Cols: 3}, Normal(gen))
		require.NoError(t, err)
	}
	r.Freeze()

	data, err := serializer.SerializeWithType(r)
	require.NoError(t, err)
	obj, err := serializer.DeserializeWithType(data)
	require.NoError(t, err)
	r2, ok := obj.(*Registry)
	require.True(t, ok)

	assert.Equal(t, r.Names(), r2.Names())
	for _, name := range r.Names() {
		p1, _ := r.Lookup(name)
		p2, err := r2.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, p1.Shape, p2.Shape)
		assert.True(t, reflect.DeepEqual(p1.Var.Vector.Data(), p2.Var.Vector.Data()))
	}

	fresh := NewRegistry(anyvec64.DefaultCreator{})
	fs := fresh.Root().Enter("gru", false)
	for _, name := range []string{"W", "R", "b"} {
		_, err := fs.Variable(name, Shape{Rows: 2, Cols: 3}, Zero())
		require.NoError(t, err)
	}
	require.NoError(t, fresh.Load(r2))
	w1, _ := r.Lookup("gru/W")
	w2, _ := fresh.Lookup("gru/W")
	assert.Equal(t, w1.Var.Vector.Data(), w2.Var.Vector.Data())
}

func TestRegistryLoadMissing(t *testing.T) {
	src := NewRegistry(anyvec64.DefaultCreator{})
	dst := NewRegistry(anyvec64.DefaultCreator{})
	_, err := dst.Root().Variable("W", Shape{Rows: 1, Cols: 1}, Zero())
	require.NoError(t, err)
	assert.Error(t, dst.Load(src))
}
