// Package gru implements a gated recurrent unit cell for
// ballprediction networks.
package gru

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/kognitive/BallPrediction"
	"github.com/kognitive/BallPrediction/config"
	"github.com/kognitive/BallPrediction/scope"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// NamePrefix is prepended to the unique name of every GRU
// model.
const NamePrefix = "GRU_"

// Names of the layers in every cell.
const (
	RecurrentGate = "recurrent_gate"
	InputGate     = "input_gate"
	InputNode     = "input_node"
)

// GRU is a gated recurrent unit cell with forget gates.
//
// The network's hidden state is one tensor of
// NumHidden*NumCells values per sequence.
// Each cell owns a NumHidden slice of it, but its gates
// read the whole hidden state:
//
//	ex_h  := h[H*i : H*(i+1)]
//	r     := sigmoid(Wr*x + Rr*h + br)
//	z     := sigmoid(Wz*x + Rz*h + bz)
//	n     := tanh(Wn*x + Rn*(r ⊙ ex_h) + bn)
//	new_h := z ⊙ n + (1 - z) ⊙ ex_h
type GRU struct {
	Hyper   *config.Hyper
	Creator anyvec.Creator
	Init    ballprediction.Initializers
}

// A Model is a Network driven by a GRU.
type Model struct {
	*ballprediction.Network
	GRU *GRU
}

// New creates a GRU model from the configuration.
//
// Gradient clipping is disabled and the unique name is
// prefixed with NamePrefix; both changes are written back
// to cfg.
// Weights are drawn from a normal distribution seeded by
// the "seed" key and biases start at zero.
func New(cfg config.Config, c anyvec.Creator) (*Model, error) {
	return NewWithInit(cfg, c, ballprediction.Initializers{})
}

// NewWithInit is like New, but it uses custom parameter
// initializers.
// Nil initializers are replaced by the defaults.
func NewWithInit(cfg config.Config, c anyvec.Creator,
	init ballprediction.Initializers) (*Model, error) {
	cfg.Set(config.KeyClipNorm, 0)
	name, err := cfg.String(config.KeyUniqueName)
	if err != nil {
		return nil, fmt.Errorf("new GRU: %w", err)
	}
	cfg.Set(config.KeyUniqueName, NamePrefix+name)

	hyper, err := config.ParseHyper(cfg)
	if err != nil {
		return nil, fmt.Errorf("new GRU: %w", err)
	}
	if init.Weights == nil {
		init.Weights = scope.Normal(rand.New(rand.NewSource(hyper.Seed)))
	}
	if init.Biases == nil {
		init.Biases = scope.Zero()
	}
	cell := &GRU{Hyper: hyper, Creator: c, Init: init}
	net, err := ballprediction.NewNetwork(hyper, cell, c, init)
	if err != nil {
		return nil, fmt.Errorf("new GRU: %w", err)
	}
	return &Model{Network: net, GRU: cell}, nil
}

// HiddenSizes returns the size of the single hidden-state
// tensor.
func (g *GRU) HiddenSizes() []int {
	return []int{g.Hyper.HiddenSize()}
}

// H returns a symbolic zero hidden state.
func (g *GRU) H() []anydiff.Res {
	return ballprediction.ZeroState(g.Creator, g.HiddenSizes(), 1)
}

// StepH returns a placeholder for feeding the hidden state
// one step at a time.
func (g *GRU) StepH() []*ballprediction.Placeholder {
	return ballprediction.StepPlaceholders(g.HiddenSizes())
}

// CurrentH returns a concrete zero hidden state.
func (g *GRU) CurrentH() []anyvec.Vector {
	return ballprediction.ConcreteZeros(g.Creator, g.HiddenSizes())
}

// InitLayer declares the parameters of the layer called
// name: an input matrix W of shape [H, I], a hidden matrix
// R of shape [H, H*hiddenMult] and a bias b of shape
// [H, 1].
func (g *GRU) InitLayer(s *scope.Scope, name string, hiddenMult int) error {
	h := g.Hyper.NumHidden
	ls := s.Enter(name, false)
	if _, err := ls.Variable("W", scope.Shape{Rows: h, Cols: g.Hyper.NumInput},
		g.Init.Weights); err != nil {
		return err
	}
	if _, err := ls.Variable("R", scope.Shape{Rows: h, Cols: h * hiddenMult},
		g.Init.Weights); err != nil {
		return err
	}
	if _, err := ls.Variable("b", scope.Shape{Rows: h, Cols: 1}, g.Init.Biases); err != nil {
		return err
	}
	return nil
}

// CreateLayer computes activation(W*x + R*h + b) with the
// parameters that InitLayer declared for name.
func (g *GRU) CreateLayer(s *scope.Scope, name string, activation anynet.Layer,
	x, h anydiff.Res, batch int) (anydiff.Res, error) {
	ls := s.Enter(name, true)
	w, err := ls.Get("W")
	if err != nil {
		return nil, err
	}
	r, err := ls.Get("R")
	if err != nil {
		return nil, err
	}
	b, err := ls.Get("b")
	if err != nil {
		return nil, err
	}
	term := anydiff.Add(ballprediction.Linear(w, x, batch), ballprediction.Linear(r, h, batch))
	return activation.Apply(anydiff.AddRepeated(term, b.Var), batch), nil
}

// InitCell declares the three layers of the cell.
// Both gates read the full hidden state, while the input
// node reads one gated slice.
func (g *GRU) InitCell(s *scope.Scope, name string) error {
	cs := s.Enter(name, false)
	if err := g.InitLayer(cs, RecurrentGate, g.Hyper.NumCells); err != nil {
		return fmt.Errorf("init cell %s: %w", name, err)
	}
	if err := g.InitLayer(cs, InputGate, g.Hyper.NumCells); err != nil {
		return fmt.Errorf("init cell %s: %w", name, err)
	}
	if err := g.InitLayer(cs, InputNode, 1); err != nil {
		return fmt.Errorf("init cell %s: %w", name, err)
	}
	return nil
}

// CreateCell computes the new hidden slice of the cell at
// index.
func (g *GRU) CreateCell(s *scope.Scope, name string, x anydiff.Res, hState []anydiff.Res,
	index, batch int) ([]anydiff.Res, error) {
	if len(hState) != 1 {
		return nil, errors.New("create cell: GRU expects one hidden tensor")
	}
	if index < 0 || index >= g.Hyper.NumCells {
		return nil, fmt.Errorf("create cell: index %d out of range", index)
	}
	h := hState[0]
	numHidden := g.Hyper.NumHidden
	cs := s.Enter(name, true)

	exH := ballprediction.SliceCols(h, batch, g.Hyper.HiddenSize(), numHidden*index,
		numHidden*(index+1))

	recurrentGate, err := g.CreateLayer(cs, RecurrentGate, anynet.Sigmoid, x, h, batch)
	if err != nil {
		return nil, fmt.Errorf("create cell %s: %w", name, err)
	}
	modH := anydiff.Mul(recurrentGate, exH)

	inputGate, err := g.CreateLayer(cs, InputGate, anynet.Sigmoid, x, h, batch)
	if err != nil {
		return nil, fmt.Errorf("create cell %s: %w", name, err)
	}
	inputNode, err := g.CreateLayer(cs, InputNode, anynet.Tanh, x, modH, batch)
	if err != nil {
		return nil, fmt.Errorf("create cell %s: %w", name, err)
	}

	right := anydiff.Mul(inputGate, inputNode)
	left := anydiff.Mul(anydiff.Complement(inputGate), exH)
	return []anydiff.Res{anydiff.Add(left, right)}, nil
}
