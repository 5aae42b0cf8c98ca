package ballprediction

import (
	"errors"
	"fmt"

	"github.com/kognitive/BallPrediction/config"
	"github.com/kognitive/BallPrediction/scope"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
)

// OutputScope is the scope name of the readout layer.
const OutputScope = "output"

// CellName returns the scope name of the cell at index.
func CellName(index int) string {
	return fmt.Sprintf("cell_%d", index)
}

// A Network unfolds a Cell over time.
//
// Each time step runs every cell on the input and the full
// hidden state, joins the resulting slices into the next
// hidden state, and applies a linear readout to produce
// the step's output.
type Network struct {
	Hyper    *config.Hyper
	Cell     Cell
	Registry *scope.Registry

	h []anydiff.Res
}

// NewNetwork declares every parameter of the network and
// then freezes its registry.
//
// Cells are declared under "<unique_name>/cell_<i>" and the
// readout under "<unique_name>/output".
func NewNetwork(h *config.Hyper, cell Cell, c anyvec.Creator, init Initializers) (*Network, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("new network: %w", err)
	}
	var total int
	for _, size := range cell.HiddenSizes() {
		if size%h.NumCells != 0 {
			return nil, fmt.Errorf("new network: hidden size %d not divisible by %d cells",
				size, h.NumCells)
		}
		total += size
	}

	reg := scope.NewRegistry(c)
	model := reg.Root().Enter(h.UniqueName, false)
	for i := 0; i < h.NumCells; i++ {
		if err := cell.InitCell(model, CellName(i)); err != nil {
			return nil, fmt.Errorf("new network: %w", err)
		}
	}
	out := model.Enter(OutputScope, false)
	if _, err := out.Variable("W", scope.Shape{Rows: h.NumOutput, Cols: total},
		init.Weights); err != nil {
		return nil, fmt.Errorf("new network: %w", err)
	}
	if _, err := out.Variable("b", scope.Shape{Rows: h.NumOutput, Cols: 1},
		init.Biases); err != nil {
		return nil, fmt.Errorf("new network: %w", err)
	}
	reg.Freeze()

	return &Network{
		Hyper:    h,
		Cell:     cell,
		Registry: reg,
		h:        ZeroState(c, cell.HiddenSizes(), 1),
	}, nil
}

// Parameters returns every learnable variable.
func (n *Network) Parameters() []*anydiff.Var {
	return n.Registry.Parameters()
}

// InitialH returns the start state of a single sequence.
func (n *Network) InitialH() []anydiff.Res {
	return n.h
}

// ZeroH returns a zero start state for a batch.
func (n *Network) ZeroH(batch int) []anydiff.Res {
	return ZeroState(n.Registry.Creator(), n.Cell.HiddenSizes(), batch)
}

// StepH returns fresh placeholders for the hidden state.
func (n *Network) StepH() []*Placeholder {
	return StepPlaceholders(n.Cell.HiddenSizes())
}

// CurrentH returns concrete zero hidden-state vectors.
func (n *Network) CurrentH() []anyvec.Vector {
	return ConcreteZeros(n.Registry.Creator(), n.Cell.HiddenSizes())
}

// Step applies every cell for one time step.
func (n *Network) Step(x anydiff.Res, h []anydiff.Res, batch int) (out anydiff.Res,
	newH []anydiff.Res, err error) {
	sizes := n.Cell.HiddenSizes()
	if len(h) != len(sizes) {
		return nil, nil, fmt.Errorf("step: expected %d hidden tensors, got %d",
			len(sizes), len(h))
	}
	model := n.Registry.Root().Enter(n.Hyper.UniqueName, true)

	slices := make([][]anydiff.Res, len(sizes))
	for i := 0; i < n.Hyper.NumCells; i++ {
		cellH, err := n.Cell.CreateCell(model, CellName(i), x, h, i, batch)
		if err != nil {
			return nil, nil, fmt.Errorf("step: %w", err)
		}
		if len(cellH) != len(sizes) {
			return nil, nil, fmt.Errorf("step: cell %d returned %d tensors, expected %d",
				i, len(cellH), len(sizes))
		}
		for k, s := range cellH {
			slices[k] = append(slices[k], s)
		}
	}

	newH = make([]anydiff.Res, len(sizes))
	for k := range sizes {
		newH[k] = JoinCols(batch, slices[k]...)
	}
	out, err = n.readout(model, JoinCols(batch, newH...), batch)
	if err != nil {
		return nil, nil, err
	}
	return out, newH, nil
}

// Unfold applies Hyper.NumLayers time steps to the inputs,
// starting from the hidden state h.
// It returns the output of every step and the final state.
func (n *Network) Unfold(xs []anydiff.Res, h []anydiff.Res, batch int) ([]anydiff.Res,
	[]anydiff.Res, error) {
	if len(xs) != n.Hyper.NumLayers {
		return nil, nil, fmt.Errorf("unfold: expected %d inputs, got %d",
			n.Hyper.NumLayers, len(xs))
	}
	outs := make([]anydiff.Res, len(xs))
	for t, x := range xs {
		var err error
		outs[t], h, err = n.Step(x, h, batch)
		if err != nil {
			return nil, nil, fmt.Errorf("unfold step %d: %w", t, err)
		}
	}
	return outs, h, nil
}

// StepOnce runs one step on concrete values, feeding h
// through the step placeholders.
func (n *Network) StepOnce(x anyvec.Vector, h []anyvec.Vector) (anyvec.Vector,
	[]anyvec.Vector, error) {
	if x.Len() != n.Hyper.NumInput {
		return nil, nil, fmt.Errorf("step once: expected %d inputs, got %d",
			n.Hyper.NumInput, x.Len())
	}
	placeholders := n.StepH()
	if len(h) != len(placeholders) {
		return nil, nil, fmt.Errorf("step once: expected %d hidden tensors, got %d",
			len(placeholders), len(h))
	}
	hRes := make([]anydiff.Res, len(h))
	for i, p := range placeholders {
		if err := p.Feed(h[i]); err != nil {
			return nil, nil, fmt.Errorf("step once: %w", err)
		}
		v, err := p.Res()
		if err != nil {
			return nil, nil, fmt.Errorf("step once: %w", err)
		}
		hRes[i] = v
	}
	out, newH, err := n.Step(anydiff.NewConst(x), hRes, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("step once: %w", err)
	}
	newVecs := make([]anyvec.Vector, len(newH))
	for i, v := range newH {
		newVecs[i] = v.Output()
	}
	return out.Output(), newVecs, nil
}

// Rollout feeds the prefix through the network and then
// feeds each prediction back in as the next input.
// It returns steps predictions, the first of which is the
// output for the last prefix vector.
//
// Feeding predictions back requires NumInput == NumOutput
// when steps > 1.
func (n *Network) Rollout(prefix []anyvec.Vector, steps int) ([]anyvec.Vector, error) {
	if len(prefix) == 0 {
		return nil, errors.New("rollout: empty prefix")
	}
	if steps > 1 && n.Hyper.NumInput != n.Hyper.NumOutput {
		return nil, fmt.Errorf("rollout: cannot feed %d outputs back as %d inputs",
			n.Hyper.NumOutput, n.Hyper.NumInput)
	}
	h := n.CurrentH()
	var out anyvec.Vector
	var err error
	for _, x := range prefix {
		out, h, err = n.StepOnce(x, h)
		if err != nil {
			return nil, fmt.Errorf("rollout: %w", err)
		}
	}
	var res []anyvec.Vector
	for len(res) < steps {
		res = append(res, out)
		if len(res) == steps {
			break
		}
		out, h, err = n.StepOnce(out, h)
		if err != nil {
			return nil, fmt.Errorf("rollout: %w", err)
		}
	}
	return res, nil
}

// Block wraps the network as an anyrnn.Block whose state
// is the hidden-state list packed per sequence.
//
// The Block panics if the registry does not match the
// cell, which can only happen if NewNetwork was bypassed.
func (n *Network) Block() anyrnn.Block {
	sizes := n.Cell.HiddenSizes()
	var total int
	for _, s := range sizes {
		total += s
	}
	return &anyrnn.FuncBlock{
		Func: func(in, state anydiff.Res, batch int) (out, newState anydiff.Res) {
			h := SplitCols(state, batch, sizes)
			out, newH, err := n.Step(in, h, batch)
			if err != nil {
				panic(err)
			}
			return out, JoinCols(batch, newH...)
		},
		MakeStart: func(batch int) anydiff.Res {
			return anydiff.NewConst(n.Registry.Creator().MakeVector(total * batch))
		},
	}
}

// Apply maps the network over a batch of sequences.
func (n *Network) Apply(seq anyseq.Seq) anyseq.Seq {
	return anyrnn.Map(seq, n.Block())
}

func (n *Network) readout(model *scope.Scope, state anydiff.Res, batch int) (anydiff.Res,
	error) {
	out := model.Enter(OutputScope, true)
	w, err := out.Get("W")
	if err != nil {
		return nil, fmt.Errorf("readout: %w", err)
	}
	b, err := out.Get("b")
	if err != nil {
		return nil, fmt.Errorf("readout: %w", err)
	}
	return anydiff.AddRepeated(Linear(w, state, batch), b.Var), nil
}
