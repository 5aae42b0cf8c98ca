package ballprediction

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// ErrUnbound is returned when an unfed Placeholder is
// used.
var ErrUnbound = errors.New("placeholder has not been fed")

// A Placeholder is a graph input of a fixed size which is
// bound to a concrete vector before every evaluation.
type Placeholder struct {
	Name string
	Size int

	v *anydiff.Var
}

// NewPlaceholder creates an unbound placeholder.
func NewPlaceholder(name string, size int) *Placeholder {
	return &Placeholder{Name: name, Size: size}
}

// Feed binds the placeholder to v.
func (p *Placeholder) Feed(v anyvec.Vector) error {
	if v.Len() != p.Size {
		return fmt.Errorf("feed %s: expected %d values, got %d", p.Name, p.Size, v.Len())
	}
	p.v = anydiff.NewVar(v)
	return nil
}

// Bound reports whether Feed has been called.
func (p *Placeholder) Bound() bool {
	return p.v != nil
}

// Res returns the fed value as a graph node.
func (p *Placeholder) Res() (*anydiff.Var, error) {
	if p.v == nil {
		return nil, fmt.Errorf("%s: %w", p.Name, ErrUnbound)
	}
	return p.v, nil
}
