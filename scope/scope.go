// Package scope implements a registry of named, shared
// parameters.
//
// Parameters are addressed by slash-separated paths, like
// "GRU_ball/cell_0/input_gate/W".
// A path is created exactly once, during a build phase,
// and is looked up by reference afterwards.
package scope

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Errors returned when the create-once/reuse-many
// discipline is violated.
var (
	ErrExists  = errors.New("parameter already exists")
	ErrMissing = errors.New("parameter does not exist")
	ErrShape   = errors.New("parameter shape mismatch")
	ErrFrozen  = errors.New("registry is frozen")
)

// Separator joins the components of a parameter path.
const Separator = "/"

// A Shape is the logical shape of a parameter.
// Vectors are stored row-major, so a [Rows, Cols] matrix
// has Rows*Cols components.
type Shape struct {
	Rows int
	Cols int
}

// Len returns the number of components.
func (s Shape) Len() int {
	return s.Rows * s.Cols
}

func (s Shape) String() string {
	return fmt.Sprintf("[%d, %d]", s.Rows, s.Cols)
}

// A Param is a named, learnable variable.
type Param struct {
	Name  string
	Shape Shape
	Var   *anydiff.Var
}

// Matrix wraps the parameter as a differentiable matrix.
func (p *Param) Matrix() *anydiff.Matrix {
	return &anydiff.Matrix{Data: p.Var, Rows: p.Shape.Rows, Cols: p.Shape.Cols}
}

// An Initializer fills a freshly allocated parameter.
// The vector is zero when it is passed in.
type Initializer func(v anyvec.Vector, s Shape)

// A Registry owns every parameter of a model.
//
// A Registry may be used from multiple goroutines, but
// parameter creation is meant to happen in a single build
// phase that ends with Freeze.
type Registry struct {
	creator anyvec.Creator

	lock   sync.RWMutex
	params map[string]*Param
	order  []string
	frozen bool
}

// NewRegistry creates an empty registry whose parameters
// are allocated with c.
func NewRegistry(c anyvec.Creator) *Registry {
	return &Registry{creator: c, params: map[string]*Param{}}
}

// Creator returns the creator used for new parameters.
func (r *Registry) Creator() anyvec.Creator {
	return r.creator
}

// Root returns the top-level scope.
func (r *Registry) Root() *Scope {
	return &Scope{registry: r}
}

// Freeze ends the build phase.
// After Freeze, no parameter can be created.
func (r *Registry) Freeze() {
	r.lock.Lock()
	r.frozen = true
	r.lock.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.frozen
}

// Len returns the number of parameters.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.order)
}

// Names returns every parameter path in creation order.
func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]string{}, r.order...)
}

// Lookup finds a parameter by its full path.
func (r *Registry) Lookup(path string) (*Param, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if p, ok := r.params[path]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("lookup %s: %w", path, ErrMissing)
}

// Parameters returns the variables of all the parameters
// in creation order.
func (r *Registry) Parameters() []*anydiff.Var {
	r.lock.RLock()
	defer r.lock.RUnlock()
	res := make([]*anydiff.Var, len(r.order))
	for i, name := range r.order {
		res[i] = r.params[name].Var
	}
	return res
}

func (r *Registry) create(path string, shape Shape, init Initializer) (*Param, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.frozen {
		return nil, fmt.Errorf("create %s: %w", path, ErrFrozen)
	}
	if _, ok := r.params[path]; ok {
		return nil, fmt.Errorf("create %s: %w", path, ErrExists)
	}
	vec := r.creator.MakeVector(shape.Len())
	if init != nil {
		init(vec, shape)
	}
	p := &Param{Name: path, Shape: shape, Var: anydiff.NewVar(vec)}
	r.params[path] = p
	r.order = append(r.order, path)
	return p, nil
}

func (r *Registry) get(path string, shape Shape) (*Param, error) {
	p, err := r.Lookup(path)
	if err != nil {
		return nil, err
	}
	if p.Shape != shape {
		return nil, fmt.Errorf("get %s: %w: have %s, want %s", path, ErrShape, p.Shape, shape)
	}
	return p, nil
}

// A Scope is a named parameter-sharing context.
//
// A scope entered with reuse=false creates parameters; a
// scope entered with reuse=true only retrieves parameters
// that an earlier creating scope declared.
// Reuse is inherited by nested scopes once it is set.
type Scope struct {
	registry *Registry
	path     string
	reuse    bool
}

// Enter returns a nested scope.
func (s *Scope) Enter(name string, reuse bool) *Scope {
	return &Scope{
		registry: s.registry,
		path:     s.join(name),
		reuse:    reuse || s.reuse,
	}
}

// Path returns the scope's full path.
func (s *Scope) Path() string {
	return s.path
}

// Reuse reports whether the scope retrieves rather than
// creates parameters.
func (s *Scope) Reuse() bool {
	return s.reuse
}

// Registry returns the registry the scope belongs to.
func (s *Scope) Registry() *Registry {
	return s.registry
}

// Variable creates or retrieves the parameter called name.
//
// In a creating scope, the parameter must not exist yet.
// In a reusing scope, it must exist with the same shape,
// and init is ignored.
func (s *Scope) Variable(name string, shape Shape, init Initializer) (*Param, error) {
	path := s.join(name)
	if s.reuse {
		return s.registry.get(path, shape)
	}
	return s.registry.create(path, shape, init)
}

// Get retrieves an existing parameter regardless of the
// scope's reuse flag.
func (s *Scope) Get(name string) (*Param, error) {
	return s.registry.Lookup(s.join(name))
}

func (s *Scope) join(name string) string {
	if s.path == "" {
		return name
	}
	return strings.Join([]string{s.path, name}, Separator)
}
