package scope

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r Registry
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeRegistry)
}

// DeserializeRegistry deserializes a Registry.
// The result is frozen, since its parameters were created
// by an earlier build phase.
func DeserializeRegistry(d []byte) (*Registry, error) {
	var count int
	var payload []byte
	if err := serializer.DeserializeAny(d, &count, &payload); err != nil {
		return nil, essentials.AddCtx("deserialize Registry", err)
	}
	var dests []interface{}
	for i := 0; i < count; i++ {
		dests = append(dests, new(string), new(int), new(int), new(*anyvecsave.S))
	}
	if count > 0 {
		if err := serializer.DeserializeAny(payload, dests...); err != nil {
			return nil, essentials.AddCtx("deserialize Registry", err)
		}
	}

	res := &Registry{params: map[string]*Param{}, frozen: true}
	for i := 0; i < count; i++ {
		name := *dests[i*4].(*string)
		shape := Shape{Rows: *dests[i*4+1].(*int), Cols: *dests[i*4+2].(*int)}
		vec := (*dests[i*4+3].(**anyvecsave.S)).Vector
		if vec.Len() != shape.Len() {
			return nil, fmt.Errorf("deserialize Registry: %s: %w", name, ErrShape)
		}
		if _, ok := res.params[name]; ok {
			return nil, fmt.Errorf("deserialize Registry: %s: %w", name, ErrExists)
		}
		if res.creator == nil {
			res.creator = vec.Creator()
		} else if res.creator != vec.Creator() {
			return nil, errors.New("deserialize Registry: mixed vector creators")
		}
		res.params[name] = &Param{Name: name, Shape: shape, Var: anydiff.NewVar(vec)}
		res.order = append(res.order, name)
	}
	return res, nil
}

// SerializerType returns the unique ID used to serialize
// a Registry with the serializer package.
func (r *Registry) SerializerType() string {
	return "github.com/kognitive/BallPrediction/scope.Registry"
}

// Serialize serializes every parameter, in creation order.
func (r *Registry) Serialize() ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var fields []interface{}
	for _, name := range r.order {
		p := r.params[name]
		fields = append(fields, p.Name, p.Shape.Rows, p.Shape.Cols,
			&anyvecsave.S{Vector: p.Var.Vector})
	}
	payload := []byte{}
	if len(fields) > 0 {
		var err error
		payload, err = serializer.SerializeAny(fields...)
		if err != nil {
			return nil, err
		}
	}
	return serializer.SerializeAny(len(r.order), payload)
}

// Load copies parameter values from another registry into
// r, matching parameters by path.
// Every parameter of r must be present in src with the
// same shape.
func (r *Registry) Load(src *Registry) error {
	for _, name := range r.Names() {
		dst, _ := r.Lookup(name)
		p, err := src.get(name, dst.Shape)
		if err != nil {
			return fmt.Errorf("load registry: %w", err)
		}
		if p.Var.Vector.Creator() != dst.Var.Vector.Creator() {
			return fmt.Errorf("load registry: %s: bad vector creator", name)
		}
		dst.Var.Vector.Set(p.Var.Vector)
	}
	return nil
}
