package train

import (
	"fmt"
	"os"

	"github.com/kognitive/BallPrediction/scope"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// SaveCheckpoint writes the parameters of a registry to a
// file.
func SaveCheckpoint(path string, r *scope.Registry) error {
	data, err := serializer.SerializeWithType(r)
	if err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	return nil
}

// ReadCheckpoint reads a registry from a file.
// The result is frozen.
func ReadCheckpoint(path string) (*scope.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("read checkpoint", err)
	}
	obj, err := serializer.DeserializeWithType(data)
	if err != nil {
		return nil, essentials.AddCtx("read checkpoint", err)
	}
	r, ok := obj.(*scope.Registry)
	if !ok {
		return nil, fmt.Errorf("read checkpoint: unexpected type %T", obj)
	}
	return r, nil
}

// LoadCheckpoint copies the parameters saved at path into
// an existing registry.
// Every parameter of dst must be present in the file with
// the same shape.
func LoadCheckpoint(path string, dst *scope.Registry) error {
	src, err := ReadCheckpoint(path)
	if err != nil {
		return err
	}
	if err := dst.Load(src); err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	return nil
}
