// Package config stores the hyperparameters of a model as
// a mapping of named values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/unixpickle/essentials"
	"gopkg.in/yaml.v3"
)

// Errors wrapped by *KeyError.
var (
	ErrMissingKey = errors.New("missing configuration key")
	ErrType       = errors.New("wrong configuration value type")
)

// A KeyError describes a failed lookup.
type KeyError struct {
	Key string
	Err error
}

func (k *KeyError) Error() string {
	return fmt.Sprintf("config key %q: %v", k.Key, k.Err)
}

// Unwrap returns ErrMissingKey or ErrType.
func (k *KeyError) Unwrap() error {
	return k.Err
}

// A Config maps hyperparameter names to values.
//
// Values usually come from a YAML or JSON document, so
// numbers may be stored as int, int64, float64 or strings
// holding a number.
type Config map[string]interface{}

// Load reads a Config from a YAML or JSON file.
// The format is chosen by file extension; anything that
// is not ".json" is parsed as YAML.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	res := Config{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &res)
	} else {
		err = yaml.Unmarshal(data, &res)
	}
	if err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	return res, nil
}

// Save writes the Config as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(map[string]interface{}(c))
	if err != nil {
		return essentials.AddCtx("save config", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save config", err)
	}
	return nil
}

// Clone creates a shallow copy of the Config.
func (c Config) Clone() Config {
	res := make(Config, len(c))
	for k, v := range c {
		res[k] = v
	}
	return res
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Set stores a value.
func (c Config) Set(key string, value interface{}) {
	c[key] = value
}

// String looks up a string value.
func (c Config) String(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", &KeyError{Key: key, Err: ErrMissingKey}
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", &KeyError{Key: key, Err: ErrType}
	}
}

// Float looks up a numeric value.
func (c Config) Float(key string) (float64, error) {
	v, ok := c[key]
	if !ok {
		return 0, &KeyError{Key: key, Err: ErrMissingKey}
	}
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, &KeyError{Key: key, Err: ErrType}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &KeyError{Key: key, Err: ErrType}
		}
		return f, nil
	default:
		return 0, &KeyError{Key: key, Err: ErrType}
	}
}

// Int looks up an integer value.
// Floating-point values are accepted only if they are
// whole numbers.
func (c Config) Int(key string) (int, error) {
	if v, ok := c[key].(string); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, &KeyError{Key: key, Err: ErrType}
		}
		return i, nil
	}
	f, err := c.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, &KeyError{Key: key, Err: ErrType}
	}
	return int(f), nil
}

// FloatDefault is like Float, but it returns def if the
// key is missing.
func (c Config) FloatDefault(key string, def float64) (float64, error) {
	if !c.Has(key) {
		return def, nil
	}
	return c.Float(key)
}
