package config

import "fmt"

// Keys read by every recurrent model.
const (
	KeyUniqueName   = "unique_name"
	KeyNumInput     = "num_input"
	KeyNumOutput    = "num_output"
	KeyNumHidden    = "num_hidden"
	KeyNumCells     = "num_cells"
	KeyNumLayers    = "num_layers"
	KeyBatchSize    = "batch_size"
	KeyMinimizer    = "minimizer"
	KeySeed         = "seed"
	KeyMomentum     = "momentum"
	KeyLRRate       = "lr_rate"
	KeyLRDecaySteps = "lr_decay_steps"
	KeyLRDecayRate  = "lr_decay_rate"
	KeyClipNorm     = "clip_norm"
)

// Hyper is the typed form of a model Config.
type Hyper struct {
	UniqueName string

	NumInput  int
	NumOutput int
	NumHidden int
	NumCells  int

	// NumLayers is the number of time-step unfolds.
	NumLayers int

	BatchSize    int
	Minimizer    string
	Seed         int64
	Momentum     float64
	LRRate       float64
	LRDecaySteps int
	LRDecayRate  float64

	// ClipNorm is the global gradient norm limit.
	// A value of 0 disables clipping.
	ClipNorm float64
}

// ParseHyper reads every required key from c.
// The first missing or malformed key is reported.
func ParseHyper(c Config) (*Hyper, error) {
	h := &Hyper{}
	var err error
	if h.UniqueName, err = c.String(KeyUniqueName); err != nil {
		return nil, err
	}
	ints := []struct {
		key string
		dst *int
	}{
		{KeyNumInput, &h.NumInput},
		{KeyNumOutput, &h.NumOutput},
		{KeyNumHidden, &h.NumHidden},
		{KeyNumCells, &h.NumCells},
		{KeyNumLayers, &h.NumLayers},
		{KeyBatchSize, &h.BatchSize},
	}
	for _, x := range ints {
		if *x.dst, err = c.Int(x.key); err != nil {
			return nil, err
		}
	}
	if h.Minimizer, err = c.String(KeyMinimizer); err != nil {
		return nil, err
	}
	seed, err := c.Int(KeySeed)
	if err != nil {
		return nil, err
	}
	h.Seed = int64(seed)
	if h.Momentum, err = c.Float(KeyMomentum); err != nil {
		return nil, err
	}
	if h.LRRate, err = c.Float(KeyLRRate); err != nil {
		return nil, err
	}
	if h.LRDecaySteps, err = c.Int(KeyLRDecaySteps); err != nil {
		return nil, err
	}
	if h.LRDecayRate, err = c.Float(KeyLRDecayRate); err != nil {
		return nil, err
	}
	if h.ClipNorm, err = c.FloatDefault(KeyClipNorm, 0); err != nil {
		return nil, err
	}
	return h, nil
}

// Validate checks that the sizes and rates are usable.
func (h *Hyper) Validate() error {
	positive := []struct {
		key string
		val int
	}{
		{KeyNumInput, h.NumInput},
		{KeyNumOutput, h.NumOutput},
		{KeyNumHidden, h.NumHidden},
		{KeyNumCells, h.NumCells},
		{KeyNumLayers, h.NumLayers},
		{KeyBatchSize, h.BatchSize},
	}
	for _, x := range positive {
		if x.val <= 0 {
			return fmt.Errorf("%s must be > 0 (got %d)", x.key, x.val)
		}
	}
	if h.LRRate <= 0 {
		return fmt.Errorf("%s must be > 0 (got %f)", KeyLRRate, h.LRRate)
	}
	if h.LRDecaySteps < 0 {
		return fmt.Errorf("%s must be >= 0 (got %d)", KeyLRDecaySteps, h.LRDecaySteps)
	}
	if h.ClipNorm < 0 {
		return fmt.Errorf("%s must be >= 0 (got %f)", KeyClipNorm, h.ClipNorm)
	}
	return nil
}

// HiddenSize returns the size of the full hidden state.
func (h *Hyper) HiddenSize() int {
	return h.NumHidden * h.NumCells
}
