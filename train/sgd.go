package train

import (
	"context"
	"errors"
	"math/rand"

	"github.com/google/uuid"
	"github.com/kognitive/BallPrediction/dataset"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anys2s"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// NewTrainer creates a trainer for the mean squared error
// of f, averaged over every time step of a batch.
func NewTrainer(f func(anyseq.Seq) anyseq.Seq, params []*anydiff.Var) *anys2s.Trainer {
	return &anys2s.Trainer{
		Func:    f,
		Cost:    anynet.MSE{},
		Params:  params,
		Average: true,
	}
}

// A StepRater determines the learning rate from the number
// of steps taken so far.
type StepRater interface {
	StepRate(step int) float64
}

// A Session trains a network with anysgd.SGD, counting
// steps across runs.
type Session struct {
	Trainer *anys2s.Trainer

	// Transformer, if non-nil, is applied to each gradient
	// after clipping.
	Transformer anysgd.Transformer

	// Clip, if non-nil, bounds each gradient's norm.
	Clip *ClipNorm

	// Samples is the training set.
	// It is shuffled in place.
	Samples *dataset.SampleList

	Rater     StepRater
	BatchSize int

	// Seed determines the order of every epoch.
	Seed int64

	// MaxSteps, if non-zero, bounds the total number of
	// steps, including those of earlier runs.
	MaxSteps int

	// Step counts the steps taken so far.
	Step int

	// LogEvery, if non-zero, logs the cost every LogEvery
	// steps.
	LogEvery int
	Log      logrus.FieldLogger

	// RunID tags log entries.
	// A random ID is generated if it is empty.
	RunID string

	// StatusFunc, if non-nil, is called after every step.
	StatusFunc func(step int, cost float64)

	reported int
	lastRate float64
}

// Run trains until ctx is done or MaxSteps is reached.
// Stopping because of ctx is not an error.
func (s *Session) Run(ctx context.Context) error {
	if s.Samples == nil || s.Samples.Len() == 0 {
		return errors.New("run training: empty sample list")
	}
	if s.Trainer == nil || s.Rater == nil {
		return errors.New("run training: missing trainer or rater")
	}
	if len(s.Trainer.Params) == 0 {
		return errors.New("run training: no parameters")
	}
	if s.RunID == "" {
		s.RunID = uuid.NewString()
	}
	logger := s.Log
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithField("run", s.RunID)
	entry.WithFields(logrus.Fields{
		"samples":    s.Samples.Len(),
		"batch_size": s.BatchSize,
		"step":       s.Step,
	}).Info("starting training")

	if s.done() {
		entry.WithField("step", s.Step).Info("step limit reached")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.reported = s.Step

	sgd := &anysgd.SGD{
		Fetcher:     s.Trainer,
		Gradienter:  s.Trainer,
		Transformer: s.transformer(),
		Samples: &seededSamples{
			SampleList: s.Samples,
			gen:        rand.New(rand.NewSource(s.Seed + int64(s.Step))),
		},
		Rater:     stepRater{s},
		BatchSize: s.BatchSize,
		StatusFunc: func(b anysgd.Batch) {
			s.report(entry)
			if s.done() {
				cancel()
			}
		},
	}
	err := sgd.Run(ctx.Done())
	s.report(entry)
	if err != nil {
		return err
	}
	entry.WithField("step", s.Step).Info("stopped training")
	return nil
}

func (s *Session) done() bool {
	return s.MaxSteps != 0 && s.Step >= s.MaxSteps
}

func (s *Session) transformer() anysgd.Transformer {
	var chain Chain
	if s.Clip != nil {
		chain = append(chain, s.Clip)
	}
	if s.Transformer != nil {
		chain = append(chain, s.Transformer)
	}
	return chain
}

// report logs and reports the step that finished since the
// last call, if any.
func (s *Session) report(entry *logrus.Entry) {
	if s.reported == s.Step {
		return
	}
	s.reported = s.Step
	cost := numFloat(s.Trainer.LastCost)
	if s.LogEvery > 0 && s.Step%s.LogEvery == 0 {
		fields := logrus.Fields{"step": s.Step, "cost": cost, "lr": s.lastRate}
		if s.Clip != nil {
			fields["grad_norm"] = s.Clip.LastNorm
		}
		entry.WithFields(fields).Info("training step")
	}
	if s.StatusFunc != nil {
		s.StatusFunc(s.Step, cost)
	}
}

// stepRater is queried once per step, after the gradient
// is computed and before it is applied.
type stepRater struct {
	s *Session
}

func (r stepRater) Rate(epoch float64) float64 {
	rate := r.s.Rater.StepRate(r.s.Step)
	r.s.lastRate = rate
	r.s.Step++
	return rate
}

// seededSamples reorders every epoch with its own source,
// undoing the order left by the global one.
type seededSamples struct {
	*dataset.SampleList
	gen *rand.Rand
}

func (s *seededSamples) PostShuffle() {
	s.Sort()
	s.gen.Shuffle(s.Len(), s.Swap)
}

// Chain applies transformers in order.
type Chain []anysgd.Transformer

// Transform passes g through every transformer.
func (c Chain) Transform(g anydiff.Grad) anydiff.Grad {
	for _, t := range c {
		g = t.Transform(g)
	}
	return g
}

// Evaluate computes the average cost over every sample,
// in mini-batches of batchSize.
// A batchSize of 0 evaluates everything at once.
func Evaluate(t *anys2s.Trainer, samples *dataset.SampleList, batchSize int) (float64, error) {
	if samples.Len() == 0 {
		return 0, errors.New("evaluate: empty sample list")
	}
	if batchSize == 0 {
		batchSize = samples.Len()
	}
	var total float64
	for i := 0; i < samples.Len(); i += batchSize {
		end := i + batchSize
		if end > samples.Len() {
			end = samples.Len()
		}
		batch, err := t.Fetch(samples.Slice(i, end))
		if err != nil {
			return 0, err
		}
		cost := numFloat(anyvec.Sum(t.TotalCost(batch.(*anys2s.Batch)).Output()))
		total += cost * float64(end-i)
	}
	return total / float64(samples.Len()), nil
}
