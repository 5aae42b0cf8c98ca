// Command ballpredict trains GRU models on ball
// trajectories and uses them to extrapolate trajectories.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kognitive/BallPrediction/config"
	"github.com/kognitive/BallPrediction/datafilter"
	"github.com/kognitive/BallPrediction/dataset"
	"github.com/kognitive/BallPrediction/gru"
	"github.com/kognitive/BallPrediction/train"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "train":
		err = trainCommand(os.Args[2:])
	case "predict":
		err = predictCommand(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ballpredict <train | predict> [flags]")
	os.Exit(2)
}

func creator(precision int) (anyvec.Creator, error) {
	switch precision {
	case 32:
		return anyvec32.CurrentCreator(), nil
	case 64:
		return anyvec64.CurrentCreator(), nil
	default:
		return nil, fmt.Errorf("unsupported precision: %d", precision)
	}
}

func trainCommand(args []string) error {
	var configPath, dataDir, outPath string
	var validation float64
	var logEvery, maxSteps, workers, precision int
	var normalize, resume bool
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "model configuration")
	fs.StringVar(&dataDir, "data", "data", "directory of trajectory CSV files")
	fs.StringVar(&outPath, "out", "model", "checkpoint output path")
	fs.Float64Var(&validation, "validation", 0.1, "fraction of trajectories held out")
	fs.IntVar(&logEvery, "log", 10, "steps between status logs")
	fs.IntVar(&maxSteps, "steps", 0, "maximum training steps (0 for no limit)")
	fs.IntVar(&workers, "workers", 0, "loader goroutines (0 for one per core)")
	fs.IntVar(&precision, "precision", 32, "float precision (32 or 64)")
	fs.BoolVar(&normalize, "normalize", false, "normalize trajectory columns")
	fs.BoolVar(&resume, "resume", false, "continue from the checkpoint at -out")
	fs.Parse(args)

	c, err := creator(precision)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	model, err := gru.New(cfg, c)
	if err != nil {
		return err
	}
	if resume {
		if err := train.LoadCheckpoint(outPath, model.Registry); err != nil {
			return err
		}
		logrus.WithField("path", outPath).Info("resumed from checkpoint")
	}

	logrus.WithField("dir", dataDir).Info("loading trajectories")
	trajectories, err := dataset.LoadDir(context.Background(), dataDir, workers)
	if err != nil {
		return err
	}
	hyper := model.Hyper
	adapter := &dataset.Adapter{
		Filter:    &datafilter.MinRows{N: hyper.NumLayers + 1},
		NumInput:  hyper.NumInput,
		NumOutput: hyper.NumOutput,
		Steps:     hyper.NumLayers,
	}
	trainTrajs, valTrajs := dataset.SplitTrajectories(trajectories, 1-validation)
	if normalize {
		norm, err := datafilter.FitNormalize(trainTrajs)
		if err != nil {
			return err
		}
		if err := saveNormalize(outPath+".norm", norm); err != nil {
			return err
		}
		adapter.Filter = datafilter.Chain{adapter.Filter, norm}
	}
	trainSet, err := adapter.Samples(c, trainTrajs)
	if err != nil {
		return err
	}
	valSet, err := adapter.Samples(c, valTrajs)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"trajectories": len(trajectories),
		"training":     trainSet.Len(),
		"validation":   valSet.Len(),
	}).Info("created samples")

	transformer, err := train.NewTransformer(hyper.Minimizer, hyper.Momentum)
	if err != nil {
		return err
	}
	trainer := train.NewTrainer(model.Apply, model.Parameters())
	session := &train.Session{
		Trainer:     trainer,
		Transformer: transformer,
		Clip:        &train.ClipNorm{Max: hyper.ClipNorm},
		Samples:     trainSet,
		Rater: &train.ExpDecay{
			Rate:       hyper.LRRate,
			DecayRate:  hyper.LRDecayRate,
			DecaySteps: hyper.LRDecaySteps,
		},
		BatchSize: hyper.BatchSize,
		Seed:      hyper.Seed,
		MaxSteps:  maxSteps,
		LogEvery:  logEvery,
		Log:       logrus.StandardLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := rip.NewRIP()
	go func() {
		select {
		case <-r.Chan():
			cancel()
		case <-ctx.Done():
		}
	}()
	logrus.Info("press ctrl+c once to stop")
	if err := session.Run(ctx); err != nil {
		return err
	}

	if valSet.Len() > 0 {
		cost, err := train.Evaluate(trainer, valSet, hyper.BatchSize)
		if err != nil {
			return err
		}
		logrus.WithField("cost", cost).Info("validation")
	}
	if err := train.SaveCheckpoint(outPath, model.Registry); err != nil {
		return err
	}
	logrus.WithField("path", outPath).Info("saved checkpoint")
	return nil
}

func predictCommand(args []string) error {
	var configPath, modelPath, inputPath string
	var steps, precision int
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "model configuration")
	fs.StringVar(&modelPath, "model", "model", "checkpoint path")
	fs.StringVar(&inputPath, "input", "", "trajectory prefix CSV file")
	fs.IntVar(&steps, "steps", 10, "number of predicted steps")
	fs.IntVar(&precision, "precision", 32, "float precision (32 or 64)")
	fs.Parse(args)
	if inputPath == "" {
		return fmt.Errorf("missing -input flag")
	}

	c, err := creator(precision)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	model, err := gru.New(cfg, c)
	if err != nil {
		return err
	}
	if err := train.LoadCheckpoint(modelPath, model.Registry); err != nil {
		return err
	}

	prefix, err := dataset.ReadCSVFile(inputPath)
	if err != nil {
		return err
	}
	norm, err := loadNormalize(modelPath + ".norm")
	if err != nil {
		return err
	}
	if norm != nil {
		if prefix, err = norm.ApplyFilter(prefix); err != nil {
			return err
		}
	}
	adapter := &dataset.Adapter{NumInput: model.Hyper.NumInput}
	inputs, err := adapter.Inputs(c, prefix)
	if err != nil {
		return err
	}
	preds, err := model.Rollout(inputs, steps)
	if err != nil {
		return err
	}

	out := make(datafilter.Trajectory, len(preds))
	for i, p := range preds {
		row := make([]float64, p.Len())
		switch data := p.Data().(type) {
		case []float32:
			for j, x := range data {
				row[j] = float64(x)
			}
		case []float64:
			copy(row, data)
		}
		if norm != nil && len(row) <= len(norm.Mean) {
			row = (&datafilter.Normalize{
				Mean:   norm.Mean[:len(row)],
				StdDev: norm.StdDev[:len(row)],
			}).Denormalize(row)
		}
		out[i] = row
	}
	return dataset.WriteCSV(os.Stdout, out)
}

func saveNormalize(path string, n *datafilter.Normalize) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return essentials.AddCtx("save normalization", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save normalization", err)
	}
	return nil
}

func loadNormalize(path string) (*datafilter.Normalize, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, essentials.AddCtx("load normalization", err)
	}
	var n datafilter.Normalize
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, essentials.AddCtx("load normalization", err)
	}
	return &n, nil
}
