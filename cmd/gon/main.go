package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"rpropnet/dataset"
	"rpropnet/memory"
	"rpropnet/neuralnet"
)

func main() {
	configPath := flag.String("config", "", "JSON training configuration")
	dataPath := flag.String("data", "", "Dataset file (default: XOR truth table)")
	labeled := flag.Bool("labeled", false, "Dataset rows end with a class label instead of target values")
	epochs := flag.Int("epochs", 0, "Maximum epochs (overrides config)")
	target := flag.Float64("target", 0, "Stop once the mean squared error drops below this (overrides config)")
	workers := flag.Int("workers", 0, "Training workers; 1 trains sequentially (overrides config)")
	seed := flag.Int64("seed", 0, "Weight initialization seed (overrides config)")
	saveDir := flag.String("save", "", "Directory to save the trained weights to")
	verbose := flag.Bool("v", false, "Log every training progress line")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("loading config", "err", err)
		os.Exit(1)
	}
	if *epochs > 0 {
		cfg.Epochs = *epochs
	}
	if *target > 0 {
		cfg.TargetError = *target
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	if err := run(cfg, *dataPath, *labeled, *saveDir, logger); err != nil {
		logger.Error("training failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, dataPath string, labeled bool, saveDir string, logger *slog.Logger) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	set := dataset.XOR()
	if dataPath != "" {
		last := cfg.Structure.NeuronsByLayers[len(cfg.Structure.NeuronsByLayers)-1]
		var err error
		set, err = dataset.LoadFile(dataPath, cfg.Structure.InputVectorLength, last, labeled)
		if err != nil {
			return err
		}
	}
	if err := set.Validate(cfg.Structure); err != nil {
		return err
	}

	activation, err := neuralnet.ActivationByName(cfg.Activation, cfg.Alpha)
	if err != nil {
		return err
	}
	nn, err := neuralnet.New(cfg.Structure, neuralnet.NewSeededWeights(cfg.Structure, cfg.Seed),
		neuralnet.WithActivation(activation))
	if err != nil {
		return err
	}
	optimizer, err := cfg.optimizer()
	if err != nil {
		return err
	}

	var phase neuralnet.SamplePhase = neuralnet.Sequential{}
	if cfg.Workers != 1 {
		phase = neuralnet.Parallel{Workers: cfg.Workers}
	}
	trainer := neuralnet.NewTrainer(nn, cfg.Params,
		neuralnet.WithOptimizer(optimizer),
		neuralnet.WithSamplePhase(phase),
		neuralnet.WithLogger(logger))

	inputs, outputs := set.Samples()
	logger.Info("training", "samples", len(inputs), "layers", cfg.Structure.NeuronsByLayers, "workers", cfg.Workers)
	mse, ran, err := trainer.TrainEpochs(inputs, outputs, cfg.Epochs, cfg.TargetError)
	if err != nil {
		return err
	}
	fmt.Printf("epochs=%d mse=%.6f\n", ran, mse)

	for s, input := range inputs {
		out, err := trainer.Compute(input)
		if err != nil {
			return err
		}
		fmt.Printf("%v -> %.4f (want %v)\n", input, out, outputs[s])
	}

	if saveDir != "" {
		store, err := memory.NewTextFiles(saveDir)
		if err != nil {
			return err
		}
		if err := trainer.SaveMemory(store); err != nil {
			return err
		}
		logger.Info("weights saved", "dir", saveDir)
	}
	return nil
}
