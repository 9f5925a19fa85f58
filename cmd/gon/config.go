package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"rpropnet/neuralnet"
)

// Config is the JSON document read by -config.
type Config struct {
	Structure   neuralnet.Structure `json:"structure"`
	Activation  string              `json:"activation"`
	Alpha       float64             `json:"alpha"`
	Params      neuralnet.Params    `json:"params"`
	Optimizer   string              `json:"optimizer"`
	Epochs      int                 `json:"epochs"`
	TargetError float64             `json:"targetError"`
	Workers     int                 `json:"workers"`
	Seed        int64               `json:"seed"`
}

// DefaultConfig trains the 2-2-2-1 network on a two-input truth table.
func DefaultConfig() Config {
	return Config{
		Structure:   neuralnet.Structure{InputVectorLength: 2, NeuronsByLayers: []int{2, 2, 1}},
		Activation:  "sigmoid",
		Params:      neuralnet.DefaultParams(),
		Optimizer:   "rprop",
		Epochs:      1000,
		TargetError: 1e-3,
		Workers:     1,
		Seed:        1,
	}
}

// loadConfig overlays the file at path on the defaults.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "can't read config %s", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "can't parse config %s", path)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if err := c.Structure.Validate(); err != nil {
		return err
	}
	return c.Params.Validate()
}

func (c Config) optimizer() (neuralnet.Optimizer, error) {
	switch c.Optimizer {
	case "", "rprop":
		return neuralnet.NewRProp(c.Params), nil
	case "sgd", "backprop":
		return neuralnet.NewSGD(c.Params), nil
	}
	return nil, errors.Errorf("unknown optimizer %q", c.Optimizer)
}
