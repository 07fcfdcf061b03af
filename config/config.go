package config

import (
	"fmt"

	"github.com/jsphweid/tunator/constants"
	"github.com/jsphweid/tunator/quantize"
)

// Hparams are fixed for the lifetime of a training run.
type Hparams struct {
	LearningRate float64
	Dropout      float64
	LSTMUnits    int
	DenseUnits   int
	LSTMLayers   int
	BatchSize    int
	Timesteps    int
	Epochs       int
}

func DefaultHparams() Hparams {
	return Hparams{
		LearningRate: 0.001,
		Dropout:      0.0,
		LSTMUnits:    512,
		DenseUnits:   512,
		LSTMLayers:   3,
		BatchSize:    32,
		Timesteps:    256,
		Epochs:       3,
	}
}

func (h Hparams) Validate() error {
	switch {
	case h.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive, got %v", h.LearningRate)
	case h.Dropout < 0 || h.Dropout >= 1:
		return fmt.Errorf("dropout must be in [0, 1), got %v", h.Dropout)
	case h.LSTMUnits < 1 || h.DenseUnits < 1 || h.LSTMLayers < 1:
		return fmt.Errorf("layer sizes must be positive")
	case h.BatchSize < 1:
		return fmt.Errorf("batch size must be positive, got %d", h.BatchSize)
	case h.Timesteps < 1:
		return fmt.Errorf("timesteps must be positive, got %d", h.Timesteps)
	case h.Epochs < 1:
		return fmt.Errorf("epochs must be positive, got %d", h.Epochs)
	}
	return nil
}

type Config struct {
	MidiDir       string
	StorePath     string
	OutDir        string
	CheckpointDir string

	Octaves int
	Seed    int64

	// fraction of songs held out for validation
	ValidationSplit   float64
	ValidationBatches int

	Quantize quantize.Options
	Hparams  Hparams
}

// Default reads paths from the environment and fills in everything else.
func Default() Config {
	return Config{
		MidiDir:           constants.GetMidiDir(),
		StorePath:         constants.GetStorePath(),
		OutDir:            constants.GetOutDir(),
		CheckpointDir:     constants.GetCheckpointDir(),
		Octaves:           constants.DefaultOctaves,
		Seed:              1,
		ValidationSplit:   0.2,
		ValidationBatches: 10,
		Quantize:          quantize.DefaultOptions(),
		Hparams:           DefaultHparams(),
	}
}

func (c Config) Validate() error {
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 {
		return fmt.Errorf("validation split must be in [0, 1), got %v", c.ValidationSplit)
	}
	if c.Octaves < 1 {
		return fmt.Errorf("octaves must be positive, got %d", c.Octaves)
	}
	return c.Hparams.Validate()
}
