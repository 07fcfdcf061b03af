package cmd

import (
	"fmt"

	"github.com/jsphweid/tunator/network"
	"github.com/jsphweid/tunator/sampler"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	hp := &cfg.Hparams
	f := trainCmd.Flags()
	f.Float64Var(&hp.LearningRate, "learning-rate", hp.LearningRate, "learning rate")
	f.Float64Var(&hp.Dropout, "dropout", hp.Dropout, "input dropout")
	f.IntVar(&hp.LSTMUnits, "lstm-units", hp.LSTMUnits, "units per LSTM layer")
	f.IntVar(&hp.DenseUnits, "dense-units", hp.DenseUnits, "units in the dense layer")
	f.IntVar(&hp.LSTMLayers, "lstm-layers", hp.LSTMLayers, "number of LSTM layers")
	f.IntVar(&hp.BatchSize, "batch-size", hp.BatchSize, "windows per batch")
	f.IntVar(&hp.Timesteps, "timesteps", hp.Timesteps, "frames per window")
	f.IntVar(&hp.Epochs, "epochs", hp.Epochs, "passes over the training windows")
	f.Float64Var(&cfg.ValidationSplit, "validation-split", cfg.ValidationSplit, "fraction of songs held out")
	f.IntVar(&cfg.ValidationBatches, "validation-batches", cfg.ValidationBatches, "validation batches scored per epoch")
	rootCmd.AddCommand(trainCmd)
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Trains the model on the song store",
	Long:  `Trains the next-frame model on windows cut from the stored songs.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return train()
	},
}

func train() error {
	logger := log.WithFields(log.Fields{
		"function": "cmd.train",
	})

	index, err := pitchIndex()
	if err != nil {
		return err
	}
	st := openStore()
	songs, err := st.ListSongs()
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return errors.Errorf("no songs in %v, run ingest first", st.Path())
	}

	rng := newRand()
	trainSongs, valSongs := sampler.Split(songs, cfg.ValidationSplit, rng)
	if len(valSongs) == 0 {
		valSongs = trainSongs
	}
	logger.Infof("%d training songs, %d validation songs", len(trainSongs), len(valSongs))

	hp := cfg.Hparams
	opts := sampler.Options{BatchSize: hp.BatchSize, Timesteps: hp.Timesteps, NVocab: index.Size()}
	trainGen, err := sampler.New(st, trainSongs, opts, rng)
	if err != nil {
		return err
	}
	valSampler, err := sampler.New(st, valSongs, opts, rng)
	if err != nil {
		return err
	}
	valGen, err := sampler.Collect(valSampler, cfg.ValidationBatches)
	if err != nil {
		return errors.Wrap(err, "collecting validation batches")
	}

	net, err := network.Build(index.Size(), hp)
	if err != nil {
		return err
	}
	h, err := net.Fit(trainGen, valGen, network.FitOptions{
		Epochs:        hp.Epochs,
		LearningRate:  hp.LearningRate,
		Dropout:       hp.Dropout,
		CheckpointDir: cfg.CheckpointDir,
		Rng:           rng,
		Progress:      progressOutput(),
	})
	if err != nil {
		return err
	}

	if best, ok := h.Best(); ok {
		fmt.Printf("best val_loss %.4f at epoch %d: %v\n", best.ValLoss, best.Epoch, best.Checkpoint)
	}
	return nil
}
