package cmd

import (
	"fmt"

	"github.com/jsphweid/tunator/network"
	"github.com/jsphweid/tunator/pitch"
	"github.com/jsphweid/tunator/synth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	steps     int
	modelPath string
)

func init() {
	composeCmd.Flags().IntVar(&steps, "steps", 200, "frames to generate")
	composeCmd.Flags().StringVar(&modelPath, "model", "", "checkpoint to load")
	composeCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(composeCmd)
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Writes a new MIDI file from a trained model",
	Long: `Seeds from a random stored frame, samples the model one frame at a time
and writes the result to the output directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return compose()
	},
}

func compose() error {
	if steps < 1 {
		return errors.Errorf("steps must be positive, got %d", steps)
	}
	index, err := pitchIndex()
	if err != nil {
		return err
	}
	net, err := network.Load(modelPath)
	if err != nil {
		return err
	}
	if err := checkVocab(net.NVocab(), index); err != nil {
		return err
	}

	path, err := synth.New(index, newRand()).Compose(net, openStore(), steps, cfg.OutDir)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func checkVocab(nVocab int, index *pitch.Index) error {
	if nVocab != index.Size() {
		return errors.Errorf("model expects %d slots but %d octaves give %d", nVocab, index.Octaves(), index.Size())
	}
	return nil
}
