package cmd

import (
	"fmt"
	"strconv"

	"github.com/jsphweid/tunator/corpus"
	"github.com/jsphweid/tunator/quantize"
	"github.com/jsphweid/tunator/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [max]",
	Short: "Adds new MIDI files to the song store",
	Long: `Walks the MIDI directory and stores every song that is not stored yet.
An optional max limits how many files are considered.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var maxNum int
		if len(args) == 1 {
			arg1, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("max must be a number: %w", err)
			}
			maxNum = arg1
		}
		return ingest(maxNum)
	},
}

func ingest(maxNum int) error {
	index, err := pitchIndex()
	if err != nil {
		return err
	}
	paths, err := util.GatherAllMidiPaths(cfg.MidiDir, maxNum)
	if err != nil {
		return err
	}

	u := corpus.NewUpdater(openStore(), quantize.New(index, cfg.Quantize))
	u.Progress = progressOutput()
	report, err := u.Update(paths)
	if err != nil {
		return err
	}
	fmt.Printf("%d already stored, %d written, %d skipped\n", len(report.Stored), len(report.Written), len(report.Skipped))
	return nil
}
