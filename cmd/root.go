package cmd

import (
	"io"
	"math/rand"
	"os"

	"github.com/jsphweid/tunator/config"
	"github.com/jsphweid/tunator/pitch"
	"github.com/jsphweid/tunator/quantize"
	"github.com/jsphweid/tunator/store"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg = config.Default()

var (
	verbose  bool
	policy   string
	hideBars bool
)

var rootCmd = &cobra.Command{
	Use:   "tunator",
	Short: "Learns to write MIDI from a folder of MIDI",
	Long: `tunator ingests a directory of MIDI files into a piano-roll store,
trains a recurrent next-frame model on it and composes new MIDI files.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
		p, err := quantize.ParsePolicy(policy)
		if err != nil {
			return err
		}
		cfg.Quantize.Policy = p
		return cfg.Validate()
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	f.BoolVar(&hideBars, "no-progress", false, "hide progress bars")
	f.StringVar(&cfg.MidiDir, "midi", cfg.MidiDir, "directory of MIDI files (MIDI_PATH)")
	f.StringVar(&cfg.StorePath, "store", cfg.StorePath, "song store file (STORE_PATH)")
	f.StringVar(&cfg.OutDir, "out", cfg.OutDir, "directory for composed MIDI (OUT_PATH)")
	f.StringVar(&cfg.CheckpointDir, "checkpoints", cfg.CheckpointDir, "directory for model checkpoints (CHECKPOINT_PATH)")
	f.IntVar(&cfg.Octaves, "octaves", cfg.Octaves, "octaves in the piano roll")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.StringVar(&policy, "quantize", cfg.Quantize.Policy.String(), "quantize policy: drop-off-grid or snap-quarter")
	f.BoolVar(&cfg.Quantize.FillRests, "fill-rests", cfg.Quantize.FillRests, "store explicit rest frames in gaps")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func openStore() *store.Store {
	return store.New(cfg.StorePath)
}

func pitchIndex() (*pitch.Index, error) {
	return pitch.New(cfg.Octaves)
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(cfg.Seed))
}

func progressOutput() io.Writer {
	if hideBars {
		return nil
	}
	return os.Stderr
}
