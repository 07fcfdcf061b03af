package cmd

import (
	"fmt"

	"github.com/jsphweid/tunator/chord"
	"github.com/jsphweid/tunator/store"
	"github.com/jsphweid/tunator/util"
	"github.com/spf13/cobra"
)

func init() {
	reportCmd.Flags().IntVar(&cfg.Hparams.Timesteps, "timesteps", cfg.Hparams.Timesteps, "frames per window")
	reportCmd.Flags().IntVar(&cfg.Hparams.BatchSize, "batch-size", cfg.Hparams.BatchSize, "windows per batch")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarizes the song store",
	Long:  `Summarizes the song store and how many training windows it yields.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return report()
	},
}

func report() error {
	st := openStore()
	timesteps := cfg.Hparams.Timesteps
	return st.View(func(r *store.Reader) error {
		stats, err := r.Stats()
		if err != nil {
			return err
		}
		songs, err := r.ListSongs()
		if err != nil {
			return err
		}

		var short int
		windows := make([]int, 0, len(songs))
		chords := make(map[string]int)
		for _, name := range songs {
			length, err := r.SongLength(name)
			if err != nil {
				return err
			}
			if length < timesteps+1 {
				short++
			}
			windows = append(windows, length/(timesteps+1))

			frames, err := r.ReadFrameRange(name, 0, length)
			if err != nil {
				return err
			}
			for _, notes := range frames {
				chords[chord.CreateChordKey(notes)]++
			}
		}
		total := util.Sum(windows)

		fmt.Printf("store: %v\n", st.Path())
		fmt.Printf("songs: %v\n", stats.Songs)
		fmt.Printf("frames: %v\n", stats.Frames)
		fmt.Printf("rest frames: %v\n", stats.Rests)
		fmt.Printf("distinct note sets: %v\n", len(chords))
		fmt.Printf("windows at %d timesteps: %v\n", timesteps, total)
		fmt.Printf("songs too short for a window: %v\n", short)
		fmt.Printf("batches of %d: %v\n", cfg.Hparams.BatchSize, total/uint64(cfg.Hparams.BatchSize))
		return nil
	})
}
