package cmd

import (
	"fmt"
	"strings"

	"github.com/jsphweid/tunator/pitch"
	"github.com/jsphweid/tunator/store"
	"github.com/jsphweid/tunator/util"
	"github.com/spf13/cobra"
)

var inspectLimit int

func init() {
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 32, "frames to print, 0 for all")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <song>",
	Short: "Prints a stored song",
	Long:  `Prints a stored song's metadata and its first frames as pitch names.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(args[0])
	},
}

func inspect(name string) error {
	index, err := pitchIndex()
	if err != nil {
		return err
	}
	return openStore().View(func(r *store.Reader) error {
		info, err := r.Info(name)
		if err != nil {
			return err
		}
		fmt.Printf("key: %v\n", info.Key)
		fmt.Printf("frames: %v\n", info.Length)
		fmt.Printf("spacing: %v\n", info.Spacing)

		end := info.Length
		if inspectLimit > 0 {
			end = util.Min(inspectLimit, end)
		}
		frames, err := r.ReadFrames(name, 0, end)
		if err != nil {
			return err
		}
		for i, f := range frames {
			names, err := pitchNames(index, f.Notes)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				names = []string{"rest"}
			}
			fmt.Printf("%5d  tick %-6d %v\n", i, f.Tick, strings.Join(names, " "))
		}
		return nil
	})
}

func pitchNames(index *pitch.Index, notes []uint8) ([]string, error) {
	names := make([]string, len(notes))
	for i, n := range notes {
		name, err := index.NameOf(int(n))
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}
