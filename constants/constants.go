package constants

import "os"

func getenv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func GetMidiDir() string {
	return getenv("MIDI_PATH", "music/midi")
}

func GetStorePath() string {
	return getenv("STORE_PATH", "data/songs.sqlite")
}

func GetOutDir() string {
	return getenv("OUT_PATH", "out")
}

func GetCheckpointDir() string {
	return getenv("CHECKPOINT_PATH", "checkpoints")
}

// a part needs more than this many note/chord events to be selected
const MinPartEvents = 50

// percussion lives on MIDI channel 10
const DrumChannel = 9

const DefaultOctaves = 10

// ticks per quarter note for rendered files
const OutputResolution = 480

const OutputVelocity = 90

const MaxSeedRetries = 10000

const ModelID = "tunator"
