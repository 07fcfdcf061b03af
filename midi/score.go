package midi

import (
	"sort"

	"github.com/jsphweid/tunator/constants"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var errUnstructured = errors.New("midi file has no track structure")

// Note is a sounding pitch in absolute ticks. End is exclusive.
type Note struct {
	Key   int
	Start int64
	End   int64
}

// Part is everything one track plays on one channel.
type Part struct {
	Track   int
	Channel uint8
	Program uint8
	Notes   []Note
}

type Score struct {
	Resolution int64
	Parts      []Part
	tracks     int
}

type partKey struct {
	track   int
	channel uint8
}

// NewScore pairs note starts with their ends. Notes still held at the end
// of a track are released on the track's last tick.
func NewScore(s *smf.SMF) (*Score, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.Errorf("unsupported time format %v", s.TimeFormat)
	}
	score := &Score{Resolution: int64(mt.Resolution()), tracks: len(s.Tracks)}
	if score.Resolution == 0 {
		return nil, errors.New("midi file has zero resolution")
	}

	index := make(map[partKey]int)
	for trackNum, track := range s.Tracks {
		programs := make(map[uint8]uint8)
		held := make(map[partKey]map[uint8][]int64)
		var absTicks int64

		release := func(pk partKey, key uint8, at int64) {
			starts := held[pk][key]
			if len(starts) == 0 {
				return
			}
			start := starts[0]
			held[pk][key] = starts[1:]
			end := at
			if end <= start {
				end = start + 1
			}
			p := &score.Parts[index[pk]]
			p.Notes = append(p.Notes, Note{Key: int(key), Start: start, End: end})
		}

		for _, ev := range track {
			absTicks += int64(ev.Delta)
			msg := gomidi.Message(ev.Message)
			var ch, key, vel, prog uint8
			switch {
			case msg.GetProgramChange(&ch, &prog):
				programs[ch] = prog
			case msg.GetNoteStart(&ch, &key, &vel):
				if ch == constants.DrumChannel {
					continue
				}
				pk := partKey{trackNum, ch}
				if _, ok := index[pk]; !ok {
					index[pk] = len(score.Parts)
					score.Parts = append(score.Parts, Part{Track: trackNum, Channel: ch, Program: programs[ch]})
				}
				if held[pk] == nil {
					held[pk] = make(map[uint8][]int64)
				}
				held[pk][key] = append(held[pk][key], absTicks)
			case msg.GetNoteEnd(&ch, &key):
				if ch == constants.DrumChannel {
					continue
				}
				release(partKey{trackNum, ch}, key, absTicks)
			}
		}

		for pk, keys := range held {
			for key := range keys {
				for len(held[pk][key]) > 0 {
					release(pk, key, absTicks)
				}
			}
		}
	}

	for i := range score.Parts {
		sortNotes(score.Parts[i].Notes)
	}
	return score, nil
}

func sortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Start != notes[j].Start {
			return notes[i].Start < notes[j].Start
		}
		return notes[i].Key < notes[j].Key
	})
}

// Transpose shifts every pitch by semitones.
func (s *Score) Transpose(semitones int) {
	for i := range s.Parts {
		for j := range s.Parts[i].Notes {
			s.Parts[i].Notes[j].Key += semitones
		}
	}
}

// Partition returns the parts in file order. A single-track file is split by
// channel instead; with only one channel in it there is nothing to split.
func (s *Score) Partition() ([]Part, error) {
	if s.tracks < 2 && len(s.Parts) < 2 {
		return nil, errUnstructured
	}
	return s.Parts, nil
}

// Flatten merges every part into one.
func (s *Score) Flatten() []Note {
	var all []Note
	for _, p := range s.Parts {
		all = append(all, p.Notes...)
	}
	sortNotes(all)
	return all
}

// Lowest is the lowest key in the score, or false for an empty one.
func (s *Score) Lowest() (int, bool) {
	lowest, found := 0, false
	for _, p := range s.Parts {
		for _, n := range p.Notes {
			if !found || n.Key < lowest {
				lowest, found = n.Key, true
			}
		}
	}
	return lowest, found
}

func (s *Score) NoteCount() int {
	var n int
	for _, p := range s.Parts {
		n += len(p.Notes)
	}
	return n
}
