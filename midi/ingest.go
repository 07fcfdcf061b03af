package midi

import (
	"math/big"
	"sort"

	"github.com/jsphweid/tunator/constants"
	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/pitch"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrNoUsableNotes = errors.New("no usable notes")

type Ingestion struct {
	Key           Key
	Transposition int
	// Part is nil when the score had to be flattened.
	Part   *Part
	Events []model.Event
}

func (in *Ingestion) Flattened() bool {
	return in.Part == nil
}

func Ingest(path string) (*Ingestion, error) {
	s, err := ReadMidiFile(path)
	if err != nil {
		return nil, err
	}
	in, err := IngestSMF(s)
	if err != nil {
		return nil, errors.Wrapf(err, "ingesting %v", path)
	}
	return in, nil
}

// IngestSMF transposes the score to A and extracts one line from it: the
// first part with enough onsets, or else every part chordified together.
func IngestSMF(s *smf.SMF) (*Ingestion, error) {
	logger := log.WithFields(log.Fields{
		"function": "midi.IngestSMF",
	})

	score, err := NewScore(s)
	if err != nil {
		return nil, err
	}

	key := DetectKey(score.Histogram())
	in := &Ingestion{Key: key, Transposition: key.TranspositionToA()}
	score.Transpose(in.Transposition)
	logger.Debugf("detected %v, transposing up %d semitones", key.Name(), in.Transposition)

	// Octave -1 is spelled with a '-' that reads back as a flat.
	if lowest, ok := score.Lowest(); ok && lowest < 12 {
		return nil, &pitch.UnknownPitchError{Name: pitch.NameFromMIDI(lowest)}
	}

	parts, err := score.Partition()
	if err != nil {
		logger.Debugf("falling back to flat score: %v", err)
	}
	for i := range parts {
		events := onsetEvents(parts[i].Notes, score.Resolution)
		if len(events) > constants.MinPartEvents {
			in.Part = &parts[i]
			in.Events = events
			logger.Debugf("selected track %d channel %d with %d events", parts[i].Track, parts[i].Channel, len(events))
			return in, nil
		}
	}

	in.Events = chordify(score.Flatten(), score.Resolution)
	if len(in.Events) == 0 {
		return nil, ErrNoUsableNotes
	}
	logger.Debugf("chordified %d notes into %d events", score.NoteCount(), len(in.Events))
	return in, nil
}

func newEvent(tick, resolution int64, keys []int) model.Event {
	sort.Ints(keys)
	names := make([]string, 0, len(keys))
	for i, k := range keys {
		if i > 0 && keys[i-1] == k {
			continue
		}
		names = append(names, pitch.NameFromMIDI(k))
	}
	kind := model.KindNote
	if len(names) > 1 {
		kind = model.KindChord
	}
	return model.Event{
		Offset:  big.NewRat(tick, resolution),
		Kind:    kind,
		Pitches: names,
	}
}

// onsetEvents groups notes that start on the same tick.
func onsetEvents(notes []Note, resolution int64) []model.Event {
	var events []model.Event
	for i := 0; i < len(notes); {
		j := i
		var keys []int
		for ; j < len(notes) && notes[j].Start == notes[i].Start; j++ {
			keys = append(keys, notes[j].Key)
		}
		events = append(events, newEvent(notes[i].Start, resolution, keys))
		i = j
	}
	return events
}

// chordify cuts the score at every note start and end and emits the pitches
// sounding in each slice.
func chordify(notes []Note, resolution int64) []model.Event {
	starts := make(map[int64][]int)
	ends := make(map[int64][]int)
	var boundaries []int64
	seen := make(map[int64]bool)
	mark := func(t int64) {
		if !seen[t] {
			seen[t] = true
			boundaries = append(boundaries, t)
		}
	}
	for _, n := range notes {
		starts[n.Start] = append(starts[n.Start], n.Key)
		ends[n.End] = append(ends[n.End], n.Key)
		mark(n.Start)
		mark(n.End)
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i] < boundaries[j] })

	var events []model.Event
	sounding := make(map[int]int)
	for _, t := range boundaries {
		for _, k := range ends[t] {
			if sounding[k]--; sounding[k] <= 0 {
				delete(sounding, k)
			}
		}
		for _, k := range starts[t] {
			sounding[k]++
		}
		if len(sounding) == 0 {
			continue
		}
		keys := make([]int, 0, len(sounding))
		for k := range sounding {
			keys = append(keys, k)
		}
		events = append(events, newEvent(t, resolution, keys))
	}
	return events
}
