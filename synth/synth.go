// Package synth samples a trained model one frame at a time and renders the
// result as MIDI.
package synth

import (
	"fmt"
	"math/big"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jsphweid/tunator/chord"
	"github.com/jsphweid/tunator/constants"
	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/pitch"
	"github.com/jsphweid/tunator/sample"
	"github.com/jsphweid/tunator/store"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrNoSeed = errors.New("no non-empty frame found to seed from")

const Threshold = 0.5

// Predictor maps one multi-hot frame to per-slot probabilities for the next.
type Predictor interface {
	Predict(frame []float32) ([]float32, error)
}

type PredictorFunc func(frame []float32) ([]float32, error)

func (f PredictorFunc) Predict(frame []float32) ([]float32, error) {
	return f(frame)
}

type Synthesizer struct {
	index *pitch.Index
	rng   *rand.Rand
}

func New(index *pitch.Index, rng *rand.Rand) *Synthesizer {
	return &Synthesizer{index: index, rng: rng}
}

// Seed picks a random stored frame that is not a rest.
func (s *Synthesizer) Seed(st *store.Store) ([]float32, error) {
	var seed []float32
	err := st.View(func(r *store.Reader) error {
		songs, err := r.ListSongs()
		if err != nil {
			return err
		}
		if len(songs) == 0 {
			return ErrNoSeed
		}

		lengths := make(map[string]int)
		for i := 0; i < constants.MaxSeedRetries; i++ {
			name := songs[s.rng.Intn(len(songs))]
			length, ok := lengths[name]
			if !ok {
				if length, err = r.SongLength(name); err != nil {
					return err
				}
				lengths[name] = length
			}
			if length == 0 {
				continue
			}

			at := s.rng.Intn(length)
			frames, err := r.ReadFrameRange(name, at, at+1)
			if err != nil {
				return err
			}
			if len(frames[0]) == 0 {
				continue
			}
			for _, n := range frames[0] {
				if int(n) >= s.index.Size() {
					return errors.Errorf("%v frame %d: slot %d outside vocabulary", name, at, n)
				}
			}
			seed = make([]float32, s.index.Size())
			chord.MultiHot(seed, frames[0])
			log.WithFields(log.Fields{
				"function": "synth.Seed",
			}).Debugf("seeded from %v frame %d after %d tries", name, at, i+1)
			return nil
		}
		return ErrNoSeed
	})
	return seed, err
}

// Select keeps every slot above the threshold, or the single most likely
// slot when none is.
func Select(probs []float32) []int {
	var res []int
	best := 0
	for i, p := range probs {
		if p > Threshold {
			res = append(res, i)
		}
		if p > probs[best] {
			best = i
		}
	}
	if len(res) == 0 && len(probs) > 0 {
		res = []int{best}
	}
	return res
}

// Generate feeds each prediction back as the next input and returns the
// pitch names chosen at every step.
func (s *Synthesizer) Generate(p Predictor, seed []float32, steps int) ([][]string, error) {
	size := s.index.Size()
	if len(seed) != size {
		return nil, errors.Errorf("seed has %d slots, want %d", len(seed), size)
	}

	cur := append([]float32(nil), seed...)
	res := make([][]string, 0, steps)
	for step := 0; step < steps; step++ {
		probs, err := p.Predict(cur)
		if err != nil {
			return nil, errors.Wrapf(err, "predicting step %d", step)
		}
		if len(probs) != size {
			return nil, errors.Errorf("prediction has %d slots, want %d", len(probs), size)
		}

		slots := Select(probs)
		names := make([]string, len(slots))
		for i, slot := range slots {
			if names[i], err = s.index.NameOf(slot); err != nil {
				return nil, err
			}
		}
		res = append(res, names)

		for i := range cur {
			cur[i] = 0
		}
		for _, slot := range slots {
			cur[slot] = 1
		}
	}
	return res, nil
}

// Render places one event per quarter note.
func Render(seq [][]string) []model.Event {
	res := make([]model.Event, len(seq))
	for i, names := range seq {
		ev := model.Event{Offset: big.NewRat(int64(i), 1), Pitches: names}
		switch len(names) {
		case 0:
			ev.Kind = model.KindRest
		case 1:
			ev.Kind = model.KindNote
		default:
			ev.Kind = model.KindChord
		}
		res[i] = ev
	}
	return res
}

func OutputName(steps int, now time.Time) string {
	return fmt.Sprintf("test_output-%d-%v.mid", steps, now.Format("20060102-150405"))
}

// Compose seeds from the store, generates steps frames and writes them to a
// new MIDI file in dir. It returns the file's path.
func (s *Synthesizer) Compose(p Predictor, st *store.Store, steps int, dir string) (string, error) {
	seed, err := s.Seed(st)
	if err != nil {
		return "", err
	}
	seq, err := s.Generate(p, seed, steps)
	if err != nil {
		return "", err
	}
	out, err := sample.Create(Render(seq), s.index)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating %v", dir)
	}
	path := filepath.Join(dir, OutputName(steps, time.Now()))
	if err := out.WriteFile(path); err != nil {
		return "", errors.Wrapf(err, "writing %v", path)
	}
	log.WithFields(log.Fields{
		"function": "synth.Compose",
	}).Infof("wrote %d steps to %v", steps, path)
	return path, nil
}
