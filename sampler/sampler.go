// Package sampler turns stored songs into shuffled, fixed-length training
// batches.
package sampler

import (
	"math/rand"

	"github.com/jsphweid/tunator/chord"
	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/store"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

var ErrNoBatches = errors.New("not enough windows for a single batch")

// Generator produces batches by index. Indexes past Len wrap around.
type Generator interface {
	SetUp() error
	Generate(i int) (*Batch, error)
	TearDown() error
	Len() int
	OnEpochEnd()
}

// Batch holds multi-hot input and target tensors shaped
// (batch size, timesteps, n_vocab). Y is X advanced by one frame.
type Batch struct {
	X, Y *tensor.Dense
}

func (b *Batch) Size() int {
	return b.X.Shape()[0]
}

// Sequence returns the input and target frames of one example.
func (b *Batch) Sequence(n int) (x, y [][]float32) {
	shape := b.X.Shape()
	t, v := shape[1], shape[2]
	xs, ys := b.X.Data().([]float32), b.Y.Data().([]float32)
	for i := 0; i < t; i++ {
		off := (n*t + i) * v
		x = append(x, xs[off:off+v])
		y = append(y, ys[off:off+v])
	}
	return x, y
}

type Options struct {
	BatchSize int
	Timesteps int
	NVocab    int
}

// BuildIndex cuts every song into back-to-back windows of timesteps+1 frames.
// Songs that are not stored are skipped.
func BuildIndex(r *store.Reader, songs []string, timesteps int) ([]model.Window, error) {
	logger := log.WithFields(log.Fields{
		"function": "sampler.BuildIndex",
	})

	size := timesteps + 1
	var windows []model.Window
	for _, name := range songs {
		length, err := r.SongLength(name)
		var notFound *store.SongNotFoundError
		if errors.As(err, &notFound) {
			logger.Warnf("skipping %v: not in store", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		for i := 0; i < length/size; i++ {
			windows = append(windows, model.Window{Song: name, Start: i * size, Length: size})
		}
	}
	logger.Debugf("%d windows across %d songs", len(windows), len(songs))
	return windows, nil
}

type Sampler struct {
	store   *store.Store
	opts    Options
	rng     *rand.Rand
	windows []model.Window
	epoch   int
}

func New(s *store.Store, songs []string, opts Options, rng *rand.Rand) (*Sampler, error) {
	if opts.BatchSize < 1 || opts.Timesteps < 1 || opts.NVocab < 1 {
		return nil, errors.Errorf("invalid sampler options %+v", opts)
	}

	var windows []model.Window
	err := s.View(func(r *store.Reader) error {
		var err error
		windows, err = BuildIndex(r, songs, opts.Timesteps)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &Sampler{store: s, opts: opts, rng: rng, windows: windows}
	res.shuffle()
	return res, nil
}

func (s *Sampler) shuffle() {
	s.rng.Shuffle(len(s.windows), func(i, j int) {
		s.windows[i], s.windows[j] = s.windows[j], s.windows[i]
	})
}

func (s *Sampler) Windows() []model.Window {
	return s.windows
}

func (s *Sampler) NBatches() int {
	return len(s.windows) / s.opts.BatchSize
}

func (s *Sampler) Len() int {
	return s.NBatches()
}

func (s *Sampler) Epoch() int {
	return s.epoch
}

func (s *Sampler) SetUp() error {
	if s.NBatches() == 0 {
		return ErrNoBatches
	}
	return nil
}

func (s *Sampler) TearDown() error {
	return nil
}

// OnEpochEnd draws a fresh permutation of the windows.
func (s *Sampler) OnEpochEnd() {
	s.epoch++
	s.shuffle()
}

func (s *Sampler) Generate(i int) (*Batch, error) {
	return s.Batch(i)
}

// Batch materializes batch i modulo NBatches.
func (s *Sampler) Batch(i int) (*Batch, error) {
	n := s.NBatches()
	if n == 0 {
		return nil, ErrNoBatches
	}
	i = ((i % n) + n) % n

	b, t, v := s.opts.BatchSize, s.opts.Timesteps, s.opts.NVocab
	xs := make([]float32, b*t*v)
	ys := make([]float32, b*t*v)
	err := s.store.View(func(r *store.Reader) error {
		for k, w := range s.windows[i*b : (i+1)*b] {
			frames, err := r.ReadFrameRange(w.Song, w.Start, w.End())
			if err != nil {
				return err
			}
			for step, notes := range frames {
				for _, note := range notes {
					if int(note) >= v {
						return errors.Errorf("%v frame %d: slot %d outside vocabulary of %d", w.Song, w.Start+step, note, v)
					}
				}
				if step < t {
					off := (k*t + step) * v
					chord.MultiHot(xs[off:off+v], notes)
				}
				if step > 0 {
					off := (k*t + step - 1) * v
					chord.MultiHot(ys[off:off+v], notes)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		X: tensor.New(tensor.WithShape(b, t, v), tensor.WithBacking(xs)),
		Y: tensor.New(tensor.WithShape(b, t, v), tensor.WithBacking(ys)),
	}
	want := tensor.Shape{b, t, v}
	if !batch.X.Shape().Eq(want) || !batch.Y.Shape().Eq(want) {
		panic(errors.Errorf("batch shapes %v and %v, want %v", batch.X.Shape(), batch.Y.Shape(), want))
	}
	return batch, nil
}

// Split shuffles songs and holds out frac of them for validation.
func Split(songs []string, frac float64, rng *rand.Rand) (train, validation []string) {
	shuffled := append([]string(nil), songs...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	n := int(float64(len(shuffled)) * frac)
	return shuffled[n:], shuffled[:n]
}
