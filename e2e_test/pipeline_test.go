package e2e_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/jsphweid/tunator/config"
	"github.com/jsphweid/tunator/corpus"
	"github.com/jsphweid/tunator/midi"
	"github.com/jsphweid/tunator/midi/miditest"
	"github.com/jsphweid/tunator/network"
	"github.com/jsphweid/tunator/pitch"
	"github.com/jsphweid/tunator/quantize"
	"github.com/jsphweid/tunator/sampler"
	"github.com/jsphweid/tunator/store"
	"github.com/jsphweid/tunator/synth"
	"github.com/jsphweid/tunator/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

const timesteps = 64

// ingestTwoMinutes stores one file of eighth notes lasting 240 quarter notes,
// two minutes at the default tempo.
func ingestTwoMinutes(t *testing.T) (*store.Store, *pitch.Index) {
	dir := t.TempDir()
	miditest.Write(t, dir, "two_minutes.mid", miditest.Conductor(), miditest.Track(miditest.Scale(0, 240, 480)...))
	paths, err := util.GatherAllMidiPaths(dir, 0)
	require.NoError(t, err)

	index := pitch.Default()
	st := store.New(filepath.Join(t.TempDir(), "songs.sqlite"))
	report, err := corpus.NewUpdater(st, quantize.New(index, quantize.DefaultOptions())).Update(paths)
	require.NoError(t, err)
	require.Equal(t, []string{"two_minutes"}, report.Written)
	return st, index
}

func TestIngestToSynthesis(t *testing.T) {
	assert := assert.New(t)
	st, index := ingestTwoMinutes(t)

	length, err := st.SongLength("two_minutes")
	require.NoError(t, err)
	assert.Equal(480, length)

	smp, err := sampler.New(st, []string{"two_minutes"}, sampler.Options{BatchSize: 2, Timesteps: timesteps, NVocab: index.Size()}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(smp.Windows(), length/(timesteps+1))
	require.NoError(t, smp.SetUp())

	b, err := smp.Batch(0)
	require.NoError(t, err)
	assert.True(b.X.Shape().Eq(tensor.Shape{2, timesteps, index.Size()}))

	// echo predicts that the current frame repeats, with low confidence.
	echo := synth.PredictorFunc(func(frame []float32) ([]float32, error) {
		res := make([]float32, len(frame))
		for i, x := range frame {
			res[i] = x * 0.4
		}
		return res, nil
	})
	s := synth.New(index, rand.New(rand.NewSource(2)))
	seed, err := s.Seed(st)
	require.NoError(t, err)
	seq, err := s.Generate(echo, seed, 50)
	require.NoError(t, err)
	events := synth.Render(seq)
	assert.Len(events, 50)
	for _, ev := range events {
		assert.Len(ev.Pitches, 1)
	}

	path, err := s.Compose(echo, st, 50, filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	parsed, err := midi.ReadMidiFile(path)
	require.NoError(t, err)
	score, err := midi.NewScore(parsed)
	require.NoError(t, err)
	assert.Equal(50, score.NoteCount())
}

func TestTrainAndCompose(t *testing.T) {
	assert := assert.New(t)
	st, index := ingestTwoMinutes(t)
	rng := rand.New(rand.NewSource(3))

	hp := config.DefaultHparams()
	hp.LSTMUnits, hp.DenseUnits, hp.LSTMLayers = 8, 8, 1
	hp.BatchSize, hp.Timesteps, hp.Epochs = 2, timesteps, 1

	opts := sampler.Options{BatchSize: hp.BatchSize, Timesteps: hp.Timesteps, NVocab: index.Size()}
	train, err := sampler.New(st, []string{"two_minutes"}, opts, rng)
	require.NoError(t, err)
	val, err := sampler.Collect(train, 1)
	require.NoError(t, err)

	net, err := network.Build(index.Size(), hp)
	require.NoError(t, err)
	h, err := net.Fit(train, val, network.FitOptions{
		Epochs:        hp.Epochs,
		LearningRate:  hp.LearningRate,
		CheckpointDir: t.TempDir(),
		Rng:           rng,
	})
	require.NoError(t, err)
	best, ok := h.Best()
	require.True(t, ok)

	loaded, err := network.Load(best.Checkpoint)
	require.NoError(t, err)
	path, err := synth.New(index, rng).Compose(loaded, st, 20, t.TempDir())
	require.NoError(t, err)
	assert.FileExists(path)
}
