package network

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsphweid/tunator/config"
	"github.com/jsphweid/tunator/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

const vocab = 12

func tiny() config.Hparams {
	hp := config.DefaultHparams()
	hp.LSTMUnits = 8
	hp.DenseUnits = 8
	hp.LSTMLayers = 1
	hp.Epochs = 2
	return hp
}

func oneHot(slot int) []float32 {
	v := make([]float32, vocab)
	v[slot] = 1
	return v
}

// cycle is a generator whose single batch walks up the vocabulary.
type cycle struct {
	batch      *sampler.Batch
	reshuffles int
}

func newCycle(timesteps int) *cycle {
	xs := make([]float32, timesteps*vocab)
	ys := make([]float32, timesteps*vocab)
	for t := 0; t < timesteps; t++ {
		copy(xs[t*vocab:], oneHot(t%vocab))
		copy(ys[t*vocab:], oneHot((t+1)%vocab))
	}
	return &cycle{batch: &sampler.Batch{
		X: tensor.New(tensor.WithShape(1, timesteps, vocab), tensor.WithBacking(xs)),
		Y: tensor.New(tensor.WithShape(1, timesteps, vocab), tensor.WithBacking(ys)),
	}}
}

func (c *cycle) SetUp() error                         { return nil }
func (c *cycle) Generate(int) (*sampler.Batch, error) { return c.batch, nil }
func (c *cycle) TearDown() error                      { return nil }
func (c *cycle) Len() int                             { return 1 }
func (c *cycle) OnEpochEnd()                          { c.reshuffles++ }

func TestBuildAndPredict(t *testing.T) {
	n, err := Build(vocab, tiny())
	require.NoError(t, err)
	assert.Equal(t, vocab, n.NVocab())

	out, err := n.Predict(oneHot(3))
	require.NoError(t, err)
	require.Len(t, out, vocab)
	for _, p := range out {
		assert.GreaterOrEqual(t, p, float32(0))
		assert.LessOrEqual(t, p, float32(1))
	}

	_, err = n.Predict(make([]float32, vocab+1))
	assert.Error(t, err)
}

func TestBuildRejectsBadHparams(t *testing.T) {
	hp := tiny()
	hp.Dropout = 1
	_, err := Build(vocab, hp)
	assert.Error(t, err)

	_, err = Build(0, tiny())
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	n, err := Build(vocab, tiny())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, n.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, vocab, loaded.NVocab())

	want, err := n.Predict(oneHot(5))
	require.NoError(t, err)
	got, err := loaded.Predict(oneHot(5))
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadTakesVocabFromLSTMInput(t *testing.T) {
	for _, n := range []int{3, 20} {
		built, err := Build(n, tiny())
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "model.json")
		require.NoError(t, built.Save(path))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, n, loaded.NVocab())

		_, err = loaded.Predict(make([]float32, n))
		assert.NoError(t, err)
	}
}

func TestFitWritesBestCheckpoints(t *testing.T) {
	assert := assert.New(t)
	n, err := Build(vocab, tiny())
	require.NoError(t, err)

	train, val := newCycle(6), newCycle(6)
	h, err := n.Fit(train, val, FitOptions{
		Epochs:        2,
		LearningRate:  0.01,
		Dropout:       0.1,
		CheckpointDir: t.TempDir(),
		Rng:           rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)

	require.Len(t, h.Epochs, 2)
	assert.Equal(2, train.reshuffles)
	assert.NotEmpty(h.RunID)

	best, ok := h.Best()
	require.True(t, ok)
	require.NotEmpty(t, best.Checkpoint)
	assert.FileExists(best.Checkpoint)

	entries, err := os.ReadDir(h.RunDir)
	require.NoError(t, err)
	saved := 0
	for _, e := range h.Epochs {
		if e.Checkpoint != "" {
			saved++
		}
		assert.False(math.IsNaN(e.ValLoss))
	}
	assert.Len(entries, saved)
}

func TestFitNeedsRandomSource(t *testing.T) {
	n, err := Build(vocab, tiny())
	require.NoError(t, err)
	_, err = n.Fit(newCycle(2), newCycle(2), FitOptions{Epochs: 1})
	assert.Error(t, err)
}

func TestBinaryCrossEntropy(t *testing.T) {
	assert := assert.New(t)
	assert.InDelta(0, BinaryCrossEntropy([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(math.Log(2), BinaryCrossEntropy([]float32{0.5, 0.5}, []float32{1, 0}), 1e-6)
	assert.Greater(BinaryCrossEntropy([]float32{0, 1}, []float32{1, 0}), 10.0)
}

func TestDropout(t *testing.T) {
	assert := assert.New(t)
	frame := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	assert.Equal(frame, dropout(frame, 0, nil))

	out := dropout(frame, 0.5, rand.New(rand.NewSource(2)))
	for _, x := range out {
		assert.Contains([]float32{0, 2}, x)
	}
	assert.Equal(float32(1), frame[0])
}

func TestCheckpointName(t *testing.T) {
	assert.Equal(t, "weights-improvement-epoch_03-loss_0.1235.json", CheckpointName(3, 0.12346))
}
