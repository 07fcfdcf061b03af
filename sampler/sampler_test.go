package sampler

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

const vocab = 120

// slotAt is the single note stored at frame i of every test song.
func slotAt(i int) uint8 {
	return uint8(i % vocab)
}

func fixture(t *testing.T, lengths map[string]int) *store.Store {
	s := store.New(filepath.Join(t.TempDir(), "songs.sqlite"))
	for name, n := range lengths {
		song := &model.Song{Name: name, Spacing: 0.5}
		for i := 0; i < n; i++ {
			song.Frames = append(song.Frames, model.Frame{Tick: uint32(i), Notes: model.Notes{slotAt(i)}})
		}
		require.NoError(t, s.Write(song))
	}
	return s
}

func TestBuildIndex(t *testing.T) {
	assert := assert.New(t)
	s := fixture(t, map[string]int{"long": 130, "short": 64, "exact": 65})

	var windows []model.Window
	err := s.View(func(r *store.Reader) error {
		var err error
		windows, err = BuildIndex(r, []string{"long", "short", "exact", "ghost"}, 64)
		return err
	})
	require.NoError(t, err)

	assert.Equal([]model.Window{
		{Song: "long", Start: 0, Length: 65},
		{Song: "long", Start: 65, Length: 65},
		{Song: "exact", Start: 0, Length: 65},
	}, windows)
}

func TestBatchShapeAndShift(t *testing.T) {
	assert := assert.New(t)
	s := fixture(t, map[string]int{"a": 200, "b": 90})
	opts := Options{BatchSize: 2, Timesteps: 9, NVocab: vocab}
	smp, err := New(s, []string{"a", "b"}, opts, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.NoError(t, smp.SetUp())

	assert.Len(smp.Windows(), 29)
	assert.Equal(14, smp.NBatches())

	b, err := smp.Batch(3)
	require.NoError(t, err)
	assert.True(b.X.Shape().Eq(tensor.Shape{2, 9, vocab}))
	assert.True(b.Y.Shape().Eq(b.X.Shape()))

	for k, w := range smp.Windows()[6:8] {
		x, y := b.Sequence(k)
		for step := 0; step < opts.Timesteps; step++ {
			assert.Equal([]int{int(slotAt(w.Start + step))}, active(x[step]))
			assert.Equal([]int{int(slotAt(w.Start + step + 1))}, active(y[step]))
		}
	}
}

func TestBatchIndexWraps(t *testing.T) {
	s := fixture(t, map[string]int{"a": 100})
	smp, err := New(s, []string{"a"}, Options{BatchSize: 3, Timesteps: 4, NVocab: vocab}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	n := smp.NBatches()
	require.Equal(t, 6, n)

	first, err := smp.Batch(1)
	require.NoError(t, err)
	wrapped, err := smp.Batch(n + 1)
	require.NoError(t, err)
	assert.Equal(t, first.X.Data(), wrapped.X.Data())
	assert.Equal(t, first.Y.Data(), wrapped.Y.Data())
}

func TestOnEpochEndReshuffles(t *testing.T) {
	assert := assert.New(t)
	s := fixture(t, map[string]int{"a": 400})
	smp, err := New(s, []string{"a"}, Options{BatchSize: 4, Timesteps: 9, NVocab: vocab}, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	before := append([]model.Window(nil), smp.Windows()...)
	smp.OnEpochEnd()
	assert.Equal(1, smp.Epoch())
	assert.NotEqual(before, smp.Windows())
	assert.ElementsMatch(before, smp.Windows())
}

func TestNoBatches(t *testing.T) {
	s := fixture(t, map[string]int{"a": 10})
	smp, err := New(s, []string{"a"}, Options{BatchSize: 3, Timesteps: 4, NVocab: vocab}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.ErrorIs(t, smp.SetUp(), ErrNoBatches)
	_, err = smp.Batch(0)
	assert.ErrorIs(t, err, ErrNoBatches)

	_, err = Collect(smp, 3)
	assert.ErrorIs(t, err, ErrNoBatches)
}

func TestVocabularyOverflow(t *testing.T) {
	s := fixture(t, map[string]int{"a": 100})
	smp, err := New(s, []string{"a"}, Options{BatchSize: 1, Timesteps: 4, NVocab: 12}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	var failed bool
	for i := 0; i < smp.NBatches(); i++ {
		if _, err := smp.Batch(i); err != nil {
			failed = true
		}
	}
	assert.True(t, failed)
}

func TestCollect(t *testing.T) {
	assert := assert.New(t)
	s := fixture(t, map[string]int{"a": 100})
	smp, err := New(s, []string{"a"}, Options{BatchSize: 2, Timesteps: 4, NVocab: vocab}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	f, err := Collect(smp, 50)
	require.NoError(t, err)
	assert.Equal(smp.Len(), f.Len())

	var g Generator = f
	require.NoError(t, g.SetUp())
	b0, err := g.Generate(0)
	require.NoError(t, err)
	again, err := g.Generate(f.Len())
	require.NoError(t, err)
	assert.Same(b0, again)
}

func TestSplit(t *testing.T) {
	assert := assert.New(t)
	songs := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	train, val := Split(songs, 0.2, rand.New(rand.NewSource(1)))
	assert.Len(val, 2)
	assert.Len(train, 8)
	assert.ElementsMatch(songs, append(train, val...))
}

func active(v []float32) []int {
	var res []int
	for i, x := range v {
		if x > 0 {
			res = append(res, i)
		}
	}
	return res
}
