package sample

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/jsphweid/tunator/midi"
	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/pitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
)

func at(q int64, kind model.EventKind, names ...string) model.Event {
	return model.Event{Offset: big.NewRat(q, 1), Kind: kind, Pitches: names}
}

func TestCreate(t *testing.T) {
	assert := assert.New(t)
	s, err := Create([]model.Event{
		at(0, model.KindChord, "C4", "E4"),
		at(1, model.KindRest),
		at(2, model.KindChord, "A4", "G#9"),
	}, pitch.Default())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = s.WriteTo(&buf)
	require.NoError(t, err)
	parsed, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	score, err := midi.NewScore(parsed)
	require.NoError(t, err)
	assert.EqualValues(480, score.Resolution)
	require.Len(t, score.Parts, 1)
	assert.Equal([]midi.Note{
		{Key: 60, Start: 0, End: 480},
		{Key: 64, Start: 0, End: 480},
		{Key: 69, Start: 960, End: 1440},
	}, score.Parts[0].Notes)
}

func TestCreateRejectsDisorder(t *testing.T) {
	_, err := Create([]model.Event{
		at(1, model.KindNote, "C4"),
		at(0, model.KindNote, "D4"),
	}, pitch.Default())
	assert.Error(t, err)

	_, err = Create([]model.Event{at(0, model.KindNote, "Q4")}, pitch.Default())
	var unknown *pitch.UnknownPitchError
	assert.ErrorAs(t, err, &unknown)
}
