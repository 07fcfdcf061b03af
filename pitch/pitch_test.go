package pitch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	assert := assert.New(t)
	x := Default()
	assert.Equal(120, x.Size())

	names := x.Names()
	assert.Equal([]string{"A0", "A#0", "B0", "C0", "C#0"}, names[:5])
	assert.Equal("G#9", names[119])

	slot, err := x.Resolve("C4")
	require.NoError(t, err)
	assert.Equal(51, slot)
}

func TestRoundTripEverySlot(t *testing.T) {
	x := Default()
	for slot := 0; slot < x.Size(); slot++ {
		name, err := x.NameOf(slot)
		require.NoError(t, err)
		back, err := x.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, slot, back, name)
	}
}

func TestEnharmonicSpellings(t *testing.T) {
	x := Default()
	cases := []struct {
		a, b string
	}{
		{"A#4", "B-4"},
		{"A#4", "Bb4"},
		{"C#3", "D-3"},
		{"D#5", "E-5"},
		{"F#2", "G-2"},
		{"G#1", "A-1"},
		{"B3", "C-4"},
		{"C4", "B#3"},
		{"D4", "C##4"},
		{"E4", "F-4"},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%v=%v", c.a, c.b), func(t *testing.T) {
			a, err := x.Resolve(c.a)
			require.NoError(t, err)
			b, err := x.Resolve(c.b)
			require.NoError(t, err)
			assert.Equal(t, a, b)

			// canonical form resolves to the same slot again
			name, err := x.NameOf(b)
			require.NoError(t, err)
			again, err := x.Resolve(name)
			require.NoError(t, err)
			assert.Equal(t, b, again)
		})
	}
}

func TestUnknownPitch(t *testing.T) {
	x := Default()
	for _, name := range []string{"", "H4", "C", "C10", "C-0", "Cx4", "C4.5", "C100", "C4611686018427387908"} {
		t.Run(name, func(t *testing.T) {
			_, err := x.Resolve(name)
			var unknown *UnknownPitchError
			assert.ErrorAs(t, err, &unknown)
		})
	}
}

func TestMIDIBridge(t *testing.T) {
	assert := assert.New(t)
	x := Default()
	assert.Equal("C4", NameFromMIDI(60))
	assert.Equal("A4", NameFromMIDI(69))
	assert.Equal("C-1", NameFromMIDI(0))

	for key := 12; key <= 127; key++ {
		slot, err := x.SlotFromMIDI(key)
		require.NoError(t, err)
		back, err := x.MIDIOf(slot)
		require.NoError(t, err)
		assert.Equal(uint8(key), back)
	}

	_, err := x.SlotFromMIDI(11)
	assert.Error(err)

	g9, _ := x.Resolve("G9")
	_, err = x.MIDIOf(g9 + 1)
	assert.Error(err)
}

func TestNewRejectsBadOctaves(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
	_, err = New(MaxOctaves + 1)
	assert.Error(t, err)
}
