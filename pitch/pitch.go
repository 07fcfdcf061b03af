// Package pitch maps pitch spellings onto piano-roll slots.
//
// Each octave contributes the twelve sharp spellings in alphabetical order
// (A A# B C C# D D# E F F# G G#), so slot = octave*12 + position. The layout
// must not change between runs: trained weights depend on it.
package pitch

import (
	"fmt"
	"strconv"
	"strings"
)

var sharpScale = []string{"A", "A#", "B", "C", "C#", "D", "D#", "E", "F", "F#", "G", "G#"}

// pitch classes starting at C, as MIDI counts them
var chromatic = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterClass = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

const MaxOctaves = 21 // keeps slots inside a uint8

type UnknownPitchError struct {
	Name string
}

func (e *UnknownPitchError) Error() string {
	return fmt.Sprintf("unknown pitch %q", e.Name)
}

type Index struct {
	octaves int
	names   []string
	slots   map[string]int
}

func New(octaves int) (*Index, error) {
	if octaves < 1 || octaves > MaxOctaves {
		return nil, fmt.Errorf("octaves must be in [1, %d], got %d", MaxOctaves, octaves)
	}
	x := &Index{
		octaves: octaves,
		names:   make([]string, 0, octaves*len(sharpScale)),
		slots:   make(map[string]int),
	}
	for i := 0; i < octaves; i++ {
		for _, n := range sharpScale {
			name := n + strconv.Itoa(i)
			x.slots[name] = len(x.names)
			x.names = append(x.names, name)
		}
	}
	return x, nil
}

func Default() *Index {
	x, _ := New(10)
	return x
}

// Size is n_vocab.
func (x *Index) Size() int {
	return len(x.names)
}

func (x *Index) Octaves() int {
	return x.octaves
}

func (x *Index) Names() []string {
	return append([]string(nil), x.names...)
}

func (x *Index) NameOf(slot int) (string, error) {
	if slot < 0 || slot >= len(x.names) {
		return "", fmt.Errorf("slot %d outside [0, %d)", slot, len(x.names))
	}
	return x.names[slot], nil
}

// Resolve accepts sharp ('#') and flat ('-' or 'b') spellings, doubled or
// not. Spellings that cross an octave boundary resolve by sound: Cb4 is B3.
func (x *Index) Resolve(name string) (int, error) {
	if slot, ok := x.slots[name]; ok {
		return slot, nil
	}
	key, ok := parseMIDI(name)
	if !ok {
		return 0, &UnknownPitchError{Name: name}
	}
	slot, err := x.SlotFromMIDI(key)
	if err != nil {
		return 0, &UnknownPitchError{Name: name}
	}
	return slot, nil
}

// SlotFromMIDI maps a MIDI note number (60 = C4) onto its slot.
func (x *Index) SlotFromMIDI(key int) (int, error) {
	octave := floorDiv(key, 12) - 1
	if octave < 0 || octave >= x.octaves {
		return 0, &UnknownPitchError{Name: NameFromMIDI(key)}
	}
	pc := key - (octave+1)*12
	return octave*12 + (pc+3)%12, nil
}

// MIDIOf is the inverse of SlotFromMIDI. The top slots of the tenth octave
// lie above MIDI 127 and have no note number.
func (x *Index) MIDIOf(slot int) (uint8, error) {
	if slot < 0 || slot >= len(x.names) {
		return 0, fmt.Errorf("slot %d outside [0, %d)", slot, len(x.names))
	}
	octave, pos := slot/12, slot%12
	key := (octave+1)*12 + (pos+9)%12
	if key > 127 {
		return 0, fmt.Errorf("slot %d (%v) is above the MIDI range", slot, x.names[slot])
	}
	return uint8(key), nil
}

// NameFromMIDI spells a MIDI note number with sharps.
func NameFromMIDI(key int) string {
	octave := floorDiv(key, 12) - 1
	pc := key - (octave+1)*12
	return chromatic[pc] + strconv.Itoa(octave)
}

func parseMIDI(name string) (int, bool) {
	if len(name) < 2 {
		return 0, false
	}
	pc, ok := letterClass[strings.ToUpper(name[:1])[0]]
	if !ok {
		return 0, false
	}
	i := 1
accidentals:
	for ; i < len(name); i++ {
		switch name[i] {
		case '#':
			pc++
		case '-', 'b':
			pc--
		default:
			break accidentals
		}
	}
	digits := name[i:]
	if digits == "" || len(digits) > 2 {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	octave, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return (octave+1)*12 + pc, true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
