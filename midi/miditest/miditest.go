// Package miditest builds small standard MIDI files for tests.
package miditest

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const Resolution = 480

type Note struct {
	Key     uint8
	Start   uint32 // absolute ticks
	Dur     uint32
	Channel uint8
}

type timed struct {
	tick uint32
	off  bool
	msg  gomidi.Message
}

// Track delta-encodes notes given in absolute ticks.
func Track(notes ...Note) smf.Track {
	var evs []timed
	for _, n := range notes {
		evs = append(evs,
			timed{n.Start, false, gomidi.NoteOn(n.Channel, n.Key, 100)},
			timed{n.Start + n.Dur, true, gomidi.NoteOff(n.Channel, n.Key)},
		)
	}
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].tick != evs[j].tick {
			return evs[i].tick < evs[j].tick
		}
		return evs[i].off && !evs[j].off
	})

	var tr smf.Track
	var last uint32
	for _, ev := range evs {
		tr.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	tr.Close(0)
	return tr
}

// Conductor is a track with tempo only, as format 1 files usually start.
func Conductor() smf.Track {
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Close(0)
	return tr
}

// Melody plays keys one after another, each lasting step ticks.
func Melody(channel uint8, step uint32, keys ...uint8) []Note {
	notes := make([]Note, len(keys))
	for i, k := range keys {
		notes[i] = Note{Key: k, Start: uint32(i) * step, Dur: step, Channel: channel}
	}
	return notes
}

// Scale repeats the C major scale starting at C4 until n notes are produced.
func Scale(channel uint8, step uint32, n int) []Note {
	steps := []uint8{0, 2, 4, 5, 7, 9, 11, 12}
	keys := make([]uint8, n)
	for i := range keys {
		keys[i] = 60 + steps[i%len(steps)]
	}
	return Melody(channel, step, keys...)
}

// New builds a file and runs it through the encoder and decoder once.
func New(t testing.TB, tracks ...smf.Track) *smf.SMF {
	t.Helper()
	s, err := smf.ReadFrom(bytes.NewReader(Bytes(t, tracks...)))
	if err != nil {
		t.Fatalf("reading generated midi: %v", err)
	}
	return s
}

func Bytes(t testing.TB, tracks ...smf.Track) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)
	for _, tr := range tracks {
		if err := s.Add(tr); err != nil {
			t.Fatalf("adding track: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("writing midi: %v", err)
	}
	return buf.Bytes()
}

// Write stores the file as dir/name and returns its path.
func Write(t testing.TB, dir, name string, tracks ...smf.Track) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, Bytes(t, tracks...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
