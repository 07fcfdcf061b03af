package model

import (
	"fmt"
	"math/big"
)

// Notes holds the piano-roll slots sounding in one frame, sorted ascending.
type Notes = []uint8

type EventKind uint8

const (
	KindNote EventKind = iota
	KindChord
	KindRest
)

func (k EventKind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindChord:
		return "chord"
	case KindRest:
		return "rest"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is one onset extracted from a score. Offset is measured in quarter
// notes from the start of the song.
type Event struct {
	Offset  *big.Rat
	Kind    EventKind
	Pitches []string
}

type UnsupportedEventError struct {
	Kind   EventKind
	Offset *big.Rat
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported %v event at offset %v", e.Kind, e.Offset.RatString())
}
