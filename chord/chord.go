package chord

import (
	"fmt"
	"strings"

	"github.com/jsphweid/tunator/model"
	"golang.org/x/exp/slices"
)

// FromSlots sorts and deduplicates a set of piano-roll slots.
func FromSlots(slots []int) (model.Notes, error) {
	notes := make(model.Notes, 0, len(slots))
	for _, s := range slots {
		if s < 0 || s > 255 {
			return nil, fmt.Errorf("slot %d does not fit in a byte", s)
		}
		notes = append(notes, uint8(s))
	}
	slices.Sort(notes)
	return slices.Compact(notes), nil
}

// CreateChordKey builds the canonical "3-7-10" key for a set of slots.
func CreateChordKey(notes model.Notes) string {
	sorted := slices.Clone(notes)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, note := range sorted {
		parts[i] = fmt.Sprintf("%v", note)
	}
	return strings.Join(parts, "-")
}

// Serialize stores one slot per byte. A rest serializes to an empty slice.
func Serialize(notes model.Notes) []byte {
	res := make([]byte, len(notes))
	copy(res, notes)
	return res
}

func Deserialize(b []byte) model.Notes {
	res := make(model.Notes, len(b))
	copy(res, b)
	return res
}

// MultiHot sets one slot per sounding note in dst, which must be n_vocab long.
func MultiHot(dst []float32, notes model.Notes) {
	for i := range dst {
		dst[i] = 0
	}
	for _, n := range notes {
		dst[n] = 1
	}
}
