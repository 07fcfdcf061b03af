// Package quantize places ingested events on a uniform time grid.
package quantize

import (
	"math/big"
	"sort"

	"github.com/jsphweid/tunator/chord"
	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/pitch"
	"github.com/pkg/errors"
)

var ErrEmptySequence = errors.New("no events left to quantize")

type Policy int

const (
	// DropOffGrid discards events whose offset is not a multiple of half a
	// quarter note. Nothing is snapped.
	DropOffGrid Policy = iota
	// SnapQuarter keeps every event and rounds its offset to the nearest
	// quarter of a quarter note, half to even.
	SnapQuarter
)

func (p Policy) String() string {
	if p == SnapQuarter {
		return "snap-quarter"
	}
	return "drop-off-grid"
}

// Unit is the grid resolution in quarter notes. Frame ticks count units.
func (p Policy) Unit() *big.Rat {
	if p == SnapQuarter {
		return big.NewRat(1, 4)
	}
	return big.NewRat(1, 2)
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "drop-off-grid", "drop":
		return DropOffGrid, nil
	case "snap-quarter", "snap":
		return SnapQuarter, nil
	}
	return 0, errors.Errorf("unknown quantize policy %q", s)
}

type Options struct {
	Policy Policy
	// FillRests materializes an empty frame at every multiple of the spacing
	// that has no event. Off by default: gaps are then implied by the ticks.
	FillRests bool
}

func DefaultOptions() Options {
	return Options{Policy: DropOffGrid}
}

type Quantizer struct {
	index *pitch.Index
	opts  Options
}

func New(index *pitch.Index, opts Options) *Quantizer {
	return &Quantizer{index: index, opts: opts}
}

type bucket struct {
	offset *big.Rat
	slots  []int
}

// Quantize buckets events by offset and returns the frames in time order
// along with the grid spacing in quarter notes.
func (q *Quantizer) Quantize(events []model.Event) ([]model.Frame, float64, error) {
	buckets := make(map[string]*bucket)
	for _, ev := range events {
		switch ev.Kind {
		case model.KindNote, model.KindChord:
		default:
			return nil, 0, &model.UnsupportedEventError{Kind: ev.Kind, Offset: ev.Offset}
		}

		offset := new(big.Rat).Set(ev.Offset)
		switch q.opts.Policy {
		case DropOffGrid:
			if !multipleOf(offset, q.opts.Policy.Unit()) {
				continue
			}
		case SnapQuarter:
			offset = snap(offset, q.opts.Policy.Unit())
		}

		// dropped events never reach the pitch index
		slots, err := q.resolve(ev.Pitches)
		if err != nil {
			return nil, 0, err
		}

		k := offset.RatString()
		b, ok := buckets[k]
		if !ok {
			b = &bucket{offset: offset}
			buckets[k] = b
		}
		b.slots = append(b.slots, slots...)
	}

	if len(buckets) == 0 {
		return nil, 0, ErrEmptySequence
	}

	sorted := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].offset.Cmp(sorted[j].offset) < 0
	})

	spacing := minGap(sorted)
	if spacing == nil {
		spacing = q.opts.Policy.Unit()
	}
	if q.opts.FillRests {
		sorted = fillRests(sorted, spacing)
	}

	frames := make([]model.Frame, len(sorted))
	for i, b := range sorted {
		notes, err := chord.FromSlots(b.slots)
		if err != nil {
			return nil, 0, err
		}
		frames[i] = model.Frame{Tick: q.tick(b.offset), Notes: notes}
	}
	f, _ := spacing.Float64()
	return frames, f, nil
}

func (q *Quantizer) resolve(names []string) ([]int, error) {
	slots := make([]int, len(names))
	for i, name := range names {
		slot, err := q.index.Resolve(name)
		if err != nil {
			return nil, err
		}
		slots[i] = slot
	}
	return slots, nil
}

func (q *Quantizer) tick(offset *big.Rat) uint32 {
	units := new(big.Rat).Quo(offset, q.opts.Policy.Unit())
	return uint32(new(big.Int).Quo(units.Num(), units.Denom()).Uint64())
}

func multipleOf(x, unit *big.Rat) bool {
	return new(big.Rat).Quo(x, unit).IsInt()
}

// snap rounds x to the nearest multiple of unit, ties to the even multiple.
func snap(x, unit *big.Rat) *big.Rat {
	units := new(big.Rat).Quo(x, unit)
	q, r := new(big.Int).DivMod(units.Num(), units.Denom(), new(big.Int))
	twice := new(big.Int).Lsh(r, 1)
	switch twice.Cmp(units.Denom()) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	return new(big.Rat).Mul(new(big.Rat).SetInt(q), unit)
}

func minGap(sorted []*bucket) *big.Rat {
	var gap *big.Rat
	for i := 1; i < len(sorted); i++ {
		d := new(big.Rat).Sub(sorted[i].offset, sorted[i-1].offset)
		if gap == nil || d.Cmp(gap) < 0 {
			gap = d
		}
	}
	return gap
}

func fillRests(sorted []*bucket, spacing *big.Rat) []*bucket {
	last := sorted[len(sorted)-1].offset
	res := make([]*bucket, 0, len(sorted))
	i := 0
	for t := new(big.Rat); t.Cmp(last) <= 0; t = new(big.Rat).Add(t, spacing) {
		for i < len(sorted) && sorted[i].offset.Cmp(t) < 0 {
			res = append(res, sorted[i])
			i++
		}
		if i < len(sorted) && sorted[i].offset.Cmp(t) == 0 {
			continue
		}
		res = append(res, &bucket{offset: new(big.Rat).Set(t)})
	}
	return append(res, sorted[i:]...)
}
