package midi

import (
	"math"

	"github.com/jsphweid/tunator/pitch"
	"gonum.org/v1/gonum/stat"
)

// Krumhansl-Kessler probe tone profiles, tonic first.
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// pitch class of A, the reference key every song is moved to
const referenceTonic = 9

type Key struct {
	Tonic       int // pitch class, 0 = C
	Minor       bool
	Correlation float64
}

func (k Key) Name() string {
	name := pitch.NameFromMIDI(k.Tonic + 12)
	name = name[:len(name)-1]
	if k.Minor {
		return name + " minor"
	}
	return name + " major"
}

// TranspositionToA is the upward shift, in semitones, that moves the tonic
// onto A.
func (k Key) TranspositionToA() int {
	return ((referenceTonic-k.Tonic)%12 + 12) % 12
}

// Histogram weighs each pitch class by how long it sounds, in quarter notes.
func (s *Score) Histogram() []float64 {
	hist := make([]float64, 12)
	for _, p := range s.Parts {
		for _, n := range p.Notes {
			pc := ((n.Key % 12) + 12) % 12
			hist[pc] += float64(n.End-n.Start) / float64(s.Resolution)
		}
	}
	return hist
}

// DetectKey runs Krumhansl-Schmuckler key finding over the whole score.
// A score without pitch content is reported as A major with zero correlation.
func DetectKey(hist []float64) Key {
	best := Key{Tonic: referenceTonic, Correlation: math.Inf(-1)}
	rotated := make([]float64, 12)
	for _, minor := range []bool{false, true} {
		profile := majorProfile
		if minor {
			profile = minorProfile
		}
		for tonic := 0; tonic < 12; tonic++ {
			for pc := range rotated {
				rotated[pc] = profile[(pc-tonic+12)%12]
			}
			r := stat.Correlation(hist, rotated, nil)
			if math.IsNaN(r) {
				continue
			}
			if r > best.Correlation {
				best = Key{Tonic: tonic, Minor: minor, Correlation: r}
			}
		}
	}
	if math.IsInf(best.Correlation, -1) {
		best.Correlation = 0
	}
	return best
}
