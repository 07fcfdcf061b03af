package model

// Frame is one bucket on the quantized grid. Tick counts quantization units
// from the start of the song: half a quarter note when off-grid events are
// dropped, a quarter of one when they are snapped. Song.Spacing is the
// smallest gap between frames and is recorded separately, so a tick is not a
// count of spacings. Tick*unit is the frame's offset in quarter notes.
type Frame struct {
	Tick  uint32
	Notes Notes
}

type Song struct {
	Name    string
	Frames  []Frame
	Spacing float64
}

// Window is a contiguous slice of a stored song used as one training example.
type Window struct {
	Song   string
	Start  int
	Length int
}

func (w Window) End() int {
	return w.Start + w.Length
}

type SongInfo struct {
	Name    string  `json:"name"`
	Key     string  `json:"key"`
	Length  int     `json:"length"`
	Spacing float64 `json:"spacing"`
}
