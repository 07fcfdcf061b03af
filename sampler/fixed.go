package sampler

// Fixed replays batches materialized up front. Validation data uses it so
// every epoch is scored on the same examples.
type Fixed struct {
	batches []*Batch
}

// Collect draws up to n batches from g.
func Collect(g Generator, n int) (*Fixed, error) {
	if err := g.SetUp(); err != nil {
		return nil, err
	}
	defer g.TearDown()

	if n > g.Len() {
		n = g.Len()
	}
	f := &Fixed{}
	for i := 0; i < n; i++ {
		b, err := g.Generate(i)
		if err != nil {
			return nil, err
		}
		f.batches = append(f.batches, b)
	}
	return f, nil
}

func (f *Fixed) SetUp() error {
	if len(f.batches) == 0 {
		return ErrNoBatches
	}
	return nil
}

func (f *Fixed) Generate(i int) (*Batch, error) {
	if len(f.batches) == 0 {
		return nil, ErrNoBatches
	}
	return f.batches[i%len(f.batches)], nil
}

func (f *Fixed) TearDown() error { return nil }

func (f *Fixed) Len() int { return len(f.batches) }

func (f *Fixed) OnEpochEnd() {}
