package network

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jsphweid/tunator/sampler"
	"github.com/openfluke/loom/nn"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type FitOptions struct {
	Epochs       int
	LearningRate float64
	Dropout      float64
	// CheckpointDir gets one run directory per Fit. Empty disables saving.
	CheckpointDir string
	Rng           *rand.Rand
	Progress      io.Writer
}

type EpochResult struct {
	Epoch      int
	Loss       float64
	ValLoss    float64
	Checkpoint string
}

type History struct {
	RunID  string
	RunDir string
	Epochs []EpochResult
}

// Best returns the epoch with the lowest validation loss.
func (h *History) Best() (EpochResult, bool) {
	var best EpochResult
	found := false
	for _, e := range h.Epochs {
		if !found || e.ValLoss < best.ValLoss {
			best, found = e, true
		}
	}
	return best, found
}

func CheckpointName(epoch int, loss float64) string {
	return fmt.Sprintf("weights-improvement-epoch_%02d-loss_%.4f.json", epoch, loss)
}

// Fit trains on every (frame, next frame) pair of train's batches. After each
// epoch it scores val, saves a checkpoint when the score improved and asks
// train to reshuffle.
func (n *Network) Fit(train, val sampler.Generator, opts FitOptions) (*History, error) {
	logger := log.WithFields(log.Fields{
		"function": "network.Fit",
	})
	if opts.Rng == nil {
		return nil, errors.New("fit needs a random source")
	}

	if err := train.SetUp(); err != nil {
		return nil, errors.Wrap(err, "setting up training data")
	}
	defer train.TearDown()
	if err := val.SetUp(); err != nil {
		return nil, errors.Wrap(err, "setting up validation data")
	}
	defer val.TearDown()

	id := uuid.New().String()
	h := &History{RunID: id}
	if opts.CheckpointDir != "" {
		h.RunDir = filepath.Join(opts.CheckpointDir, id)
		if err := os.MkdirAll(h.RunDir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating %v", h.RunDir)
		}
	}

	best := math.Inf(1)
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		loss, err := n.trainEpoch(train, epoch, opts)
		if err != nil {
			return nil, err
		}
		valLoss, err := n.Evaluate(val)
		if err != nil {
			return nil, err
		}

		res := EpochResult{Epoch: epoch, Loss: loss, ValLoss: valLoss}
		if valLoss < best {
			best = valLoss
			if h.RunDir != "" {
				res.Checkpoint = filepath.Join(h.RunDir, CheckpointName(epoch, valLoss))
				if err := n.Save(res.Checkpoint); err != nil {
					return nil, err
				}
			}
		}
		h.Epochs = append(h.Epochs, res)
		logger.Infof("epoch %d: loss %.4f, val_loss %.4f", epoch, loss, valLoss)

		train.OnEpochEnd()
		val.OnEpochEnd()
	}
	return h, nil
}

func (n *Network) trainEpoch(train sampler.Generator, epoch int, opts FitOptions) (float64, error) {
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(opts.Progress))
	bar := p.AddBar(int64(train.Len()),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("Epoch %d: ", epoch)),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	defer p.Wait()

	var total float64
	for i := 0; i < train.Len(); i++ {
		b, err := train.Generate(i)
		if err != nil {
			bar.Abort(false)
			return 0, errors.Wrapf(err, "batch %d", i)
		}

		var pairs []nn.TrainingBatch
		for k := 0; k < b.Size(); k++ {
			xs, ys := b.Sequence(k)
			for t := range xs {
				pairs = append(pairs, nn.TrainingBatch{
					Input:  dropout(xs[t], opts.Dropout, opts.Rng),
					Target: append([]float32(nil), ys[t]...),
				})
			}
		}
		loss, err := n.train(pairs, opts.LearningRate)
		if err != nil {
			bar.Abort(false)
			return 0, err
		}
		total += loss
		bar.Increment()
	}
	if train.Len() == 0 {
		return 0, nil
	}
	return total / float64(train.Len()), nil
}

// Evaluate averages the binary cross-entropy of every prediction in g.
func (n *Network) Evaluate(g sampler.Generator) (float64, error) {
	var sum float64
	var count int
	for i := 0; i < g.Len(); i++ {
		b, err := g.Generate(i)
		if err != nil {
			return 0, err
		}
		for k := 0; k < b.Size(); k++ {
			xs, ys := b.Sequence(k)
			for t := range xs {
				probs, err := n.Predict(xs[t])
				if err != nil {
					return 0, err
				}
				sum += BinaryCrossEntropy(probs, ys[t])
				count++
			}
		}
	}
	if count == 0 {
		return 0, sampler.ErrNoBatches
	}
	return sum / float64(count), nil
}
