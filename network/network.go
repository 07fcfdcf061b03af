// Package network is the recurrent next-frame model, built on loom.
package network

import (
	"math"
	"math/rand"

	"github.com/jsphweid/tunator/config"
	"github.com/jsphweid/tunator/constants"
	"github.com/openfluke/loom/nn"
	"github.com/pkg/errors"
)

// Network maps one multi-hot frame to independent per-slot probabilities for
// the frame that follows it. LSTM layers run over a sequence of length one.
type Network struct {
	net    *nn.Network
	nVocab int
}

// Build stacks hp.LSTMLayers LSTM layers, a tanh dense layer and a sigmoid
// output layer of nVocab units.
func Build(nVocab int, hp config.Hparams) (*Network, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	if nVocab < 1 {
		return nil, errors.Errorf("vocabulary size must be positive, got %d", nVocab)
	}

	layers := make([]nn.LayerConfig, 0, hp.LSTMLayers+2)
	in := nVocab
	for i := 0; i < hp.LSTMLayers; i++ {
		layers = append(layers, sized(nn.InitLSTMLayer(in, hp.LSTMUnits, 1, 1), in, hp.LSTMUnits))
		in = hp.LSTMUnits
	}
	layers = append(layers,
		sized(nn.InitDenseLayer(in, hp.DenseUnits, nn.ActivationTanh), in, hp.DenseUnits),
		sized(nn.InitDenseLayer(hp.DenseUnits, nVocab, nn.ActivationSigmoid), hp.DenseUnits, nVocab),
	)

	net := nn.NewNetwork(nVocab, 1, 1, len(layers))
	net.BatchSize = 1
	for i, l := range layers {
		net.SetLayer(0, 0, i, l)
	}
	net.InitializeWeights()
	return &Network{net: net, nVocab: nVocab}, nil
}

func sized(l nn.LayerConfig, in, out int) nn.LayerConfig {
	if l.InputHeight == 0 {
		l.InputHeight = in
	}
	if l.OutputHeight == 0 {
		l.OutputHeight = out
	}
	return l
}

func Load(path string) (*Network, error) {
	net, err := nn.LoadModel(path, constants.ModelID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading model %v", path)
	}
	// the saved LSTM layer only keeps its RNN input size
	first := net.GetLayer(0, 0, 0)
	inputs := first.InputHeight
	if inputs < 1 {
		inputs = first.RNNInputSize
	}
	if inputs < 1 {
		return nil, errors.Errorf("model %v has no input size", path)
	}
	net.BatchSize = 1
	return &Network{net: net, nVocab: inputs}, nil
}

func (n *Network) Save(path string) error {
	if err := n.net.SaveModel(path, constants.ModelID); err != nil {
		return errors.Wrapf(err, "saving model %v", path)
	}
	return nil
}

func (n *Network) NVocab() int {
	return n.nVocab
}

func (n *Network) Predict(frame []float32) ([]float32, error) {
	if len(frame) != n.nVocab {
		return nil, errors.Errorf("frame has %d slots, want %d", len(frame), n.nVocab)
	}
	out, _ := n.net.ForwardCPU(frame)
	if len(out) != n.nVocab {
		return nil, errors.Errorf("model produced %d outputs, want %d", len(out), n.nVocab)
	}
	return out, nil
}

func (n *Network) train(pairs []nn.TrainingBatch, lr float64) (float64, error) {
	result, err := n.net.Train(pairs, &nn.TrainingConfig{
		Epochs:       1,
		LearningRate: float32(lr),
		GradientClip: 1.0,
		LossType:     "mse",
	})
	if err != nil {
		return 0, errors.Wrap(err, "training step")
	}
	return float64(result.FinalLoss), nil
}

// dropout zeroes each input slot with probability p and rescales the rest.
func dropout(frame []float32, p float64, rng *rand.Rand) []float32 {
	res := make([]float32, len(frame))
	if p <= 0 {
		copy(res, frame)
		return res
	}
	scale := float32(1 / (1 - p))
	for i, x := range frame {
		if rng.Float64() >= p {
			res[i] = x * scale
		}
	}
	return res
}

const epsilon = 1e-7

// BinaryCrossEntropy averages the per-slot loss of probs against a multi-hot
// target.
func BinaryCrossEntropy(probs, target []float32) float64 {
	var sum float64
	for i, p := range probs {
		q := math.Min(math.Max(float64(p), epsilon), 1-epsilon)
		if target[i] > 0 {
			sum -= math.Log(q)
		} else {
			sum -= math.Log(1 - q)
		}
	}
	return sum / float64(len(probs))
}
