package gru

import (
	"fmt"
	"math"

	"github.com/samcharles93/gruwiki/internal/tensor"
)

// Config describes the shape of a recurrent language model.
type Config struct {
	EmbeddingDim int
	HiddenSizes  []int
	VocabSize    int
	// Activation is the candidate-state nonlinearity. Zero value means ReLU.
	Activation Activation
	Seed       uint64
}

// Model owns every learnable parameter: the embedding matrix We, the GRU
// stack and the output projection. It is mutated in place by the trainer.
type Model struct {
	cfg     Config
	We      *Param
	Encoder *Encoder
	Head    *Head
}

// New allocates and initialises a model. Shapes are validated here so a
// constructed model always composes.
func New(cfg Config) (*Model, error) {
	if cfg.EmbeddingDim <= 0 || cfg.VocabSize <= 0 {
		return nil, fmt.Errorf("%w: vocab=%d embedding=%d", ErrShape, cfg.VocabSize, cfg.EmbeddingDim)
	}
	if cfg.Activation.F == nil {
		cfg.Activation = ReLU
	}
	enc, err := NewEncoder(cfg.EmbeddingDim, cfg.HiddenSizes, cfg.Activation, cfg.Seed)
	if err != nil {
		return nil, err
	}
	head, err := NewHead(enc.OutputDim(), cfg.VocabSize, cfg.Seed+7)
	if err != nil {
		return nil, err
	}
	return &Model{
		cfg:     cfg,
		We:      newParam("We", tensor.InitWeight(cfg.VocabSize, cfg.EmbeddingDim, cfg.Seed+3)),
		Encoder: enc,
		Head:    head,
	}, nil
}

func (m *Model) Config() Config { return m.cfg }

func (m *Model) VocabSize() int { return m.cfg.VocabSize }

// Params returns the output projection followed by the recurrent layers.
// The embedding matrix is excluded; it is updated separately because it may
// be renormalised.
func (m *Model) Params() []*Param {
	return append(m.Head.Params(), m.Encoder.Params()...)
}

// Embeddings returns a copy of the embedding matrix.
func (m *Model) Embeddings() tensor.Mat {
	return m.We.Value.Clone()
}

func (m *Model) embed(tokens []int) ([][]float64, error) {
	xs := make([][]float64, len(tokens))
	for t, tok := range tokens {
		if tok < 0 || tok >= m.cfg.VocabSize {
			return nil, fmt.Errorf("%w: token %d at position %d (vocab %d)", ErrTokenRange, tok, t, m.cfg.VocabSize)
		}
		xs[t] = m.We.Value.Row(tok)
	}
	return xs, nil
}

// Predict runs the forward pass over input and returns the per-step
// distributions and arg-max predictions.
func (m *Model) Predict(input []int) ([][]float64, []int, error) {
	xs, err := m.embed(input)
	if err != nil {
		return nil, nil, err
	}
	probs, pred := m.Head.Forward(m.Encoder.Encode(xs))
	return probs, pred, nil
}

// Pass is the result of one forward/backward computation.
type Pass struct {
	Cost  float64
	Probs [][]float64
	Pred  []int
}

// Backprop computes the mean negative log-likelihood of target under the
// model fed with input, then fills every parameter's Grad (We included)
// with the gradient of that cost. Previous gradients are discarded.
func (m *Model) Backprop(input, target []int) (*Pass, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("%w: empty input sequence", ErrShape)
	}
	if len(input) != len(target) {
		return nil, fmt.Errorf("%w: input length %d, target length %d", ErrShape, len(input), len(target))
	}
	for t, y := range target {
		if y < 0 || y >= m.cfg.VocabSize {
			return nil, fmt.Errorf("%w: target %d at position %d (vocab %d)", ErrTokenRange, y, t, m.cfg.VocabSize)
		}
	}
	xs, err := m.embed(input)
	if err != nil {
		return nil, err
	}

	m.ZeroGrad()
	hs, trace := m.Encoder.forward(xs)
	probs, pred := m.Head.Forward(hs)

	var cost float64
	for t, y := range target {
		cost -= math.Log(probs[t][y])
	}
	cost /= float64(len(target))

	dhs := m.Head.backward(hs, probs, target)
	dxs := m.Encoder.backward(trace, dhs)
	for t, tok := range input {
		tensor.Add(m.We.Grad.Row(tok), dxs[t])
	}
	return &Pass{Cost: cost, Probs: probs, Pred: pred}, nil
}

// ZeroGrad clears every gradient buffer.
func (m *Model) ZeroGrad() {
	m.We.Grad.Zero()
	for _, p := range m.Params() {
		p.Grad.Zero()
	}
}
