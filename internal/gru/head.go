package gru

import (
	"fmt"

	"github.com/samcharles93/gruwiki/internal/tensor"
)

// Head projects hidden states to a categorical distribution over the
// vocabulary: softmax(h·Wo + bo).
type Head struct {
	Wo, Bo *Param
}

func NewHead(hidden, vocab int, seed uint64) (*Head, error) {
	if hidden <= 0 || vocab <= 0 {
		return nil, fmt.Errorf("%w: output head %dx%d", ErrShape, hidden, vocab)
	}
	return &Head{
		Wo: newParam("Wo", tensor.InitWeight(hidden, vocab, seed)),
		Bo: zeroParam("bo", 1, vocab),
	}, nil
}

func (h *Head) Params() []*Param { return []*Param{h.Wo, h.Bo} }

// Forward returns one distribution per step and its arg-max index.
func (h *Head) Forward(hs [][]float64) (probs [][]float64, pred []int) {
	v := h.Wo.Value.C
	probs = make([][]float64, len(hs))
	pred = make([]int, len(hs))
	for t, ht := range hs {
		p := make([]float64, v)
		tensor.VecMat(p, ht, &h.Wo.Value)
		tensor.Add(p, h.Bo.Value.Data)
		tensor.Softmax(p)
		probs[t] = p
		pred[t] = tensor.Argmax(p)
	}
	return probs, pred
}

// backward accumulates gradients of the mean negative log-likelihood of
// targets and returns dL/dh per step.
func (h *Head) backward(hs, probs [][]float64, targets []int) [][]float64 {
	n := float64(len(targets))
	dhs := make([][]float64, len(hs))
	dLogits := make([]float64, h.Wo.Value.C)
	for t := range hs {
		copy(dLogits, probs[t])
		dLogits[targets[t]] -= 1
		for j := range dLogits {
			dLogits[j] /= n
		}
		tensor.AddOuter(&h.Wo.Grad, hs[t], dLogits)
		tensor.Add(h.Bo.Grad.Data, dLogits)
		dhs[t] = make([]float64, h.Wo.Value.R)
		tensor.MatVec(dhs[t], &h.Wo.Value, dLogits)
	}
	return dhs
}
