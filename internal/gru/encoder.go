package gru

import (
	"fmt"

	"github.com/samcharles93/gruwiki/internal/tensor"
)

// Encoder is a stack of GRU layers unrolled over a sequence. The output
// sequence of layer k is the input sequence of layer k+1.
type Encoder struct {
	Layers []*Cell
}

// NewEncoder chains one cell per entry in sizes, starting from inputDim.
func NewEncoder(inputDim int, sizes []int, act Activation, seed uint64) (*Encoder, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: at least one hidden layer is required", ErrShape)
	}
	e := &Encoder{Layers: make([]*Cell, 0, len(sizes))}
	mi := inputDim
	for k, mo := range sizes {
		cell, err := NewCell(mi, mo, act, seed+uint64(k+1)*100)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", k, err)
		}
		e.Layers = append(e.Layers, cell)
		mi = mo
	}
	return e, nil
}

// InputDim is the width expected by the first layer.
func (e *Encoder) InputDim() int { return e.Layers[0].Mi }

// OutputDim is the hidden width of the last layer.
func (e *Encoder) OutputDim() int { return e.Layers[len(e.Layers)-1].Mo }

// Params lists every layer's parameters, first layer first.
func (e *Encoder) Params() []*Param {
	var ps []*Param
	for _, c := range e.Layers {
		ps = append(ps, c.Params()...)
	}
	return ps
}

// Unroll applies the cell over xs in order starting from H0. An empty input
// yields an empty output.
func (c *Cell) Unroll(xs [][]float64) [][]float64 {
	caches := c.unroll(xs)
	hs := make([][]float64, len(caches))
	for t, sc := range caches {
		hs[t] = sc.h
	}
	return hs
}

func (c *Cell) unroll(xs [][]float64) []*stepCache {
	caches := make([]*stepCache, len(xs))
	h := c.H0.Value.Data
	for t, x := range xs {
		caches[t] = c.step(x, h)
		h = caches[t].h
	}
	return caches
}

// bptt back-propagates dhs (dL/dh_t from above) through the unrolled layer,
// accumulating parameter gradients including H0, and returns dL/dx_t.
func (c *Cell) bptt(caches []*stepCache, dhs [][]float64) [][]float64 {
	dxs := make([][]float64, len(caches))
	dhNext := make([]float64, c.Mo)
	dh := make([]float64, c.Mo)
	for t := len(caches) - 1; t >= 0; t-- {
		copy(dh, dhs[t])
		tensor.Add(dh, dhNext)
		dxs[t], dhNext = c.backward(caches[t], dh)
	}
	if len(caches) > 0 {
		tensor.Add(c.H0.Grad.Data, dhNext)
	}
	return dxs
}

// Encode runs the full stack and returns the last layer's hidden states.
func (e *Encoder) Encode(xs [][]float64) [][]float64 {
	out, _ := e.forward(xs)
	return out
}

func (e *Encoder) forward(xs [][]float64) ([][]float64, [][]*stepCache) {
	trace := make([][]*stepCache, len(e.Layers))
	in := xs
	for k, c := range e.Layers {
		trace[k] = c.unroll(in)
		out := make([][]float64, len(trace[k]))
		for t, sc := range trace[k] {
			out[t] = sc.h
		}
		in = out
	}
	return in, trace
}

func (e *Encoder) backward(trace [][]*stepCache, dOut [][]float64) [][]float64 {
	d := dOut
	for k := len(e.Layers) - 1; k >= 0; k-- {
		d = e.Layers[k].bptt(trace[k], d)
	}
	return d
}
