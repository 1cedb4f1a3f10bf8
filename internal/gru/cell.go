package gru

import (
	"fmt"

	"github.com/samcharles93/gruwiki/internal/tensor"
)

// Cell is one GRU layer: input width Mi, hidden width Mo.
//
//	r    = sigmoid(x·Wxr + h·Whr + br)
//	z    = sigmoid(x·Wxz + h·Whz + bz)
//	hhat = f(x·Wxh + (r⊙h)·Whh + bh)
//	h'   = (1-z)⊙h + z⊙hhat
type Cell struct {
	Mi, Mo int
	Act    Activation

	Wxr, Whr, Br *Param
	Wxz, Whz, Bz *Param
	Wxh, Whh, Bh *Param
	H0           *Param
}

// NewCell builds a cell with normally initialised weights and zero biases
// and initial state. seed selects the random stream for the six matrices.
func NewCell(mi, mo int, act Activation, seed uint64) (*Cell, error) {
	if mi <= 0 || mo <= 0 {
		return nil, fmt.Errorf("%w: gru cell %dx%d", ErrShape, mi, mo)
	}
	if act.F == nil || act.Deriv == nil {
		act = ReLU
	}
	return &Cell{
		Mi:  mi,
		Mo:  mo,
		Act: act,
		Wxr: newParam("Wxr", tensor.InitWeight(mi, mo, seed+1)),
		Whr: newParam("Whr", tensor.InitWeight(mo, mo, seed+2)),
		Br:  zeroParam("br", 1, mo),
		Wxz: newParam("Wxz", tensor.InitWeight(mi, mo, seed+3)),
		Whz: newParam("Whz", tensor.InitWeight(mo, mo, seed+4)),
		Bz:  zeroParam("bz", 1, mo),
		Wxh: newParam("Wxh", tensor.InitWeight(mi, mo, seed+5)),
		Whh: newParam("Whh", tensor.InitWeight(mo, mo, seed+6)),
		Bh:  zeroParam("bh", 1, mo),
		H0:  zeroParam("h0", 1, mo),
	}, nil
}

// Params lists the learnable arrays in a fixed order.
func (c *Cell) Params() []*Param {
	return []*Param{c.Wxr, c.Whr, c.Br, c.Wxz, c.Whz, c.Bz, c.Wxh, c.Whh, c.Bh, c.H0}
}

// stepCache holds the intermediates of one recurrence step needed by BPTT.
type stepCache struct {
	x, hPrev []float64
	r, z     []float64
	rh       []float64 // r⊙hPrev
	pre      []float64 // candidate pre-activation
	hhat     []float64
	h        []float64
}

// Step computes the next hidden state. It does not modify the cell.
func (c *Cell) Step(x, hPrev []float64) []float64 {
	return c.step(x, hPrev).h
}

func (c *Cell) step(x, hPrev []float64) *stepCache {
	if len(x) != c.Mi || len(hPrev) != c.Mo {
		panic(fmt.Sprintf("gru step: got x=%d h=%d, want %d/%d", len(x), len(hPrev), c.Mi, c.Mo))
	}
	mo := c.Mo
	sc := &stepCache{
		x:     x,
		hPrev: hPrev,
		r:     make([]float64, mo),
		z:     make([]float64, mo),
		rh:    make([]float64, mo),
		pre:   make([]float64, mo),
		hhat:  make([]float64, mo),
		h:     make([]float64, mo),
	}
	tmp := make([]float64, mo)

	c.gate(sc.r, tmp, x, hPrev, c.Wxr, c.Whr, c.Br)
	c.gate(sc.z, tmp, x, hPrev, c.Wxz, c.Whz, c.Bz)

	for i := range mo {
		sc.rh[i] = sc.r[i] * hPrev[i]
	}
	tensor.VecMat(sc.pre, x, &c.Wxh.Value)
	tensor.VecMat(tmp, sc.rh, &c.Whh.Value)
	tensor.Add(sc.pre, tmp)
	tensor.Add(sc.pre, c.Bh.Value.Data)
	for i := range mo {
		sc.hhat[i] = c.Act.F(sc.pre[i])
		sc.h[i] = (1-sc.z[i])*hPrev[i] + sc.z[i]*sc.hhat[i]
	}
	return sc
}

// gate writes sigmoid(x·wx + h·wh + b) into dst.
func (c *Cell) gate(dst, tmp, x, h []float64, wx, wh, b *Param) {
	tensor.VecMat(dst, x, &wx.Value)
	tensor.VecMat(tmp, h, &wh.Value)
	tensor.Add(dst, tmp)
	tensor.Add(dst, b.Value.Data)
	for i := range dst {
		dst[i] = tensor.Sigmoid(dst[i])
	}
}

// backward accumulates parameter gradients for one step given dL/dh and
// returns dL/dx and dL/dhPrev.
func (c *Cell) backward(sc *stepCache, dh []float64) (dx, dhPrev []float64) {
	mo := c.Mo
	dx = make([]float64, c.Mi)
	dhPrev = make([]float64, mo)

	dPre := make([]float64, mo)
	dz := make([]float64, mo)
	for i := range mo {
		dhPrev[i] = dh[i] * (1 - sc.z[i])
		dPre[i] = dh[i] * sc.z[i] * c.Act.Deriv(sc.pre[i], sc.hhat[i])
		dz[i] = dh[i] * (sc.hhat[i] - sc.hPrev[i]) * sc.z[i] * (1 - sc.z[i])
	}

	// candidate
	tensor.AddOuter(&c.Wxh.Grad, sc.x, dPre)
	tensor.AddOuter(&c.Whh.Grad, sc.rh, dPre)
	tensor.Add(c.Bh.Grad.Data, dPre)
	dRH := make([]float64, mo)
	tensor.MatVec(dRH, &c.Whh.Value, dPre)

	dr := make([]float64, mo)
	for i := range mo {
		dhPrev[i] += dRH[i] * sc.r[i]
		dr[i] = dRH[i] * sc.hPrev[i] * sc.r[i] * (1 - sc.r[i])
	}

	// gates
	tensor.AddOuter(&c.Wxz.Grad, sc.x, dz)
	tensor.AddOuter(&c.Whz.Grad, sc.hPrev, dz)
	tensor.Add(c.Bz.Grad.Data, dz)
	tensor.AddOuter(&c.Wxr.Grad, sc.x, dr)
	tensor.AddOuter(&c.Whr.Grad, sc.hPrev, dr)
	tensor.Add(c.Br.Grad.Data, dr)

	tmpX := make([]float64, c.Mi)
	tensor.MatVec(dx, &c.Wxh.Value, dPre)
	tensor.MatVec(tmpX, &c.Wxz.Value, dz)
	tensor.Add(dx, tmpX)
	tensor.MatVec(tmpX, &c.Wxr.Value, dr)
	tensor.Add(dx, tmpX)

	tmpH := make([]float64, mo)
	tensor.MatVec(tmpH, &c.Whz.Value, dz)
	tensor.Add(dhPrev, tmpH)
	tensor.MatVec(tmpH, &c.Whr.Value, dr)
	tensor.Add(dhPrev, tmpH)
	return dx, dhPrev
}
