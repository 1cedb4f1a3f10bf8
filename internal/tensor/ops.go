package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// VecMat computes dst = x·w where x has length w.R and dst has length w.C.
func VecMat(dst, x []float64, w *Mat) {
	if len(x) != w.R || len(dst) != w.C {
		panic("VecMat dimension mismatch")
	}
	clear(dst)
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		floats.AddScaled(dst, xi, w.Row(i))
	}
}

// MatVec computes dst = w·v where v has length w.C and dst has length w.R.
// It is the transpose product used to push gradients back through VecMat.
func MatVec(dst []float64, w *Mat, v []float64) {
	if len(v) != w.C || len(dst) != w.R {
		panic("MatVec dimension mismatch")
	}
	for i := range dst {
		dst[i] = floats.Dot(w.Row(i), v)
	}
}

// AddOuter accumulates the outer product x⊗d into g, i.e. g[i][j] += x[i]*d[j].
func AddOuter(g *Mat, x, d []float64) {
	if len(x) != g.R || len(d) != g.C {
		panic("AddOuter dimension mismatch")
	}
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		floats.AddScaled(g.Row(i), xi, d)
	}
}

// Add adds src to dst element-wise.
func Add(dst, src []float64) {
	floats.Add(dst, src)
}

// Dot computes the dot product of a and b.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// Softmax applies the softmax function to x in place.
func Softmax(x []float64) {
	if len(x) == 0 {
		return
	}
	maxv := floats.Max(x)
	var sum float64
	for i := range x {
		v := math.Exp(x[i] - maxv)
		x[i] = v
		sum += v
	}
	if sum == 0 {
		return
	}
	floats.Scale(1/sum, x)
}

// Sigmoid computes the logistic sigmoid activation.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Argmax returns the index of the maximum value. Ties resolve to the lowest index.
func Argmax(x []float64) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	return floats.MaxIdx(x)
}

// Finite reports whether every element of x is neither NaN nor ±Inf.
func Finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
