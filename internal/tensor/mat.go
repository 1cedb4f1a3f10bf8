package tensor

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mat represents a dense row‑major matrix of float64 values.
//
// R and C represent the number of rows and columns respectively.  Data holds
// the flattened matrix values; row i occupies Data[i*C : (i+1)*C].  Vectors
// are stored as 1×n matrices.
//
// Mat does not perform any memory safety beyond the checks performed by Go's
// slice types; out‑of‑range indices will panic.
type Mat struct {
	R, C int
	Data []float64
}

// NewMat allocates a new zero initialised matrix with the given number of
// rows and columns.
func NewMat(r, c int) Mat {
	if r < 0 || c < 0 {
		panic("negative dimension for matrix")
	}
	return Mat{
		R:    r,
		C:    c,
		Data: make([]float64, r*c),
	}
}

// NewVec allocates a zero initialised 1×n matrix.
func NewVec(n int) Mat {
	return NewMat(1, n)
}

// NewMatFromData creates a matrix from existing data.
// It checks that the data length matches r*c.
func NewMatFromData(r, c int, data []float64) Mat {
	if r*c != len(data) {
		panic("data length mismatch")
	}
	return Mat{
		R:    r,
		C:    c,
		Data: data,
	}
}

// Row returns a view of the i‑th row of the matrix as a slice.  The slice
// has length equal to the number of columns.  Modifications to the returned
// slice update the underlying matrix values.
func (m *Mat) Row(i int) []float64 {
	if i < 0 || i >= m.R {
		panic("row index out of range")
	}
	start := i * m.C
	return m.Data[start : start+m.C]
}

// At returns the element at row i, column j.
func (m *Mat) At(i, j int) float64 {
	return m.Data[i*m.C+j]
}

// Set stores v at row i, column j.
func (m *Mat) Set(i, j int, v float64) {
	m.Data[i*m.C+j] = v
}

// Shape returns the dimensions as a two element slice, the way they are
// reported in diagnostics and persisted tensor headers.
func (m *Mat) Shape() []int {
	return []int{m.R, m.C}
}

// Zero resets every element to zero.
func (m *Mat) Zero() {
	clear(m.Data)
}

// Clone returns a deep copy of m.
func (m *Mat) Clone() Mat {
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return Mat{R: m.R, C: m.C, Data: data}
}

// Dense returns a gonum view sharing m's backing storage.
func (m *Mat) Dense() *mat.Dense {
	if m.R == 0 || m.C == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(m.R, m.C, m.Data)
}

// FillRand fills the matrix with reproducible normally distributed values
// scaled by 1/sqrt(R+C).  The seed controls the random sequence; multiple
// calls with the same seed produce identical matrices.
func FillRand(m *Mat, seed uint64) {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
	scale := 1 / math.Sqrt(float64(m.R+m.C))
	for i := range m.Data {
		m.Data[i] = dist.Rand() * scale
	}
}

// InitWeight allocates an r×c matrix filled by FillRand.
func InitWeight(r, c int, seed uint64) Mat {
	m := NewMat(r, c)
	FillRand(&m, seed)
	return m
}
