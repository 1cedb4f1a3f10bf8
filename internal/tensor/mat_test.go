package tensor

import (
	"math"
	"testing"
)

func TestFillRandDeterministic(t *testing.T) {
	t.Parallel()
	a := InitWeight(4, 3, 7)
	b := InitWeight(4, 3, 7)
	c := InitWeight(4, 3, 8)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("same seed differs at %d: %v vs %v", i, a.Data[i], b.Data[i])
		}
	}
	same := true
	for i := range a.Data {
		if a.Data[i] != c.Data[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical matrices")
	}
}

func TestRowIsView(t *testing.T) {
	t.Parallel()
	m := NewMat(2, 3)
	m.Row(1)[2] = 5
	if m.At(1, 2) != 5 {
		t.Fatalf("row write not visible, got %v", m.At(1, 2))
	}
	d := m.Dense()
	if d.At(1, 2) != 5 {
		t.Fatalf("dense view mismatch, got %v", d.At(1, 2))
	}
}

func TestVecMatAndTranspose(t *testing.T) {
	t.Parallel()
	w := NewMatFromData(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	dst := make([]float64, 3)
	VecMat(dst, []float64{1, -1}, &w)
	want := []float64{-3, -3, -3}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("VecMat[%d]: got %v want %v", i, dst[i], want[i])
		}
	}

	back := make([]float64, 2)
	MatVec(back, &w, []float64{1, 0, 1})
	if back[0] != 4 || back[1] != 10 {
		t.Fatalf("MatVec: got %v", back)
	}

	g := NewMat(2, 3)
	AddOuter(&g, []float64{1, 2}, []float64{1, 0, -1})
	AddOuter(&g, []float64{1, 2}, []float64{1, 0, -1})
	if g.At(1, 0) != 4 || g.At(1, 2) != -4 || g.At(0, 1) != 0 {
		t.Fatalf("AddOuter accumulated wrong values: %v", g.Data)
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	t.Parallel()
	x := []float64{1000, 999, -5, 0}
	Softmax(x)
	var sum float64
	for _, v := range x {
		if v < 0 {
			t.Fatalf("negative probability %v", v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("softmax sum = %v", sum)
	}
	if Argmax(x) != 0 {
		t.Fatalf("argmax = %d, want 0", Argmax(x))
	}
}

func TestFinite(t *testing.T) {
	t.Parallel()
	if !Finite([]float64{0, 1, -2}) {
		t.Fatal("finite slice reported non-finite")
	}
	if Finite([]float64{0, math.NaN()}) || Finite([]float64{math.Inf(-1)}) {
		t.Fatal("non-finite slice reported finite")
	}
}
