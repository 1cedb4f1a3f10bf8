package gru

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func randVec(rng *rand.Rand, n int, scale float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = (rng.Float64()*2 - 1) * scale
	}
	return v
}

func TestStepKeepsHiddenWidth(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct{ mi, mo int }{{1, 4}, {7, 4}, {4, 4}, {30, 2}} {
		c, err := NewCell(tc.mi, tc.mo, ReLU, 1)
		if err != nil {
			t.Fatalf("NewCell(%d,%d): %v", tc.mi, tc.mo, err)
		}
		h := c.Step(make([]float64, tc.mi), make([]float64, tc.mo))
		if len(h) != tc.mo {
			t.Fatalf("mi=%d mo=%d: got hidden width %d", tc.mi, tc.mo, len(h))
		}
	}
}

func TestGatesInUnitInterval(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(3, 4))
	c, err := NewCell(5, 6, Tanh, 9)
	if err != nil {
		t.Fatal(err)
	}
	for range 50 {
		sc := c.step(randVec(rng, 5, 3), randVec(rng, 6, 3))
		for i := range sc.r {
			if !(sc.r[i] > 0 && sc.r[i] < 1) || !(sc.z[i] > 0 && sc.z[i] < 1) {
				t.Fatalf("gate outside (0,1): r=%v z=%v", sc.r[i], sc.z[i])
			}
		}
	}
}

func TestHiddenIsConvexCombination(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(5, 6))
	c, err := NewCell(3, 4, ReLU, 2)
	if err != nil {
		t.Fatal(err)
	}
	for range 50 {
		hPrev := randVec(rng, 4, 2)
		sc := c.step(randVec(rng, 3, 2), hPrev)
		for i := range sc.h {
			lo, hi := min(hPrev[i], sc.hhat[i]), max(hPrev[i], sc.hhat[i])
			if sc.h[i] < lo-1e-12 || sc.h[i] > hi+1e-12 {
				t.Fatalf("h[%d]=%v not between %v and %v", i, sc.h[i], lo, hi)
			}
		}
	}
}

func TestStepDoesNotMutate(t *testing.T) {
	t.Parallel()
	c, err := NewCell(2, 2, ReLU, 4)
	if err != nil {
		t.Fatal(err)
	}
	x := []float64{0.5, -0.25}
	h := []float64{0.1, 0.2}
	a := c.Step(x, h)
	b := c.Step(x, h)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("repeated step differs: %v vs %v", a, b)
		}
	}
	if h[0] != 0.1 || h[1] != 0.2 {
		t.Fatalf("previous state modified: %v", h)
	}
}

func TestNewCellRejectsBadShape(t *testing.T) {
	t.Parallel()
	if _, err := NewCell(0, 3, ReLU, 1); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestActivationByName(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]string{"": "relu", "ReLU": "relu", "tanh": "tanh", " sigmoid ": "sigmoid"} {
		act, err := ActivationByName(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if act.Name != want {
			t.Fatalf("%q: got %s want %s", name, act.Name, want)
		}
	}
	if _, err := ActivationByName("gelu"); err == nil {
		t.Fatal("expected error for unknown activation")
	}
	if math.Abs(Tanh.Deriv(0.3, math.Tanh(0.3))-(1-math.Pow(math.Tanh(0.3), 2))) > 1e-15 {
		t.Fatal("tanh derivative mismatch")
	}
}
