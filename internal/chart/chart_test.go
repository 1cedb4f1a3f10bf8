package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Fatalf("%s is not a PNG file", path)
	}
}

func TestCosts(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "costs.png")
	if err := Costs(path, "Costs", []float64{10, 6, 4.5, 4.1}); err != nil {
		t.Fatalf("Costs: %v", err)
	}
	assertPNG(t, path)
}

func TestCostsEmpty(t *testing.T) {
	t.Parallel()
	if err := Costs(filepath.Join(t.TempDir(), "x.png"), "", nil); err == nil {
		t.Fatal("expected error for empty costs")
	}
}

func TestScatter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	X := mat.NewDense(3, 2, []float64{0, 0, 1, 1, 2, 0})
	colors := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1.5})

	plain := filepath.Join(dir, "plain.png")
	if err := Scatter(plain, "data", X, nil); err != nil {
		t.Fatalf("Scatter: %v", err)
	}
	assertPNG(t, plain)

	coloured := filepath.Join(dir, "coloured.png")
	if err := Scatter(coloured, "clusters", X, colors); err != nil {
		t.Fatalf("Scatter with colours: %v", err)
	}
	assertPNG(t, coloured)

	if err := Scatter(filepath.Join(dir, "bad.png"), "", X, mat.NewDense(2, 3, nil)); err == nil {
		t.Fatal("expected error for mismatched colours")
	}
}

func TestRGBClamps(t *testing.T) {
	t.Parallel()
	c := rgb([]float64{-1, 0.5, 2})
	if c.R != 0 || c.G != 127 || c.B != 255 || c.A != 255 {
		t.Fatalf("unexpected colour %+v", c)
	}
}
