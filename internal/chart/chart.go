// Package chart renders training curves and cluster scatters to image files.
package chart

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const side = 8 * vg.Inch

// Costs saves a line plot of one cost value per iteration. The image format
// follows the extension of path.
func Costs(path, title string, costs []float64) error {
	if len(costs) == 0 {
		return errors.New("plot: no costs")
	}
	points := make(plotter.XYs, len(costs))
	for i, c := range costs {
		points[i] = plotter.XY{X: float64(i), Y: c}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "cost"

	line, scatter, err := plotter.NewLinePoints(points)
	if err != nil {
		return fmt.Errorf("plot costs: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Length(2)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(line, scatter, plotter.NewGrid())

	return p.Save(side, side/2, path)
}

// Scatter saves the first two columns of X as points. colors, when not nil,
// is an N×3 RGB matrix in [0,1] giving each point its own colour.
func Scatter(path, title string, X, colors *mat.Dense) error {
	n, d := X.Dims()
	if n == 0 || d < 2 {
		return fmt.Errorf("plot: need at least 2 columns, got %dx%d", n, d)
	}
	if colors != nil {
		if r, c := colors.Dims(); r != n || c != 3 {
			return fmt.Errorf("plot: colours %dx%d do not match %d points", r, c, n)
		}
	}
	points := make(plotter.XYs, n)
	for i := range n {
		points[i] = plotter.XY{X: X.At(i, 0), Y: X.At(i, 1)}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return fmt.Errorf("plot scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Length(2)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	if colors != nil {
		base := scatter.GlyphStyle
		scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			gs := base
			gs.Color = rgb(colors.RawRowView(i))
			return gs
		}
	}
	p.Add(scatter)

	return p.Save(side, side, path)
}

func rgb(c []float64) color.RGBA {
	ch := func(v float64) uint8 {
		return uint8(min(max(v, 0), 1) * 255)
	}
	return color.RGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: 255}
}
