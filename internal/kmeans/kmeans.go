// Package kmeans implements soft k-means clustering: every point belongs to
// every cluster with a responsibility proportional to exp(-beta * d), where d
// is the squared Euclidean distance to the cluster mean.
package kmeans

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrConfig = errors.New("kmeans: invalid configuration")

type Config struct {
	K       int
	MaxIter int     // default 20
	Beta    float64 // stiffness, default 1
	Tol     float64 // stop when the cost moves less than this, default 0.01
	Seed    uint64
}

func (c Config) withDefaults() Config {
	if c.MaxIter <= 0 {
		c.MaxIter = 20
	}
	if c.Beta <= 0 {
		c.Beta = 1
	}
	if c.Tol <= 0 {
		c.Tol = 0.01
	}
	return c
}

type Result struct {
	Means            *mat.Dense // K×D
	Responsibilities *mat.Dense // N×K, rows sum to 1
	// Costs holds one entry per completed iteration.
	Costs []float64
}

// Labels returns the most responsible cluster for every point.
func (r *Result) Labels() []int {
	n, _ := r.Responsibilities.Dims()
	out := make([]int, n)
	for i := range n {
		out[i] = floats.MaxIdx(r.Responsibilities.RawRowView(i))
	}
	return out
}

// Fit clusters the rows of X. Means start at K rows of X drawn with
// replacement.
func Fit(X *mat.Dense, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrConfig)
	}
	if cfg.K <= 0 {
		return nil, fmt.Errorf("%w: K=%d", ErrConfig, cfg.K)
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))

	M := mat.NewDense(cfg.K, d, nil)
	for k := range cfg.K {
		M.SetRow(k, X.RawRowView(rng.IntN(n)))
	}
	R := mat.NewDense(n, cfg.K, nil)
	dist := mat.NewDense(n, cfg.K, nil)
	costs := make([]float64, 0, cfg.MaxIter)

	for i := range cfg.MaxIter {
		distances(dist, X, M)
		responsibilities(R, dist, cfg.Beta)
		updateMeans(M, R, X)

		distances(dist, X, M)
		c := cost(R, dist)
		costs = append(costs, c)
		if i > 0 && math.Abs(c-costs[i-1]) < cfg.Tol {
			break
		}
	}
	return &Result{Means: M, Responsibilities: R, Costs: costs}, nil
}

// distances fills dst[n,k] with |X_n - M_k|².
func distances(dst, X, M *mat.Dense) {
	n, _ := X.Dims()
	k, _ := M.Dims()
	for i := range n {
		x := X.RawRowView(i)
		row := dst.RawRowView(i)
		for j := range k {
			dd := floats.Distance(x, M.RawRowView(j), 2)
			row[j] = dd * dd
		}
	}
}

// responsibilities writes the row-wise softmax of -beta*dist into R. The
// exponent is shifted by the row maximum so distant points do not underflow
// to 0/0.
func responsibilities(R, dist *mat.Dense, beta float64) {
	n, k := dist.Dims()
	for i := range n {
		d := dist.RawRowView(i)
		r := R.RawRowView(i)
		for j := range k {
			r[j] = -beta * d[j]
		}
		shift := floats.Max(r)
		var sum float64
		for j := range k {
			r[j] = math.Exp(r[j] - shift)
			sum += r[j]
		}
		floats.Scale(1/sum, r)
	}
}

// updateMeans sets M_k = R[:,k]ᵀX / ΣR[:,k]. A cluster with no mass keeps
// its previous mean.
func updateMeans(M, R, X *mat.Dense) {
	k, d := M.Dims()
	var weighted mat.Dense
	weighted.Mul(R.T(), X)
	for j := range k {
		mass := floats.Sum(mat.Col(nil, j, R))
		if mass == 0 {
			continue
		}
		row := M.RawRowView(j)
		for c := range d {
			row[c] = weighted.At(j, c) / mass
		}
	}
}

func cost(R, dist *mat.Dense) float64 {
	var e mat.Dense
	e.MulElem(R, dist)
	return mat.Sum(&e)
}

// Colors mixes a random RGB colour per cluster by responsibility, giving an
// N×3 matrix with entries in [0,1].
func Colors(R *mat.Dense, seed uint64) *mat.Dense {
	_, k := R.Dims()
	palette := mat.NewDense(k, 3, nil)
	u := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(seed, seed+1)}
	for i := range k {
		for c := range 3 {
			palette.Set(i, c, u.Rand())
		}
	}
	var out mat.Dense
	out.Mul(R, palette)
	return &out
}

// GaussianBlobs draws perCluster points from a unit-variance normal around
// each centre, in centre order.
func GaussianBlobs(centres [][]float64, perCluster int, seed uint64) *mat.Dense {
	if len(centres) == 0 || perCluster <= 0 {
		return &mat.Dense{}
	}
	d := len(centres[0])
	X := mat.NewDense(len(centres)*perCluster, d, nil)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	for c, mu := range centres {
		for i := range perCluster {
			row := X.RawRowView(c*perCluster + i)
			for j := range d {
				row[j] = mu[j] + norm.Rand()
			}
		}
	}
	return X
}

// DemoCentres returns the three well separated 2-D centres (0,0), (s,s) and
// (0,s).
func DemoCentres(s float64) [][]float64 {
	return [][]float64{{0, 0}, {s, s}, {0, s}}
}
