// Package embeddings serves lookups over a trained word embedding matrix:
// analogies of the form a - b + c and nearest neighbours.
package embeddings

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/gruwiki/internal/corpus"
	"github.com/samcharles93/gruwiki/internal/safetensors"
	"github.com/samcharles93/gruwiki/internal/tensor"
)

const (
	// TensorName is the name of the embedding matrix in a weights file.
	TensorName = "We"

	WeightsFile = "embeddings.safetensors"
	VocabFile   = "vocab.json"
)

var (
	ErrUnknownWord = errors.New("unknown word")
	ErrMetric      = errors.New("unknown metric")
)

type Metric string

const (
	Euclidean Metric = "euclidean"
	Cosine    Metric = "cosine"
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case Euclidean, Cosine:
		return m, nil
	case "":
		return Cosine, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrMetric, s)
	}
}

func (m Metric) distance(a, b []float64) float64 {
	if m == Euclidean {
		return floats.Distance(a, b, 2)
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}

// Match is a vocabulary word and its distance to a query vector.
type Match struct {
	Word     string  `json:"word"`
	Distance float64 `json:"distance"`
}

// Store pairs an embedding matrix with the vocabulary indexing its rows.
type Store struct {
	we    *mat.Dense
	vocab *corpus.Vocab
}

func New(we tensor.Mat, vocab *corpus.Vocab) (*Store, error) {
	if vocab == nil {
		return nil, errors.New("embeddings: nil vocabulary")
	}
	if we.R != vocab.Size() || we.C == 0 {
		return nil, fmt.Errorf("embeddings: matrix %dx%d does not match vocabulary of %d words", we.R, we.C, vocab.Size())
	}
	c := we.Clone()
	return &Store{we: c.Dense(), vocab: vocab}, nil
}

func (s *Store) Vocab() *corpus.Vocab { return s.vocab }

func (s *Store) Dim() int {
	_, c := s.we.Dims()
	return c
}

// Matrix exposes the V×D embedding matrix. Callers must not modify it.
func (s *Store) Matrix() *mat.Dense { return s.we }

// Vector returns the embedding row for word. The slice aliases the store.
func (s *Store) Vector(word string) ([]float64, error) {
	id, ok := s.vocab.ID(word)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWord, word)
	}
	return s.we.RawRowView(id), nil
}

// Analogy finds the word closest to vec(a) - vec(b) + vec(c), never returning
// one of the three query words. Ties keep the lowest index.
func (s *Store) Analogy(a, b, c string, metric Metric) (Match, error) {
	va, err := s.Vector(a)
	if err != nil {
		return Match{}, err
	}
	vb, err := s.Vector(b)
	if err != nil {
		return Match{}, err
	}
	vc, err := s.Vector(c)
	if err != nil {
		return Match{}, err
	}
	query := make([]float64, len(va))
	floats.SubTo(query, va, vb)
	floats.Add(query, vc)

	best := Match{Distance: math.Inf(1)}
	r, _ := s.we.Dims()
	for i := range r {
		w := s.vocab.Word(i)
		if w == a || w == b || w == c {
			continue
		}
		if d := metric.distance(query, s.we.RawRowView(i)); d < best.Distance {
			best = Match{Word: w, Distance: d}
		}
	}
	if best.Word == "" {
		return Match{}, fmt.Errorf("%w: vocabulary has no candidate besides the query words", ErrUnknownWord)
	}
	return best, nil
}

// Neighbors returns the k words closest to word by cosine distance, nearest
// first. The word itself is left out.
func (s *Store) Neighbors(word string, k int) ([]Match, error) {
	v, err := s.Vector(word)
	if err != nil {
		return nil, err
	}
	r, _ := s.we.Dims()
	out := make([]Match, 0, r-1)
	for i := range r {
		w := s.vocab.Word(i)
		if w == word {
			continue
		}
		out = append(out, Match{Word: w, Distance: Cosine.distance(v, s.we.RawRowView(i))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out, nil
}

// Save writes the matrix as tensor "We" to weightsPath and the vocabulary
// as JSON to vocabPath.
func (s *Store) Save(weightsPath, vocabPath string) error {
	return Save(weightsPath, vocabPath, tensor.Mat{R: s.rows(), C: s.Dim(), Data: s.we.RawMatrix().Data}, s.vocab)
}

func (s *Store) rows() int {
	r, _ := s.we.Dims()
	return r
}

// Save persists an embedding matrix and its vocabulary.
func Save(weightsPath, vocabPath string, we tensor.Mat, vocab *corpus.Vocab) error {
	err := safetensors.Write(weightsPath, []safetensors.Tensor{{
		Name:  TensorName,
		Shape: we.Shape(),
		Data:  we.Data,
	}}, map[string]string{
		"vocab_size":    strconv.Itoa(vocab.Size()),
		"embedding_dim": strconv.Itoa(we.C),
	})
	if err != nil {
		return fmt.Errorf("write embeddings: %w", err)
	}
	if err := vocab.Save(vocabPath); err != nil {
		return fmt.Errorf("write vocabulary: %w", err)
	}
	return nil
}

// Load reads files written by Save.
func Load(weightsPath, vocabPath string) (*Store, error) {
	f, err := safetensors.Open(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("open embeddings: %w", err)
	}
	data, info, err := f.ReadTensorF64(TensorName)
	if err != nil {
		return nil, err
	}
	if len(info.Shape) != 2 {
		return nil, fmt.Errorf("embeddings: tensor %s has shape %v, want 2 dims", TensorName, info.Shape)
	}
	vocab, err := corpus.LoadVocab(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return New(tensor.NewMatFromData(info.Shape[0], info.Shape[1], data), vocab)
}

// SaveDir writes WeightsFile and VocabFile into dir.
func SaveDir(dir string, we tensor.Mat, vocab *corpus.Vocab) error {
	return Save(filepath.Join(dir, WeightsFile), filepath.Join(dir, VocabFile), we, vocab)
}

// LoadDir reads a directory written by SaveDir.
func LoadDir(dir string) (*Store, error) {
	return Load(filepath.Join(dir, WeightsFile), filepath.Join(dir, VocabFile))
}
