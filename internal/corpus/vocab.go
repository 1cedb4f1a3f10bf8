package corpus

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// Reserved indices.
const (
	StartToken = 0
	EndToken   = 1

	StartWord   = "START"
	EndWord     = "END"
	UnknownWord = "UNKNOWN"
)

// Vocab maps words to dense indices. It is fixed once training starts.
type Vocab struct {
	index map[string]int
	words []string
}

// NewVocab builds a vocabulary from a word→index mapping. Indices must be
// dense in [0, len(m)).
func NewVocab(m map[string]int) (*Vocab, error) {
	words := make([]string, len(m))
	seen := make([]bool, len(m))
	for w, i := range m {
		if i < 0 || i >= len(m) {
			return nil, fmt.Errorf("vocab: index %d for %q outside [0,%d)", i, w, len(m))
		}
		if seen[i] {
			return nil, fmt.Errorf("vocab: index %d assigned twice", i)
		}
		seen[i] = true
		words[i] = w
	}
	index := make(map[string]int, len(m))
	for w, i := range m {
		index[w] = i
	}
	return &Vocab{index: index, words: words}, nil
}

func (v *Vocab) Size() int { return len(v.words) }

// ID returns the index of word.
func (v *Vocab) ID(word string) (int, bool) {
	i, ok := v.index[word]
	return i, ok
}

// Word returns the word at index i, or "" when out of range.
func (v *Vocab) Word(i int) string {
	if i < 0 || i >= len(v.words) {
		return ""
	}
	return v.words[i]
}

// Words returns the words ordered by index.
func (v *Vocab) Words() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}

// Decode maps indices back to words.
func (v *Vocab) Decode(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = v.Word(id)
	}
	return out
}

// MarshalJSON writes the flat word→index object.
func (v *Vocab) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.index)
}

func (v *Vocab) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	nv, err := NewVocab(m)
	if err != nil {
		return err
	}
	*v = *nv
	return nil
}

// Save writes the vocabulary as a JSON object.
func (v *Vocab) Save(path string) error {
	data, err := json.MarshalIndent(v.index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vocab: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write vocab: %w", err)
	}
	return nil
}

// LoadVocab reads a vocabulary written by Save.
func LoadVocab(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	var v Vocab
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode vocab %s: %w", path, err)
	}
	return &v, nil
}

type wordCount struct {
	word  string
	count int
	first int
}

// sortCounts orders by descending count, breaking ties by first appearance
// so vocabularies are reproducible.
func sortCounts(wc []wordCount) {
	sort.Slice(wc, func(i, j int) bool {
		if wc[i].count != wc[j].count {
			return wc[i].count > wc[j].count
		}
		return wc[i].first < wc[j].first
	})
}
