package corpus

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `= Heading =
The king met the man. The woman met the queen.
* a bullet line that is skipped
Paris is in France, and the king likes Paris.
x
`

func TestTokenize(t *testing.T) {
	t.Parallel()
	got := Tokenize("Hello, World! It's 2024.")
	want := []string{"hello", "world", "its", "2024"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBuildReservesSentinels(t *testing.T) {
	t.Parallel()
	c, err := Build([]io.Reader{strings.NewReader(sample)}, Options{VocabSize: 3})
	if err != nil {
		t.Fatal(err)
	}
	v := c.Vocab
	if id, _ := v.ID(StartWord); id != StartToken {
		t.Fatalf("START=%d", id)
	}
	if id, _ := v.ID(EndWord); id != EndToken {
		t.Fatalf("END=%d", id)
	}
	if id, _ := v.ID(UnknownWord); id != v.Size()-1 {
		t.Fatalf("UNKNOWN=%d size=%d", id, v.Size())
	}
	if v.Size() != 3+3 {
		t.Fatalf("vocab size %d", v.Size())
	}
	if id, _ := v.ID("the"); id != 2 {
		t.Fatalf("most frequent word should get index 2, got %d", id)
	}
	// heading, bullet and the single-token line are dropped
	if len(c.Sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %v", len(c.Sentences), c.Sentences)
	}
	unknown := v.Size() - 1
	for _, s := range c.Sentences {
		for _, id := range s {
			if id < 2 || id > unknown {
				t.Fatalf("sentence contains invalid id %d", id)
			}
		}
	}
}

func TestBuildKeepWords(t *testing.T) {
	t.Parallel()
	c, err := Build([]io.Reader{strings.NewReader(sample)}, Options{VocabSize: 2, KeepWords: []string{"queen"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Vocab.ID("queen"); !ok {
		t.Fatal("keep word missing from vocabulary")
	}
}

func TestVocabSaveLoad(t *testing.T) {
	t.Parallel()
	c, err := Build([]io.Reader{strings.NewReader(sample)}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "word2idx.json")
	if err := c.Vocab.Save(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"START": 0`) {
		t.Fatalf("expected flat JSON object, got %s", data)
	}
	got, err := LoadVocab(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Size() != c.Vocab.Size() {
		t.Fatalf("size %d want %d", got.Size(), c.Vocab.Size())
	}
	for i, w := range c.Vocab.Words() {
		if got.Word(i) != w {
			t.Fatalf("index %d: %q want %q", i, got.Word(i), w)
		}
	}
}

func TestNewVocabRejectsSparseIndices(t *testing.T) {
	t.Parallel()
	if _, err := NewVocab(map[string]int{"a": 0, "b": 2}); err == nil {
		t.Fatal("expected error for non-dense indices")
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"enwiki-1.txt", "enwiki-2.txt", "other.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("one two three\nfour five\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c, err := LoadDir(dir, Options{MaxFiles: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Sentences) != 2 {
		t.Fatalf("expected sentences from one file, got %d", len(c.Sentences))
	}
	if _, err := LoadDir(t.TempDir(), Options{}); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
