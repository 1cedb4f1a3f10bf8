package corpus

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Options controls how raw text is turned into index sequences.
type Options struct {
	// Pattern selects files inside the corpus directory.
	Pattern string
	// MaxFiles caps how many matching files are read; 0 reads all.
	MaxFiles int
	// VocabSize is the number of most frequent words kept besides the
	// sentinels. Everything else maps to UNKNOWN.
	VocabSize int
	// KeepWords are always kept regardless of frequency.
	KeepWords []string
	// ByParagraph treats a whole line as one sentence instead of splitting
	// on ". ".
	ByParagraph bool
}

// DefaultKeepWords are the words used by the analogy examples.
var DefaultKeepWords = []string{
	"king", "man", "queen", "woman",
	"italy", "rome", "france", "paris",
	"london", "britain", "england",
}

// Corpus is a tokenized dataset.
type Corpus struct {
	Sentences [][]int
	Vocab     *Vocab
}

// LoadDir reads every file in dir that matches opts.Pattern, in lexical order.
func LoadDir(dir string, opts Options) (*Corpus, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = "enwiki*"
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	sort.Strings(files)
	if opts.MaxFiles > 0 && len(files) > opts.MaxFiles {
		files = files[:opts.MaxFiles]
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("corpus: no files matching %q in %s", pattern, dir)
	}

	readers := make([]io.Reader, 0, len(files))
	closers := make([]io.Closer, 0, len(files))
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}
		closers = append(closers, f)
		readers = append(readers, f)
	}
	return Build(readers, opts)
}

// Build tokenizes the given readers line by line and restricts the
// vocabulary to the opts.VocabSize most frequent words.
func Build(readers []io.Reader, opts Options) (*Corpus, error) {
	counts := map[string]*wordCount{}
	var raw [][]string
	seq := 0

	for _, r := range readers {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 1<<20), 16<<20)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.ContainsRune("[*-|={}", rune(line[0])) {
				continue
			}
			parts := []string{line}
			if !opts.ByParagraph {
				parts = strings.Split(line, ". ")
			}
			for _, s := range parts {
				tokens := Tokenize(s)
				for _, tok := range tokens {
					wc, ok := counts[tok]
					if !ok {
						wc = &wordCount{word: tok, first: seq}
						counts[tok] = wc
						seq++
					}
					wc.count++
				}
				raw = append(raw, tokens)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("corpus: scan: %w", err)
		}
	}

	for _, w := range opts.KeepWords {
		if wc, ok := counts[w]; ok {
			wc.count = math.MaxInt
		}
	}
	delete(counts, StartWord)
	delete(counts, EndWord)
	delete(counts, UnknownWord)

	ranked := make([]wordCount, 0, len(counts))
	for _, wc := range counts {
		ranked = append(ranked, *wc)
	}
	sortCounts(ranked)
	if opts.VocabSize > 0 && len(ranked) > opts.VocabSize {
		ranked = ranked[:opts.VocabSize]
	}

	index := make(map[string]int, len(ranked)+3)
	index[StartWord] = StartToken
	index[EndWord] = EndToken
	for i, wc := range ranked {
		index[wc.word] = i + 2
	}
	unknown := len(index)
	index[UnknownWord] = unknown

	vocab, err := NewVocab(index)
	if err != nil {
		return nil, err
	}

	sentences := make([][]int, 0, len(raw))
	for _, tokens := range raw {
		if len(tokens) <= 1 {
			continue
		}
		ids := make([]int, len(tokens))
		for i, tok := range tokens {
			id, ok := vocab.ID(tok)
			if !ok || id == StartToken || id == EndToken {
				id = unknown
			}
			ids[i] = id
		}
		sentences = append(sentences, ids)
	}
	return &Corpus{Sentences: sentences, Vocab: vocab}, nil
}

// Tokenize lowercases s, drops punctuation and splits on whitespace.
func Tokenize(s string) []string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Fields(s)
}
