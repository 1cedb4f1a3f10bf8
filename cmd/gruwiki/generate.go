package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gruwiki/internal/corpus"
	"github.com/samcharles93/gruwiki/internal/embeddings"
	"github.com/samcharles93/gruwiki/internal/gru"
	"github.com/samcharles93/gruwiki/internal/logger"
	"github.com/samcharles93/gruwiki/internal/logits"
)

type sampling struct {
	temp          float64
	topK          int64
	topP          float64
	repeatPenalty float64
	maxLen        int64
	seed          int64
}

func defaultSampling() sampling {
	return sampling{temp: 0.8, topK: 40, topP: 0.95, repeatPenalty: 1.1, maxLen: 30}
}

func samplingFlags(s *sampling) []cli.Flag {
	d := defaultSampling()
	return []cli.Flag{
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature (0 = greedy)",
			Value:       d.temp,
			Destination: &s.temp,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Usage:       "top-k sampling",
			Value:       d.topK,
			Destination: &s.topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "top-p sampling",
			Value:       d.topP,
			Destination: &s.topP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "penalty for words already in the sentence",
			Value:       d.repeatPenalty,
			Destination: &s.repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "max-len",
			Usage:       "maximum words per sentence",
			Value:       d.maxLen,
			Destination: &s.maxLen,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling seed",
			Destination: &s.seed,
		},
	}
}

func newSampler(s sampling) *logits.Sampler {
	return logits.NewSampler(logits.SamplerConfig{
		Seed:          uint64(s.seed),
		Temperature:   s.temp,
		TopK:          int(s.topK),
		TopP:          s.topP,
		RepeatPenalty: s.repeatPenalty,
		// A sentence never restarts mid-way.
		Exclude: []int{corpus.StartToken},
	})
}

func generateSentence(model *gru.Model, vocab *corpus.Vocab, sampler *logits.Sampler, maxLen int) []string {
	ids := model.Generate(gru.GenerateConfig{
		Start:  corpus.StartToken,
		End:    corpus.EndToken,
		MaxLen: maxLen,
	}, sampler.Sample)
	return vocab.Decode(ids)
}

func joinWords(words []string) string {
	return strings.Join(words, " ")
}

func generateCmd() *cli.Command {
	var (
		s     sampling
		count int
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Sample sentences from a trained model",
		Flags: append(append(runFlags(), samplingFlags(&s)...),
			&cli.IntFlag{
				Name:        "count",
				Aliases:     []string{"n"},
				Usage:       "number of sentences",
				Value:       5,
				Destination: &count,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(ctx)
			applyRunsConfig(cmd, cfg)
			applySamplingConfig(cmd, cfg, &s.temp, &s.topK, &s.topP, &s.repeatPenalty, &s.maxLen)

			dir, err := resolveRunPath(runPath, runsPath, os.Stdin, os.Stderr)
			if err != nil {
				return err
			}
			model, err := gru.Load(filepath.Join(dir, modelFile))
			if err != nil {
				return err
			}
			vocab, err := corpus.LoadVocab(filepath.Join(dir, embeddings.VocabFile))
			if err != nil {
				return err
			}
			if vocab.Size() != model.VocabSize() {
				return fmt.Errorf("vocabulary has %d words but model expects %d", vocab.Size(), model.VocabSize())
			}
			logger.FromContext(ctx).Debug("loaded model", "run", dir, "vocab_size", vocab.Size())

			sampler := newSampler(s)
			for range count {
				if err := ctx.Err(); err != nil {
					return err
				}
				fmt.Println(joinWords(generateSentence(model, vocab, sampler, int(s.maxLen))))
			}
			return nil
		},
	}
}
