package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/gruwiki/internal/chart"
	"github.com/samcharles93/gruwiki/internal/corpus"
	"github.com/samcharles93/gruwiki/internal/embeddings"
	"github.com/samcharles93/gruwiki/internal/gru"
	"github.com/samcharles93/gruwiki/internal/logger"
	"github.com/samcharles93/gruwiki/internal/train"
)

// runInfo is written next to the weights as run.yaml.
type runInfo struct {
	ID           string    `yaml:"id"`
	Corpus       string    `yaml:"corpus"`
	Files        int       `yaml:"max_files"`
	Sentences    int       `yaml:"sentences"`
	VocabSize    int       `yaml:"vocab_size"`
	EmbeddingDim int       `yaml:"embedding_dim"`
	HiddenSizes  []int     `yaml:"hidden_sizes"`
	Activation   string    `yaml:"activation"`
	LearningRate float64   `yaml:"learning_rate"`
	Momentum     float64   `yaml:"momentum"`
	Normalize    bool      `yaml:"normalize"`
	Seed         int64     `yaml:"seed"`
	Started      time.Time `yaml:"started"`
	Finished     time.Time `yaml:"finished"`
	Epochs       []epoch   `yaml:"epochs"`
}

type epoch struct {
	Cost        float64       `yaml:"cost"`
	CorrectRate float64       `yaml:"correct_rate"`
	Duration    time.Duration `yaml:"duration"`
}

func trainCmd() *cli.Command {
	defaults := train.DefaultConfig()
	var (
		o       trainOptions
		samples int
		noPlot  bool
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Train a GRU language model and save its word embeddings",
		Flags: append(runFlags(),
			&cli.StringFlag{
				Name:        "corpus",
				Aliases:     []string{"c"},
				Usage:       "directory containing enwiki* text files",
				Destination: &o.corpusDir,
			},
			&cli.IntFlag{
				Name:        "max-files",
				Usage:       "number of corpus files to read (0 = all)",
				Value:       32,
				Destination: &o.maxFiles,
			},
			&cli.IntFlag{
				Name:        "vocab-size",
				Usage:       "number of most frequent words to keep",
				Value:       2000,
				Destination: &o.vocabSize,
			},
			&cli.IntFlag{
				Name:        "embedding-dim",
				Aliases:     []string{"d"},
				Usage:       "word embedding width",
				Value:       30,
				Destination: &o.embeddingDim,
			},
			&cli.StringFlag{
				Name:        "hidden",
				Usage:       "comma separated GRU layer widths",
				Value:       "30",
				Destination: &o.hiddenSizes,
			},
			&cli.StringFlag{
				Name:        "activation",
				Usage:       "candidate state activation (relu, tanh, sigmoid)",
				Value:       "relu",
				Destination: &o.activation,
			},
			&cli.IntFlag{
				Name:        "epochs",
				Aliases:     []string{"e"},
				Usage:       "passes over the corpus",
				Value:       defaults.Epochs,
				Destination: &o.epochs,
			},
			&cli.Float64Flag{
				Name:        "learning-rate",
				Aliases:     []string{"lr"},
				Usage:       "step size",
				Value:       defaults.LearningRate,
				Destination: &o.learningRate,
			},
			&cli.Float64Flag{
				Name:        "momentum",
				Aliases:     []string{"mu"},
				Usage:       "momentum coefficient",
				Value:       defaults.Momentum,
				Destination: &o.momentum,
			},
			&cli.BoolFlag{
				Name:        "normalize",
				Usage:       "divide each embedding row by its sum after every update",
				Value:       defaults.Normalize,
				Destination: &o.normalize,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "random seed for initialisation and shuffling",
				Destination: &o.seed,
			},
			&cli.IntFlag{
				Name:        "samples",
				Usage:       "sentences to generate after training",
				Destination: &samples,
			},
			&cli.BoolFlag{
				Name:        "no-plot",
				Usage:       "skip writing costs.png",
				Destination: &noPlot,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyTrainConfig(cmd, configFrom(ctx), &o)
			if o.corpusDir == "" {
				return errors.New("--corpus is required")
			}
			sizes, err := parseSizes(o.hiddenSizes)
			if err != nil {
				return err
			}
			act, err := gru.ActivationByName(o.activation)
			if err != nil {
				return err
			}

			dir, err := newRunDir(runPath, runsPath)
			if err != nil {
				return fmt.Errorf("create run directory: %w", err)
			}
			info := runInfo{
				ID:           filepath.Base(dir),
				Corpus:       o.corpusDir,
				Files:        o.maxFiles,
				EmbeddingDim: o.embeddingDim,
				HiddenSizes:  sizes,
				Activation:   act.Name,
				LearningRate: o.learningRate,
				Momentum:     o.momentum,
				Normalize:    o.normalize,
				Seed:         o.seed,
				Started:      time.Now().UTC(),
			}
			log := logger.FromContext(ctx).With("run", info.ID)
			ctx = logger.WithContext(ctx, log)

			data, err := corpus.LoadDir(o.corpusDir, corpus.Options{
				MaxFiles:  o.maxFiles,
				VocabSize: o.vocabSize,
				KeepWords: corpus.DefaultKeepWords,
			})
			if err != nil {
				return err
			}
			info.Sentences = len(data.Sentences)
			info.VocabSize = data.Vocab.Size()
			log.Info("finished retrieving data", "vocab_size", info.VocabSize, "sentences", info.Sentences)

			model, err := gru.New(gru.Config{
				EmbeddingDim: o.embeddingDim,
				HiddenSizes:  sizes,
				VocabSize:    data.Vocab.Size(),
				Activation:   act,
				Seed:         uint64(o.seed),
			})
			if err != nil {
				return err
			}

			cfg := defaults
			cfg.LearningRate = o.learningRate
			cfg.Momentum = o.momentum
			cfg.Epochs = o.epochs
			cfg.Normalize = o.normalize
			cfg.Seed = uint64(o.seed)
			var opts []train.Option
			if logger.WriterIsTerminal(os.Stderr) {
				opts = append(opts, train.WithProgress(os.Stderr))
			}
			stats, err := train.New(model, cfg, opts...).Fit(ctx, data.Sentences)
			if err != nil {
				return err
			}
			info.Finished = time.Now().UTC()

			if err := saveRun(dir, model, data.Vocab, stats, &info, !noPlot); err != nil {
				return err
			}
			log.Info("saved run", "path", dir)

			if samples > 0 {
				sampler := newSampler(defaultSampling())
				for range samples {
					words := generateSentence(model, data.Vocab, sampler, 0)
					fmt.Println(joinWords(words))
				}
			}
			return nil
		},
	}
}

func saveRun(dir string, model *gru.Model, vocab *corpus.Vocab, stats []train.EpochStats, info *runInfo, plot bool) error {
	if err := embeddings.SaveDir(dir, model.Embeddings(), vocab); err != nil {
		return err
	}
	if err := model.Save(filepath.Join(dir, modelFile)); err != nil {
		return fmt.Errorf("write model: %w", err)
	}

	costs := make([]float64, len(stats))
	for i, s := range stats {
		costs[i] = s.Cost
		info.Epochs = append(info.Epochs, epoch{Cost: s.Cost, CorrectRate: s.Accuracy(), Duration: s.Duration})
	}
	if plot && len(costs) > 0 {
		if err := chart.Costs(filepath.Join(dir, "costs.png"), "Training cost", costs); err != nil {
			return err
		}
	}

	b, err := yaml.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "run.yaml"), b, 0o644)
}
