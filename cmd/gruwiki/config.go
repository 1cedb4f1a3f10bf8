package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the gruwiki configuration file (~/.config/gruwiki/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	RunsDir   string `yaml:"runs_dir"`
	CorpusDir string `yaml:"corpus_dir"`

	// Corpus
	MaxFiles  *int `yaml:"max_files"`
	VocabSize *int `yaml:"vocab_size"`

	// Model
	EmbeddingDim *int   `yaml:"embedding_dim"`
	HiddenSizes  string `yaml:"hidden_sizes"`
	Activation   string `yaml:"activation"`

	// Training
	Epochs       *int     `yaml:"epochs"`
	LearningRate *float64 `yaml:"learning_rate"`
	Momentum     *float64 `yaml:"momentum"`
	Normalize    *bool    `yaml:"normalize"`
	Seed         *int64   `yaml:"seed"`

	// Sampling
	Temperature   *float64 `yaml:"temperature"`
	TopK          *int64   `yaml:"top_k"`
	TopP          *float64 `yaml:"top_p"`
	RepeatPenalty *float64 `yaml:"repeat_penalty"`
	MaxLen        *int64   `yaml:"max_len"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gruwiki", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

type configKey struct{}

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) Config {
	cfg, _ := ctx.Value(configKey{}).(Config)
	return cfg
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func applyRunsConfig(c *cli.Command, cfg Config) {
	if cfg.RunsDir != "" && !c.IsSet("runs-path") {
		runsPath = cfg.RunsDir
	}
}

// trainOptions collects the train command's flag destinations.
type trainOptions struct {
	corpusDir    string
	maxFiles     int
	vocabSize    int
	embeddingDim int
	hiddenSizes  string
	activation   string
	epochs       int
	learningRate float64
	momentum     float64
	normalize    bool
	seed         int64
}

// applyTrainConfig applies config file defaults to train command variables
// when the corresponding CLI flag was not explicitly set.
func applyTrainConfig(c *cli.Command, cfg Config, o *trainOptions) {
	applyRunsConfig(c, cfg)
	if cfg.CorpusDir != "" && !c.IsSet("corpus") {
		o.corpusDir = cfg.CorpusDir
	}
	if cfg.MaxFiles != nil && !c.IsSet("max-files") {
		o.maxFiles = *cfg.MaxFiles
	}
	if cfg.VocabSize != nil && !c.IsSet("vocab-size") {
		o.vocabSize = *cfg.VocabSize
	}
	if cfg.EmbeddingDim != nil && !c.IsSet("embedding-dim") {
		o.embeddingDim = *cfg.EmbeddingDim
	}
	if cfg.HiddenSizes != "" && !c.IsSet("hidden") {
		o.hiddenSizes = cfg.HiddenSizes
	}
	if cfg.Activation != "" && !c.IsSet("activation") {
		o.activation = cfg.Activation
	}
	if cfg.Epochs != nil && !c.IsSet("epochs") {
		o.epochs = *cfg.Epochs
	}
	if cfg.LearningRate != nil && !c.IsSet("learning-rate") && !c.IsSet("lr") {
		o.learningRate = *cfg.LearningRate
	}
	if cfg.Momentum != nil && !c.IsSet("momentum") && !c.IsSet("mu") {
		o.momentum = *cfg.Momentum
	}
	if cfg.Normalize != nil && !c.IsSet("normalize") {
		o.normalize = *cfg.Normalize
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		o.seed = *cfg.Seed
	}
}

// applySamplingConfig applies config file defaults to the sampling flags.
func applySamplingConfig(c *cli.Command, cfg Config, temp *float64, topK *int64, topP *float64, repeatPenalty *float64, maxLen *int64) {
	if cfg.Temperature != nil && !c.IsSet("temp") && !c.IsSet("temperature") && !c.IsSet("t") {
		*temp = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") {
		*topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") {
		*topP = *cfg.TopP
	}
	if cfg.RepeatPenalty != nil && !c.IsSet("repeat-penalty") {
		*repeatPenalty = *cfg.RepeatPenalty
	}
	if cfg.MaxLen != nil && !c.IsSet("max-len") {
		*maxLen = *cfg.MaxLen
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyRunsConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
