package gru

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samcharles93/gruwiki/internal/safetensors"
	"github.com/samcharles93/gruwiki/internal/tensor"
)

// Weights are persisted for generation only. Momentum buffers are not
// written, so a loaded model cannot continue a training run bit-for-bit.

func (m *Model) named() map[string]*Param {
	out := map[string]*Param{
		"We":      m.We,
		"head.Wo": m.Head.Wo,
		"head.bo": m.Head.Bo,
	}
	for k, c := range m.Encoder.Layers {
		for _, p := range c.Params() {
			out[fmt.Sprintf("layers.%d.%s", k, p.Name)] = p
		}
	}
	return out
}

// Save writes every parameter value to a safetensors file, with the model
// shape recorded in the header metadata.
func (m *Model) Save(path string) error {
	named := m.named()
	tensors := make([]safetensors.Tensor, 0, len(named))
	for name, p := range named {
		tensors = append(tensors, safetensors.Tensor{Name: name, Shape: p.Value.Shape(), Data: p.Value.Data})
	}
	sizes := make([]string, len(m.cfg.HiddenSizes))
	for i, s := range m.cfg.HiddenSizes {
		sizes[i] = strconv.Itoa(s)
	}
	meta := map[string]string{
		"embedding_dim": strconv.Itoa(m.cfg.EmbeddingDim),
		"hidden_sizes":  strings.Join(sizes, ","),
		"vocab_size":    strconv.Itoa(m.cfg.VocabSize),
		"activation":    m.cfg.Activation.Name,
	}
	return safetensors.Write(path, tensors, meta)
}

// Load rebuilds a model saved with Save.
func Load(path string) (*Model, error) {
	f, err := safetensors.Open(path)
	if err != nil {
		return nil, err
	}
	cfg, err := configFromMetadata(f.Metadata)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for name, p := range m.named() {
		data, info, err := f.ReadTensorF64(name)
		if err != nil {
			return nil, err
		}
		if len(info.Shape) != 2 || info.Shape[0] != p.Value.R || info.Shape[1] != p.Value.C {
			return nil, fmt.Errorf("%w: tensor %s has shape %v, want %v", ErrShape, name, info.Shape, p.Value.Shape())
		}
		p.Value = tensor.NewMatFromData(p.Value.R, p.Value.C, data)
	}
	return m, nil
}

func configFromMetadata(meta map[string]string) (Config, error) {
	var cfg Config
	var err error
	if cfg.EmbeddingDim, err = strconv.Atoi(meta["embedding_dim"]); err != nil {
		return cfg, fmt.Errorf("embedding_dim: %w", err)
	}
	if cfg.VocabSize, err = strconv.Atoi(meta["vocab_size"]); err != nil {
		return cfg, fmt.Errorf("vocab_size: %w", err)
	}
	for _, s := range strings.Split(meta["hidden_sizes"], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return cfg, fmt.Errorf("hidden_sizes: %w", err)
		}
		cfg.HiddenSizes = append(cfg.HiddenSizes, n)
	}
	if cfg.Activation, err = ActivationByName(meta["activation"]); err != nil {
		return cfg, err
	}
	return cfg, nil
}
