package gru

import "github.com/samcharles93/gruwiki/internal/tensor"

// SampleFunc picks the next token from a distribution. history holds the
// tokens generated so far, START excluded.
type SampleFunc func(probs []float64, history []int) int

// GenerateConfig bounds a generation run.
type GenerateConfig struct {
	Start  int
	End    int
	MaxLen int
}

// Generate feeds Start and then each sampled token back into the network
// one step at a time until End is drawn or MaxLen tokens were produced.
// The returned slice contains neither sentinel.
func (m *Model) Generate(cfg GenerateConfig, sample SampleFunc) []int {
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 30
	}
	state := make([][]float64, len(m.Encoder.Layers))
	for k, c := range m.Encoder.Layers {
		state[k] = c.H0.Value.Data
	}

	out := make([]int, 0, cfg.MaxLen)
	tok := cfg.Start
	probs := make([]float64, m.cfg.VocabSize)
	for len(out) < cfg.MaxLen {
		x := m.We.Value.Row(tok)
		for k, c := range m.Encoder.Layers {
			state[k] = c.Step(x, state[k])
			x = state[k]
		}
		tensor.VecMat(probs, x, &m.Head.Wo.Value)
		tensor.Add(probs, m.Head.Bo.Value.Data)
		tensor.Softmax(probs)

		tok = sample(probs, out)
		if tok == cfg.End {
			break
		}
		out = append(out, tok)
	}
	return out
}
