package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"github.com/samcharles93/gruwiki/internal/gru"
	"github.com/samcharles93/gruwiki/internal/logger"
	"github.com/samcharles93/gruwiki/internal/tensor"
)

// Config holds the optimisation settings for a run.
type Config struct {
	LearningRate float64
	Momentum     float64
	Epochs       int
	// Normalize divides every embedding row by its own sum after each update.
	Normalize bool
	// Seed drives the epoch shuffles and the full-sentence branch.
	Seed uint64
	// EndProbability is the chance of training on the whole sentence with
	// END appended even when it is longer than one token.
	EndProbability float64
	// ProgressEvery controls how often the running accuracy is reported.
	ProgressEvery int
}

// DefaultConfig holds the settings used to train on the wiki corpus: a small
// step size, heavy momentum and row renormalisation.
func DefaultConfig() Config {
	return Config{
		LearningRate:   1e-5,
		Momentum:       0.99,
		Epochs:         10,
		Normalize:      true,
		EndProbability: 0.01,
		ProgressEvery:  200,
	}
}

// EpochStats summarises one pass over the training set.
type EpochStats struct {
	Epoch    int
	Cost     float64
	Correct  int
	Total    int
	Duration time.Duration
}

// Accuracy is the fraction of target tokens predicted by arg-max.
func (s EpochStats) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// Trainer runs momentum SGD over a model, one sentence per step.
type Trainer struct {
	model    *gru.Model
	cfg      Config
	log      logger.Logger
	rng      *rand.Rand
	progress io.Writer
}

// Option customises a Trainer.
type Option func(*Trainer)

// WithProgress writes a carriage-return progress line to w.
func WithProgress(w io.Writer) Option {
	return func(t *Trainer) { t.progress = w }
}

// WithLogger overrides the logger taken from the context.
func WithLogger(l logger.Logger) Option {
	return func(t *Trainer) { t.log = l }
}

func New(model *gru.Model, cfg Config, opts ...Option) *Trainer {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 200
	}
	t := &Trainer{
		model: model,
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fit trains for cfg.Epochs passes over sentences. The order is reshuffled
// at the start of every epoch; the caller's slice is not modified. The first
// failing step aborts the run.
func (t *Trainer) Fit(ctx context.Context, sentences [][]int) ([]EpochStats, error) {
	log := t.log
	if log == nil {
		log = logger.FromContext(ctx)
	}

	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	n := len(sentences)
	stats := make([]EpochStats, 0, t.cfg.Epochs)

	for epoch := range t.cfg.Epochs {
		start := time.Now()
		t.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		es := EpochStats{Epoch: epoch}
		for j, idx := range order {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			full := t.rng.Float64() < t.cfg.EndProbability
			input, target := Example(sentences[idx], full)
			es.Total += len(target)

			pass, err := t.Step(input, target)
			if err != nil {
				var se *StepError
				if errors.As(err, &se) {
					log.Error("training step failed",
						"input_len", se.SeqLen,
						"dist_shape", fmt.Sprint(se.DistShape),
						"pred_shape", fmt.Sprint(se.PredShape),
						"error", se.Err)
				}
				return stats, err
			}
			es.Cost += pass.Cost
			for k, p := range pass.Pred {
				if p == target[k] {
					es.Correct++
				}
			}
			if j%t.cfg.ProgressEvery == 0 {
				t.report(log, j, n, es)
			}
		}
		es.Duration = time.Since(start)
		if t.progress != nil {
			_, _ = fmt.Fprintln(t.progress)
		}
		log.Info("epoch complete",
			"epoch", epoch,
			"cost", es.Cost,
			"correct_rate", es.Accuracy(),
			"duration", es.Duration)
		stats = append(stats, es)
	}
	return stats, nil
}

func (t *Trainer) report(log logger.Logger, j, n int, es EpochStats) {
	if t.progress != nil {
		_, _ = fmt.Fprintf(t.progress, "\rj/N: %d/%d correct rate so far: %f", j, n, es.Accuracy())
		return
	}
	log.Debug("progress", "j", j, "n", n, "correct_rate", es.Accuracy())
}

// Step runs forward and backward for one example and applies the momentum
// update. Errors raised before the update leave the parameters untouched.
// A renormalisation failure happens after the momentum step, so We is left
// partly updated; the run is expected to stop there.
func (t *Trainer) Step(input, target []int) (*gru.Pass, error) {
	pass, err := t.model.Backprop(input, target)
	if err == nil && (math.IsNaN(pass.Cost) || math.IsInf(pass.Cost, 0)) {
		err = &NumericalInstabilityError{Stage: "cost", SeqLen: len(input), Value: pass.Cost}
	}
	if err == nil {
		err = t.update(len(input))
	}
	if err != nil {
		return nil, t.diagnose(input, err)
	}
	return pass, nil
}

// diagnose attaches the shapes the model yields for input to err.
func (t *Trainer) diagnose(input []int, err error) error {
	se := &StepError{SeqLen: len(input), Err: err}
	probs, pred, perr := t.model.Predict(input)
	if perr == nil {
		v := 0
		if len(probs) > 0 {
			v = len(probs[0])
		}
		se.DistShape = []int{len(probs), v}
		se.PredShape = []int{len(pred)}
	}
	return se
}

func (t *Trainer) update(seqLen int) error {
	mu, lr := t.cfg.Momentum, t.cfg.LearningRate
	for _, p := range t.model.Params() {
		momentum(p, mu, lr)
	}
	we := t.model.We
	momentum(we, mu, lr)
	if !t.cfg.Normalize {
		return nil
	}
	return normalizeRows(&we.Value, seqLen)
}

// momentum applies v ← μv − lr·g, p ← p + v.
func momentum(p *gru.Param, mu, lr float64) {
	v, g, w := p.Velocity.Data, p.Grad.Data, p.Value.Data
	for i := range v {
		v[i] = mu*v[i] - lr*g[i]
		w[i] += v[i]
	}
}

// normalizeRows divides each row by its raw sum. A zero or non-finite sum
// is reported instead of silently producing Inf/NaN rows.
func normalizeRows(m *tensor.Mat, seqLen int) error {
	for i := range m.R {
		row := m.Row(i)
		var sum float64
		for _, v := range row {
			sum += v
		}
		if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
			return &NumericalInstabilityError{Stage: fmt.Sprintf("embedding row %d normalization", i), SeqLen: seqLen, Value: sum}
		}
		for j := range row {
			row[j] /= sum
		}
	}
	return nil
}
