// Package logits picks the next token from a model's output distribution.
package logits

import (
	"math"
	"math/rand/v2"
)

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	Seed          uint64
	Temperature   float64
	TopK          int
	TopP          float64
	MinP          float64
	RepeatPenalty float64
	RepeatLastN   int
	// Exclude lists tokens that are never drawn, e.g. START or UNKNOWN.
	Exclude []int
}

type Sampler struct {
	rng       *rand.Rand
	cfg       SamplerConfig
	greedy    bool
	logits    []float64
	topIdx    []int
	topVal    []float64
	prob      []float64
	seenMark  []uint32
	seenEpoch uint32
	seenList  []int
}

// NewSampler returns a new sampler with the provided configuration. A
// non-positive temperature selects greedy decoding.
func NewSampler(cfg SamplerConfig) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 40
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	if cfg.RepeatPenalty <= 0 {
		cfg.RepeatPenalty = 1.0
	}
	if cfg.RepeatLastN <= 0 {
		cfg.RepeatLastN = 64
	}
	return &Sampler{
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		cfg:    cfg,
		greedy: greedy,
	}
}

// Sample draws a single index from the probability vector probs. probs is
// not modified. The steps are:
//
//  1. Convert to log-probabilities and drop excluded tokens.
//  2. Apply the repetition penalty to tokens seen in the last RepeatLastN
//     entries of recent.
//  3. Return the arg-max when greedy or when TopK==1, TopP>=1 and
//     Temperature==1.
//  4. Otherwise scale by the inverse temperature, shortlist the top k,
//     renormalise, apply Min-P and Top-P and draw from what is left.
func (s *Sampler) Sample(probs []float64, recent []int) int {
	if cap(s.logits) < len(probs) {
		s.logits = make([]float64, len(probs))
	}
	logits := s.logits[:len(probs)]
	for i, p := range probs {
		logits[i] = math.Log(p)
	}
	for _, id := range s.cfg.Exclude {
		if id >= 0 && id < len(logits) {
			logits[id] = math.Inf(-1)
		}
	}

	if s.cfg.RepeatPenalty > 1.0 && len(recent) > 0 {
		s.penalize(logits, recent)
	}

	if s.greedy || (s.cfg.TopK == 1 && s.cfg.TopP >= 1 && s.cfg.Temperature == 1) {
		return argmax(logits)
	}

	invTemp := 1.0 / s.cfg.Temperature
	k := min(s.cfg.TopK, len(logits))

	topIdx, topVal := s.topK(logits, k, invTemp)
	if len(topVal) == 0 {
		return 0
	}
	maxv := topVal[0]
	if math.IsInf(maxv, -1) {
		return topIdx[0]
	}

	if cap(s.prob) < len(topVal) {
		s.prob = make([]float64, len(topVal))
	}
	prob := s.prob[:len(topVal)]
	var sum float64
	for i := range topVal {
		e := math.Exp(topVal[i] - maxv)
		prob[i] = e
		sum += e
	}
	invSum := 1.0 / sum
	for i := range prob {
		prob[i] *= invSum
	}

	if s.cfg.MinP > 0 {
		threshold := prob[0] * s.cfg.MinP
		newLen := 0
		var newSum float64
		for i := range prob {
			if prob[i] >= threshold {
				prob[newLen] = prob[i]
				topIdx[newLen] = topIdx[i]
				newSum += prob[i]
				newLen++
			}
		}
		if newLen < len(prob) {
			prob = prob[:newLen]
			scale := 1.0 / newSum
			for i := range prob {
				prob[i] *= scale
			}
		}
	}

	cut := len(prob)
	if s.cfg.TopP < 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if c >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
	}

	r := s.rng.Float64()
	var c float64
	for i := range cut {
		c += prob[i]
		if r <= c {
			return topIdx[i]
		}
	}
	return topIdx[cut-1]
}

// penalize lowers the log-probability of every distinct token in the recent
// window by log(RepeatPenalty).
func (s *Sampler) penalize(logits []float64, recent []int) {
	start := max(len(recent)-s.cfg.RepeatLastN, 0)
	window := recent[start:]

	if len(s.seenMark) < len(logits) {
		s.seenMark = make([]uint32, len(logits))
	}
	s.seenEpoch++
	if s.seenEpoch == 0 {
		clear(s.seenMark)
		s.seenEpoch = 1
	}
	s.seenList = s.seenList[:0]
	for _, id := range window {
		if id >= 0 && id < len(logits) && s.seenMark[id] != s.seenEpoch {
			s.seenMark[id] = s.seenEpoch
			s.seenList = append(s.seenList, id)
		}
	}
	penalty := math.Log(s.cfg.RepeatPenalty)
	for _, id := range s.seenList {
		logits[id] -= penalty
	}
}

// argmax returns the index of the maximum value in the slice. If the slice is empty it panics.
func argmax(x []float64) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

// topK returns the indices and values of the k largest elements in logits, scaled by invTemp.
// The returned slices are ordered from largest to smallest by value.
// This is an O(V*K) algorithm suitable for small K.
func (s *Sampler) topK(logits []float64, k int, invTemp float64) ([]int, []float64) {
	if k <= 0 {
		return nil, nil
	}
	if cap(s.topIdx) < k+1 {
		s.topIdx = make([]int, 0, k+1)
		s.topVal = make([]float64, 0, k+1)
	}
	topIdx := s.topIdx[:0]
	topVal := s.topVal[:0]

	for i, l := range logits {
		v := l * invTemp

		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}

		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)

		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v

		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}
	if len(topIdx) == 0 {
		return []int{0}, []float64{0}
	}
	s.topIdx = topIdx
	s.topVal = topVal
	return topIdx, topVal
}
