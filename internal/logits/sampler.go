// Package logits selects the next token from a model's output
// distribution. Greedy selection is the default for the benchmark drivers;
// the sampling path exists for the serve surface.
package logits

import (
	"math"
	"math/rand"
	"sort"
)

// SamplerConfig configures a Sampler. Temperature <= 0 selects greedy
// decoding regardless of the other knobs.
type SamplerConfig struct {
	Seed          int64
	Temperature   float32
	TopK          int
	TopP          float32
	RepeatPenalty float32
	RepeatLastN   int
}

// Sampler draws token ids from logits vectors. It owns its RNG so two
// samplers with the same seed produce identical streams.
type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool
}

// NewSampler returns a sampler with the provided configuration,
// normalizing out-of-range knobs to their neutral values.
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
		cfg.RepeatPenalty = 1
	}
	if cfg.RepeatLastN <= 0 {
		cfg.RepeatLastN = 64
	}
	return &Sampler{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		greedy: greedy,
	}
}

// Greedy reports whether the sampler always returns the argmax.
func (s *Sampler) Greedy() bool {
	return s.greedy
}

// Sample draws one token id. recent is the tail of the sequence so far and
// feeds the repetition penalty; it may be nil. The logits slice is mutated
// when a penalty applies.
func (s *Sampler) Sample(logits []float32, recent []int32) int32 {
	if s.cfg.RepeatPenalty > 1 && len(recent) > 0 {
		start := len(recent) - s.cfg.RepeatLastN
		if start < 0 {
			start = 0
		}
		for _, id := range recent[start:] {
			if id < 0 || int(id) >= len(logits) {
				continue
			}
			if logits[id] > 0 {
				logits[id] /= s.cfg.RepeatPenalty
			} else {
				logits[id] *= s.cfg.RepeatPenalty
			}
		}
	}

	if s.greedy {
		return argmax(logits)
	}

	k := s.cfg.TopK
	if k > len(logits) {
		k = len(logits)
	}
	idx := make([]int32, len(logits))
	for i := range idx {
		idx[i] = int32(i)
	}
	sort.Slice(idx, func(a, b int) bool { return logits[idx[a]] > logits[idx[b]] })
	idx = idx[:k]

	// Softmax over the shortlist, anchored at the max for stability.
	invTemp := float64(1 / s.cfg.Temperature)
	maxLogit := float64(logits[idx[0]])
	probs := make([]float64, k)
	var sum float64
	for i, id := range idx {
		p := math.Exp((float64(logits[id]) - maxLogit) * invTemp)
		probs[i] = p
		sum += p
	}

	// Nucleus truncation on the normalized shortlist.
	if s.cfg.TopP < 1 {
		var cum float64
		cut := k
		for i, p := range probs {
			cum += p / sum
			if cum >= float64(s.cfg.TopP) {
				cut = i + 1
				break
			}
		}
		idx = idx[:cut]
		probs = probs[:cut]
		sum = 0
		for _, p := range probs {
			sum += p
		}
	}

	r := s.rng.Float64() * sum
	for i, p := range probs {
		r -= p
		if r <= 0 {
			return idx[i]
		}
	}
	return idx[len(idx)-1]
}

func argmax(logits []float32) int32 {
	best := int32(0)
	bestVal := float32(math.Inf(-1))
	for i, v := range logits {
		if v > bestVal {
			bestVal = v
			best = int32(i)
		}
	}
	return best
}
