package inference

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/weft-ml/weft/internal/kvcache"
	"github.com/weft-ml/weft/internal/logits"
)

// Stats summarizes one generation episode.
type Stats struct {
	PromptTokens    int
	TokensGenerated int
	TotalTokens     int
	Duration        time.Duration
	// TPS is total sequence length over wall-clock duration, the speed
	// figure the benchmark rows report.
	TPS float64
}

// Result is a finished generation episode.
type Result struct {
	Sequence []int32
	Stats    Stats
}

// Generator drives a CausalLM through the generic generation protocol:
// prepare inputs, forward, select the next token, repeat until a stop
// token or max length.
type Generator struct {
	Model   *CausalLM
	Sampler *logits.Sampler
	// StopTokens terminate generation when selected. The config's EOS id
	// is always honored; extra ids go here.
	StopTokens []int32
}

// Generate runs one full episode from the prompt. The returned sequence
// includes the prompt and, when generation stopped on one, the stop token.
func (g *Generator) Generate(ctx context.Context, inputIDs []int32) (Result, error) {
	if len(inputIDs) == 0 {
		return Result{}, fmt.Errorf("generate: empty prompt")
	}
	cfg := g.Model.Config()
	maxLength := cfg.MaxLength

	start := time.Now()
	seq := slices.Clone(inputIDs)
	var past *kvcache.Cache

	for len(seq) < maxLength {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		ids := g.Model.PrepareInputs(seq, past)
		res, err := g.Model.Forward(ctx, ids, past)
		if err != nil {
			return Result{}, fmt.Errorf("generate: %w", err)
		}
		past = res.Cache

		next := g.Sampler.Sample(res.Logits, seq)
		seq = append(seq, next)
		if g.isStop(next, len(seq), cfg) {
			break
		}
	}

	duration := time.Since(start)
	stats := Stats{
		PromptTokens:    len(inputIDs),
		TokensGenerated: len(seq) - len(inputIDs),
		TotalTokens:     len(seq),
		Duration:        duration,
	}
	if secs := duration.Seconds(); secs > 0 {
		stats.TPS = float64(stats.TotalTokens) / secs
	}
	return Result{Sequence: seq, Stats: stats}, nil
}

func (g *Generator) isStop(tok int32, seqLen int, cfg GenerationConfig) bool {
	if seqLen < cfg.MinLength {
		return false
	}
	if int(tok) == cfg.EosTokenID {
		return true
	}
	return slices.Contains(g.StopTokens, tok)
}

// NewGreedyGenerator wires a generator for deterministic decoding, the
// mode every benchmark runs in.
func NewGreedyGenerator(model *CausalLM) *Generator {
	return &Generator{
		Model:   model,
		Sampler: logits.NewSampler(logits.SamplerConfig{Temperature: 0}),
	}
}

// NewSampledGenerator wires a generator that samples according to the
// model's generation config.
func NewSampledGenerator(model *CausalLM) *Generator {
	cfg := model.Config()
	if !cfg.DoSample {
		return NewGreedyGenerator(model)
	}
	return &Generator{
		Model: model,
		Sampler: logits.NewSampler(logits.SamplerConfig{
			Seed:          cfg.Seed,
			Temperature:   float32(cfg.Temperature),
			TopK:          cfg.TopK,
			TopP:          float32(cfg.TopP),
			RepeatPenalty: float32(cfg.RepetitionPenalty),
		}),
	}
}
