package inference

import (
	"context"
	"fmt"

	"github.com/weft-ml/weft/internal/backend"
	"github.com/weft-ml/weft/internal/logger"
	"github.com/weft-ml/weft/internal/tokenizer"
)

// Request is one text-generation call against an Engine. Zero values fall
// back to the engine's generation config.
type Request struct {
	Prompt      string
	MaxLength   int
	DoSample    bool
	Temperature float64
	TopK        int
	TopP        float64
	Seed        int64
}

// TextResult pairs the decoded text with the raw sequence and timing.
type TextResult struct {
	Text     string
	Sequence []int32
	Stats    Stats
}

// Engine owns one loaded model for its lifetime and serves generation
// requests against it. Each request is its own episode; the engine itself
// is safe to share because all per-episode state lives in the generator.
type Engine struct {
	stepper  backend.Stepper
	info     backend.Info
	tok      tokenizer.Tokenizer
	defaults GenerationConfig
	log      logger.Logger
}

// NewEngine assembles an engine from an opened backend.
func NewEngine(stepper backend.Stepper, info backend.Info, tok tokenizer.Tokenizer, defaults GenerationConfig, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Default()
	}
	return &Engine{stepper: stepper, info: info, tok: tok, defaults: defaults, log: log}
}

// Info describes the loaded model.
func (e *Engine) Info() backend.Info {
	return e.info
}

// Generate encodes the prompt, runs one generation episode and decodes
// the result. Failures anywhere in the stack abort the request; nothing
// is retried.
func (e *Engine) Generate(ctx context.Context, req Request) (*TextResult, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("generate: empty prompt")
	}

	cfg := e.defaults
	if req.MaxLength > 0 {
		cfg.MaxLength = req.MaxLength
	}
	if req.DoSample {
		cfg.DoSample = true
		if req.Temperature > 0 {
			cfg.Temperature = req.Temperature
		}
		if req.TopK > 0 {
			cfg.TopK = req.TopK
		}
		if req.TopP > 0 {
			cfg.TopP = req.TopP
		}
		cfg.Seed = req.Seed
	}

	ids, err := e.tok.Encode(req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	if len(ids) >= cfg.MaxLength {
		return nil, fmt.Errorf("prompt has %d tokens, max_length is %d", len(ids), cfg.MaxLength)
	}

	model := NewCausalLM(e.stepper, cfg)
	gen := NewSampledGenerator(model)
	res, err := gen.Generate(ctx, ids)
	if err != nil {
		return nil, err
	}

	text, err := e.tok.Decode(res.Sequence)
	if err != nil {
		return nil, fmt.Errorf("decode sequence: %w", err)
	}
	e.log.Debug("episode complete",
		"session", model.Session().ID(),
		"prompt_tokens", res.Stats.PromptTokens,
		"generated", res.Stats.TokensGenerated)

	return &TextResult{Text: text, Sequence: res.Sequence, Stats: res.Stats}, nil
}
