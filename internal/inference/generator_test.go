package inference

import (
	"context"
	"testing"

	"github.com/weft-ml/weft/internal/backend"
	"github.com/weft-ml/weft/internal/kvcache"
	"github.com/weft-ml/weft/internal/tokenizer"
)

func TestGreedyGenerateTerminatesAtMaxLength(t *testing.T) {
	t.Parallel()

	cfg := DefaultGenerationConfig()
	cfg.MaxLength = 24
	model := NewCausalLM(openToy(t, "gpt/toy"), cfg)
	gen := NewGreedyGenerator(model)

	tok, err := tokenizer.NewByteLevel(512)
	if err != nil {
		t.Fatal(err)
	}
	prompt, err := tok.Encode("Paris is")
	if err != nil {
		t.Fatal(err)
	}

	res, err := gen.Generate(context.Background(), prompt)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Sequence) > cfg.MaxLength {
		t.Fatalf("sequence length %d exceeds max length %d", len(res.Sequence), cfg.MaxLength)
	}
	if len(res.Sequence) < cfg.MaxLength && int(res.Sequence[len(res.Sequence)-1]) != cfg.EosTokenID {
		t.Fatalf("early stop without EOS: last token %d", res.Sequence[len(res.Sequence)-1])
	}
	if res.Stats.TotalTokens != len(res.Sequence) {
		t.Fatalf("reported %d tokens, sequence has %d", res.Stats.TotalTokens, len(res.Sequence))
	}
	if res.Stats.TokensGenerated != len(res.Sequence)-len(prompt) {
		t.Fatalf("generated count %d inconsistent with lengths", res.Stats.TokensGenerated)
	}
}

func TestGreedyGenerateIsDeterministic(t *testing.T) {
	t.Parallel()

	run := func() []int32 {
		cfg := DefaultGenerationConfig()
		cfg.MaxLength = 32
		gen := NewGreedyGenerator(NewCausalLM(openToy(t, "opt/toy"), cfg))
		res, err := gen.Generate(context.Background(), []int32{10, 20, 30})
		if err != nil {
			t.Fatal(err)
		}
		return res.Sequence
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("token %d differs: %d vs %d", i, a[i], b[i])
		}
	}
}

// eosStepper forces the EOS logit to dominate after a fixed number of
// generated positions.
type eosStepper struct {
	inner    backend.Stepper
	eosAfter int
	eosID    int32
	calls    int
}

func (s *eosStepper) Name() string             { return "eos" }
func (s *eosStepper) NewCache() *kvcache.Cache { return s.inner.NewCache() }
func (s *eosStepper) Step(ctx context.Context, sess *backend.Session, token int32, cache *kvcache.Cache, opts backend.StepOptions) (backend.StepResult, error) {
	res, err := s.inner.Step(ctx, sess, token, cache, opts)
	if err != nil {
		return res, err
	}
	s.calls++
	if s.calls >= s.eosAfter {
		var maxVal float32
		for _, v := range res.Logits {
			if v > maxVal {
				maxVal = v
			}
		}
		res.Logits[s.eosID] = maxVal + 1
	}
	return res, nil
}

func TestGenerateStopsOnEOS(t *testing.T) {
	t.Parallel()

	cfg := DefaultGenerationConfig()
	cfg.MaxLength = 256
	prompt := []int32{10, 20, 30}
	s := &eosStepper{inner: openToy(t, "gpt/toy"), eosAfter: len(prompt) + 5, eosID: int32(cfg.EosTokenID)}
	gen := NewGreedyGenerator(NewCausalLM(s, cfg))

	res, err := gen.Generate(context.Background(), prompt)
	if err != nil {
		t.Fatal(err)
	}
	last := res.Sequence[len(res.Sequence)-1]
	if int(last) != cfg.EosTokenID {
		t.Fatalf("expected EOS terminator, got %d", last)
	}
	if len(res.Sequence) >= cfg.MaxLength {
		t.Fatal("EOS stop did not shorten the sequence")
	}
	if res.Stats.TokensGenerated != 6 {
		t.Fatalf("generated %d tokens, want 6 (5 regular + EOS)", res.Stats.TokensGenerated)
	}
}

func TestGenerateHonorsMinLength(t *testing.T) {
	t.Parallel()

	cfg := DefaultGenerationConfig()
	cfg.MaxLength = 32
	cfg.MinLength = 16
	prompt := []int32{10, 20, 30}
	// EOS dominates from the first generated token; min length must
	// override it until the sequence is long enough.
	s := &eosStepper{inner: openToy(t, "gpt/toy"), eosAfter: 1, eosID: int32(cfg.EosTokenID)}
	gen := NewGreedyGenerator(NewCausalLM(s, cfg))

	res, err := gen.Generate(context.Background(), prompt)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Sequence) < cfg.MinLength {
		t.Fatalf("sequence length %d below min length %d", len(res.Sequence), cfg.MinLength)
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	t.Parallel()

	gen := NewGreedyGenerator(NewCausalLM(openToy(t, "gpt/toy"), DefaultGenerationConfig()))
	if _, err := gen.Generate(context.Background(), nil); err == nil {
		t.Fatal("expected empty prompt to fail")
	}
}

func TestGenerateCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := NewGreedyGenerator(NewCausalLM(openToy(t, "gpt/toy"), DefaultGenerationConfig()))
	if _, err := gen.Generate(ctx, []int32{10, 20}); err == nil {
		t.Fatal("expected canceled context to abort generation")
	}
}
