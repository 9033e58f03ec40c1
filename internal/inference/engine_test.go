package inference

import (
	"context"
	"strings"
	"testing"

	"github.com/weft-ml/weft/internal/backend"
	"github.com/weft-ml/weft/internal/tokenizer"
)

func newTestEngine(t *testing.T, model string) *Engine {
	t.Helper()
	stepper, info, err := backend.Open(context.Background(), model, backend.Options{})
	if err != nil {
		t.Fatal(err)
	}
	tok, err := tokenizer.NewByteLevel(info.VocabSize)
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(stepper, info, tok, DefaultGenerationConfig(), nil)
}

func TestEngineGenerateEndToEnd(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "gpt/toy")
	res, err := e.Generate(context.Background(), Request{
		Prompt:    "Paris is the capital city of",
		MaxLength: 256,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Terminates at EOS or exactly max length, whichever first, and the
	// reported count matches the returned sequence.
	if len(res.Sequence) > 256 {
		t.Fatalf("sequence length %d exceeds max length", len(res.Sequence))
	}
	if res.Stats.TotalTokens != len(res.Sequence) {
		t.Fatalf("stats report %d tokens, sequence has %d", res.Stats.TotalTokens, len(res.Sequence))
	}
	if !strings.HasPrefix(res.Text, "Paris is the capital city of") {
		t.Fatalf("decoded text lost the prompt: %q", res.Text)
	}
}

func TestEngineRejectsBadRequests(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "gpt/toy")

	if _, err := e.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected empty prompt to fail")
	}
	if _, err := e.Generate(context.Background(), Request{Prompt: "hello", MaxLength: 3}); err == nil {
		t.Fatal("expected prompt longer than max length to fail")
	}
}

func TestEngineSamplingIsSeeded(t *testing.T) {
	t.Parallel()

	run := func() []int32 {
		e := newTestEngine(t, "opt/toy")
		res, err := e.Generate(context.Background(), Request{
			Prompt:      "abc",
			MaxLength:   24,
			DoSample:    true,
			Temperature: 0.8,
			TopK:        20,
			Seed:        8,
		})
		if err != nil {
			t.Fatal(err)
		}
		return res.Sequence
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("seeded runs diverged in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded runs diverged at %d", i)
		}
	}
}
