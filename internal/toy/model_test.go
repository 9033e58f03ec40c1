package toy

import (
	"math"
	"testing"
)

func testConfig() Config {
	return Config{Vocab: 512, Hidden: 16, Layers: 2, MaxSeq: 64, Seed: 8}
}

func TestForwardIsDeterministic(t *testing.T) {
	t.Parallel()

	run := func() []float32 {
		m, err := New(testConfig())
		if err != nil {
			t.Fatal(err)
		}
		cache := m.NewCache()
		var last []float32
		for _, tok := range []int32{5, 9, 200} {
			out, err := m.Forward(tok, cache, false, false)
			if err != nil {
				t.Fatal(err)
			}
			last = out.Logits
		}
		return last
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("logit %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestLogitsDependOnCacheHistory(t *testing.T) {
	t.Parallel()

	m, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	// Same final token, different histories: the cache must change the
	// distribution.
	a := m.NewCache()
	for _, tok := range []int32{5, 9} {
		if _, err := m.Forward(tok, a, false, false); err != nil {
			t.Fatal(err)
		}
	}
	outA, err := m.Forward(42, a, false, false)
	if err != nil {
		t.Fatal(err)
	}

	b := m.NewCache()
	for _, tok := range []int32{300, 301} {
		if _, err := m.Forward(tok, b, false, false); err != nil {
			t.Fatal(err)
		}
	}
	outB, err := m.Forward(42, b, false, false)
	if err != nil {
		t.Fatal(err)
	}

	same := true
	for i := range outA.Logits {
		if outA.Logits[i] != outB.Logits[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("logits ignored the cache history")
	}
}

func TestForwardAdvancesCache(t *testing.T) {
	t.Parallel()

	m, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	cache := m.NewCache()
	for k := 1; k <= 5; k++ {
		if _, err := m.Forward(int32(k), cache, false, false); err != nil {
			t.Fatal(err)
		}
		if cache.Step != k {
			t.Fatalf("after %d tokens cache step is %d", k, cache.Step)
		}
	}
}

func TestDiagnosticsOnlyOnRequest(t *testing.T) {
	t.Parallel()

	m, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	cache := m.NewCache()
	out, err := m.Forward(7, cache, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.HiddenStates != nil || out.Attentions != nil {
		t.Fatal("diagnostics returned without being requested")
	}

	out, err = m.Forward(8, cache, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.HiddenStates) != 2 || len(out.Attentions) != 2 {
		t.Fatalf("expected per-layer diagnostics, got %d/%d", len(out.HiddenStates), len(out.Attentions))
	}
	if len(out.Attentions[0]) != cache.Step {
		t.Fatalf("attention row covers %d positions, want %d", len(out.Attentions[0]), cache.Step)
	}
}

func TestMaskNormalizeChangesFamily(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	plain, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.MaskNormalize = true
	masked, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ca, cb := plain.NewCache(), masked.NewCache()
	for _, tok := range []int32{5, 9} {
		if _, err := plain.Forward(tok, ca, false, false); err != nil {
			t.Fatal(err)
		}
		if _, err := masked.Forward(tok, cb, false, false); err != nil {
			t.Fatal(err)
		}
	}
	outA, _ := plain.Forward(42, ca, false, false)
	outB, _ := masked.Forward(42, cb, false, false)
	var diff float64
	for i := range outA.Logits {
		diff += math.Abs(float64(outA.Logits[i] - outB.Logits[i]))
	}
	if diff == 0 {
		t.Fatal("mask normalization had no effect")
	}
}

func TestForwardRejectsBadInput(t *testing.T) {
	t.Parallel()

	m, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	cache := m.NewCache()
	if _, err := m.Forward(int32(testConfig().Vocab), cache, false, false); err == nil {
		t.Fatal("expected out-of-vocab token to fail")
	}
	other, err := New(Config{Vocab: 512, Hidden: 8, Layers: 2, MaxSeq: 64, Seed: 8})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Forward(1, other.NewCache(), false, false); err == nil {
		t.Fatal("expected cache shape mismatch to fail")
	}
}
