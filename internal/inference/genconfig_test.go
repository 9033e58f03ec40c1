package inference

import "testing"

func TestNewGenerationConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewGenerationConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BosTokenID != 0 || cfg.PadTokenID != 1 || cfg.EosTokenID != 2 {
		t.Fatalf("unexpected special ids: %d %d %d", cfg.BosTokenID, cfg.PadTokenID, cfg.EosTokenID)
	}
	if cfg.MaxLength != 256 || cfg.NumBeams != 1 || cfg.TopK != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestNewGenerationConfigOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := NewGenerationConfig(map[string]any{
		"max_length":  512,
		"temperature": 0.7,
		"top_p":       0.9,
		"do_sample":   true,
		"seed":        8,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxLength != 512 || cfg.Temperature != 0.7 || cfg.TopP != 0.9 || !cfg.DoSample || cfg.Seed != 8 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestNewGenerationConfigRejectsUnknownKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		overrides map[string]any
	}{
		{name: "misspelled key", overrides: map[string]any{"max_lenght": 256}},
		{name: "free-form key", overrides: map[string]any{"custom_field": 1}},
		{name: "wrong type", overrides: map[string]any{"max_length": "lots"}},
		{name: "fractional int", overrides: map[string]any{"top_k": 1.5}},
		{name: "non-positive max length", overrides: map[string]any{"max_length": 0}},
		{name: "beam search unsupported", overrides: map[string]any{"num_beams": 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewGenerationConfig(tc.overrides); err == nil {
				t.Fatalf("expected %v to be rejected", tc.overrides)
			}
		})
	}
}

func TestNewGenerationConfigJSONNumbers(t *testing.T) {
	t.Parallel()

	// Overrides decoded from JSON arrive as float64.
	cfg, err := NewGenerationConfig(map[string]any{
		"max_length": float64(128),
		"top_k":      float64(10),
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxLength != 128 || cfg.TopK != 10 {
		t.Fatalf("json-number overrides not applied: %+v", cfg)
	}
}
