package modelspec

import (
	"strings"
	"testing"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		size       string
		wantHidden int
		wantLayers int
		wantErr    bool
	}{
		{name: "smallest", size: "125m", wantHidden: 768, wantLayers: 12},
		{name: "case and space insensitive", size: " 30B ", wantHidden: 7168, wantLayers: 48},
		{name: "largest", size: "175b", wantHidden: 12288, wantLayers: 96},
		{name: "unknown", size: "9000b", wantErr: true},
		{name: "empty", size: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Lookup(tc.size)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got none", tc.size)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q): %v", tc.size, err)
			}
			if cfg.HiddenSize != tc.wantHidden || cfg.NumLayers != tc.wantLayers {
				t.Fatalf("got hidden=%d layers=%d, want hidden=%d layers=%d",
					cfg.HiddenSize, cfg.NumLayers, tc.wantHidden, tc.wantLayers)
			}
			if cfg.VocabSize != 50272 || cfg.MaxSeqLen != 2048 {
				t.Fatalf("unexpected vocab/seq: %d/%d", cfg.VocabSize, cfg.MaxSeqLen)
			}
			if cfg.BosTokenID != 0 || cfg.PadTokenID != 1 || cfg.EosTokenID != 2 {
				t.Fatalf("unexpected special tokens: %d %d %d", cfg.BosTokenID, cfg.PadTokenID, cfg.EosTokenID)
			}
		})
	}
}

func TestSizesOrdering(t *testing.T) {
	t.Parallel()

	got := Sizes()
	if len(got) != 8 {
		t.Fatalf("expected 8 sizes, got %d: %s", len(got), strings.Join(got, ","))
	}
	var prev int64
	for _, size := range got {
		cfg, err := Lookup(size)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", size, err)
		}
		if cfg.ParameterCount() < prev {
			t.Fatalf("sizes not ordered by parameter count at %q", size)
		}
		prev = cfg.ParameterCount()
	}
}

func TestParameterCount(t *testing.T) {
	t.Parallel()

	cfg, err := Lookup("125m")
	if err != nil {
		t.Fatal(err)
	}
	// 12 layers at h=768 plus a 50272-row embedding table lands in the
	// 120-180M range the size name advertises.
	count := cfg.ParameterCount()
	if count < 100_000_000 || count > 200_000_000 {
		t.Fatalf("parameter count %d outside expected range for 125m", count)
	}
}

func TestHeadDim(t *testing.T) {
	t.Parallel()

	cases := []struct {
		size string
		want int
	}{
		{size: "125m", want: 64},
		{size: "30b", want: 128},
		{size: "175b", want: 128},
	}
	for _, tc := range cases {
		t.Run(tc.size, func(t *testing.T) {
			t.Parallel()
			cfg, err := Lookup(tc.size)
			if err != nil {
				t.Fatal(err)
			}
			if got := cfg.HeadDim(); got != tc.want {
				t.Fatalf("got head dim %d, want %d", got, tc.want)
			}
		})
	}
}
