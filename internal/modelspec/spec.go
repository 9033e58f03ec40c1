package modelspec

import (
	"fmt"
	"sort"
	"strings"
)

// Config describes one decoder-only model configuration. The values mirror
// the published OPT family table; they drive cache shapes, position offsets
// and the analytic FLOP formulas, not any actual forward-pass math.
type Config struct {
	Name string

	MaxSeqLen  int
	HiddenSize int
	NumLayers  int
	NumHeads   int
	VocabSize  int

	// Pad is the fixed position offset: position ids are computed as
	// step + Pad + 1 so that generated tokens line up with the padding
	// convention the checkpoints were trained with.
	Pad int

	BosTokenID int
	PadTokenID int
	EosTokenID int
}

// HeadDim returns the per-head projection width.
func (c Config) HeadDim() int {
	return c.HiddenSize / c.NumHeads
}

// ParameterCount returns the analytic parameter count for the
// configuration.
func (c Config) ParameterCount() int64 {
	return ParameterCount(c.NumLayers, c.HiddenSize, c.VocabSize)
}

// ParameterCount is the closed-form decoder parameter count: attention +
// mlp + layer norms per layer, plus the embedding table.
func ParameterCount(numLayers, hiddenSize, vocabSize int) int64 {
	h := int64(hiddenSize)
	perLayer := h*(3*h+1) + h*(h+1) + h*(4*h+1) + h*4*(h+1) + h*4
	return int64(numLayers)*perLayer + int64(vocabSize)*(h+1)
}

//	size:  seq,  hidden, layers, heads
var sizes = map[string]Config{
	"125m": {MaxSeqLen: 2048, HiddenSize: 768, NumLayers: 12, NumHeads: 12},
	"350m": {MaxSeqLen: 2048, HiddenSize: 1024, NumLayers: 24, NumHeads: 16},
	"1.3b": {MaxSeqLen: 2048, HiddenSize: 2048, NumLayers: 24, NumHeads: 32},
	"2.7b": {MaxSeqLen: 2048, HiddenSize: 2560, NumLayers: 32, NumHeads: 32},
	"6.7b": {MaxSeqLen: 2048, HiddenSize: 4096, NumLayers: 32, NumHeads: 32},
	"13b":  {MaxSeqLen: 2048, HiddenSize: 5120, NumLayers: 40, NumHeads: 40},
	"30b":  {MaxSeqLen: 2048, HiddenSize: 7168, NumLayers: 48, NumHeads: 56},
	"175b": {MaxSeqLen: 2048, HiddenSize: 12288, NumLayers: 96, NumHeads: 96},
}

const optVocabSize = 50272

// Lookup resolves a bare size name ("125m", "30b", ...) to its Config.
// Unknown names are a configuration error and abort the run.
func Lookup(size string) (Config, error) {
	key := strings.ToLower(strings.TrimSpace(size))
	cfg, ok := sizes[key]
	if !ok {
		return Config{}, fmt.Errorf("unknown model size %q (known: %s)", size, strings.Join(Sizes(), ", "))
	}
	cfg.Name = key
	cfg.VocabSize = optVocabSize
	cfg.Pad = 1
	cfg.BosTokenID = 0
	cfg.PadTokenID = 1
	cfg.EosTokenID = 2
	return cfg, nil
}

// Sizes returns all known size names, smallest parameter count first.
func Sizes() []string {
	out := make([]string, 0, len(sizes))
	for k := range sizes {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := Lookup(out[i])
		b, _ := Lookup(out[j])
		return a.ParameterCount() < b.ParameterCount()
	})
	return out
}
