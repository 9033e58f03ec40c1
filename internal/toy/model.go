// Package toy implements a tiny deterministic decoder used by the local
// single-device backends. It is not a trained network: weights are hashed
// from a seed, and the "attention" reads every cached position, which is
// exactly what makes it useful for exercising cache semantics end to end.
package toy

import (
	"fmt"

	"github.com/weft-ml/weft/internal/kvcache"
)

// Config fixes the geometry of a toy model. Vocab must cover the
// byte-level tokenizer range.
type Config struct {
	Vocab  int
	Hidden int
	Layers int
	MaxSeq int
	Seed   int64

	// MaskNormalize divides the accumulated state by the visible context
	// length, mirroring model families that build an explicit attention
	// mask from the past length.
	MaskNormalize bool
}

// Model scores one token at a time against the cache built so far.
type Model struct {
	cfg Config
}

// New returns a model for the given config.
func New(cfg Config) (*Model, error) {
	if cfg.Vocab <= 0 || cfg.Hidden <= 0 || cfg.Layers <= 0 || cfg.MaxSeq <= 0 {
		return nil, fmt.Errorf("toy: invalid config %+v", cfg)
	}
	return &Model{cfg: cfg}, nil
}

// Config returns the model geometry.
func (m *Model) Config() Config {
	return m.cfg
}

// NewCache returns an empty cache shaped for this model.
func (m *Model) NewCache() *kvcache.Cache {
	return kvcache.New(m.cfg.Layers, m.cfg.MaxSeq, m.cfg.Hidden)
}

// Output carries the results of a single decode step.
type Output struct {
	// Logits for the new position, length Vocab.
	Logits []float32
	// HiddenStates is one vector per layer, present only on request.
	HiddenStates [][]float32
	// Attentions is one weight row per layer over the visible context,
	// present only on request.
	Attentions [][]float32
}

// Forward consumes exactly one token, appends its key/value rows to the
// cache at the cache's fill pointer, and returns logits for the next
// position. The caller threads the cache; the model holds no state.
func (m *Model) Forward(token int32, cache *kvcache.Cache, wantHidden, wantAttn bool) (Output, error) {
	if err := cache.Validate(m.cfg.Layers, m.cfg.MaxSeq, m.cfg.Hidden); err != nil {
		return Output{}, err
	}
	if token < 0 || int(token) >= m.cfg.Vocab {
		return Output{}, fmt.Errorf("toy: token %d outside vocabulary of %d", token, m.cfg.Vocab)
	}

	pos := cache.Step
	key := make([]float32, m.cfg.Hidden)
	val := make([]float32, m.cfg.Hidden)
	for l := 0; l < m.cfg.Layers; l++ {
		for i := 0; i < m.cfg.Hidden; i++ {
			key[i] = m.unit(uint64(l), uint64(token)+7, uint64(i))
			val[i] = m.unit(uint64(l)+31, uint64(pos), uint64(i))
		}
		if err := cache.Put(l, key, val); err != nil {
			return Output{}, err
		}
	}
	if err := cache.Advance(); err != nil {
		return Output{}, err
	}

	out := Output{}
	if wantHidden {
		out.HiddenStates = make([][]float32, m.cfg.Layers)
	}
	if wantAttn {
		out.Attentions = make([][]float32, m.cfg.Layers)
	}

	// The hidden state is a sum over every cached position, so a wrong or
	// stale cache shows up directly in the logits.
	hidden := make([]float32, m.cfg.Hidden)
	visible := cache.Step
	for l := 0; l < m.cfg.Layers; l++ {
		layerHidden := hidden
		if wantHidden {
			layerHidden = make([]float32, m.cfg.Hidden)
		}
		for q := 0; q < visible; q++ {
			k, v, err := cache.Row(l, q)
			if err != nil {
				return Output{}, err
			}
			for i := 0; i < m.cfg.Hidden; i++ {
				layerHidden[i] += k[i] * v[i]
			}
		}
		if m.cfg.MaskNormalize {
			inv := 1 / float32(visible)
			for i := range layerHidden {
				layerHidden[i] *= inv
			}
		}
		if wantHidden {
			out.HiddenStates[l] = layerHidden
			for i := range hidden {
				hidden[i] += layerHidden[i]
			}
		}
		if wantAttn {
			row := make([]float32, visible)
			w := 1 / float32(visible)
			for q := range row {
				row[q] = w
			}
			out.Attentions[l] = row
		}
	}

	out.Logits = make([]float32, m.cfg.Vocab)
	for j := 0; j < m.cfg.Vocab; j++ {
		var sum float32
		for i := 0; i < m.cfg.Hidden; i++ {
			sum += hidden[i] * m.unit(101, uint64(j), uint64(i))
		}
		out.Logits[j] = sum + m.unit(211, uint64(token), uint64(j))
	}
	return out, nil
}

// unit hashes (seed, a, b, c) to a float32 in [-1, 1). splitmix64-style
// mixing keeps it fast and platform independent.
func (m *Model) unit(a, b, c uint64) float32 {
	x := uint64(m.cfg.Seed)*0x9e3779b97f4a7c15 + a*0xbf58476d1ce4e5b9 + b*0x94d049bb133111eb + c + 0x2545f4914f6cdd1d
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return float32(int64(x>>11)-(1<<52)) / (1 << 52)
}
