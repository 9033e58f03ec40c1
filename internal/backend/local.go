package backend

import (
	"context"
	"fmt"

	"github.com/weft-ml/weft/internal/kvcache"
	"github.com/weft-ml/weft/internal/toy"
)

// localStepper drives a single-device toy model. The gpt and opt families
// share the implementation; the opt family normalizes by the visible
// context length, standing in for the explicit attention mask that model
// family builds from the past length.
type localStepper struct {
	name  string
	model *toy.Model
}

func openLocal(model, variant string, maskNormalize bool) (Stepper, Info, error) {
	if variant != "toy" {
		return nil, Info{}, fmt.Errorf("unknown model %q (local families only ship the \"toy\" variant)", model)
	}
	cfg := localConfig
	cfg.MaskNormalize = maskNormalize
	m, err := toy.New(cfg)
	if err != nil {
		return nil, Info{}, err
	}
	info := Info{
		Model:      model,
		Backend:    "local",
		SeqLen:     cfg.MaxSeq,
		HiddenSize: cfg.Hidden,
		NumLayers:  cfg.Layers,
		NumHeads:   localNumHeads,
		VocabSize:  cfg.Vocab,
		NumDevices: 1,
		NumHosts:   1,
	}
	return &localStepper{name: model, model: m}, info, nil
}

func (s *localStepper) Name() string {
	return s.name
}

func (s *localStepper) NewCache() *kvcache.Cache {
	return s.model.NewCache()
}

func (s *localStepper) Step(ctx context.Context, sess *Session, token int32, cache *kvcache.Cache, opts StepOptions) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	if cache == nil {
		return StepResult{}, fmt.Errorf("%s: step requires a cache", s.name)
	}
	out, err := s.model.Forward(token, cache, opts.HiddenStates, opts.Attentions)
	if err != nil {
		return StepResult{}, fmt.Errorf("%s: %w", s.name, err)
	}
	return StepResult{
		Logits:       out.Logits,
		Cache:        cache,
		HiddenStates: out.HiddenStates,
		Attentions:   out.Attentions,
	}, nil
}
