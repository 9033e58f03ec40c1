package backend

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/weft-ml/weft/internal/executable"
	"github.com/weft-ml/weft/internal/kvcache"
	"github.com/weft-ml/weft/internal/modelspec"
)

// meshStepper drives the remote distributed executable. Position ids are
// derived from the session counter plus the model's pad offset so they
// advance in lock-step with the cache fill pointer.
type meshStepper struct {
	name   string
	remote *executable.Remote
	cfg    modelspec.Config
}

func openMesh(ctx context.Context, model, variant string, opts Options) (Stepper, Info, error) {
	size, ok := strings.CutPrefix(variant, "opt-")
	if !ok {
		return nil, Info{}, fmt.Errorf("unknown model %q (mesh models are named mesh/opt-<size>)", model)
	}
	cfg, err := modelspec.Lookup(size)
	if err != nil {
		return nil, Info{}, err
	}
	if opts.Cluster.Endpoint == "" {
		return nil, Info{}, fmt.Errorf("model %q requires a cluster", model)
	}

	// At least two pipeline stages even on a single host, matching how
	// the executables are compiled.
	stages := opts.Cluster.NumHosts
	if stages < 2 {
		stages = 2
	}

	client := executable.NewClient(opts.Cluster.Endpoint, opts.HTTPClient)
	remote, err := client.Load(ctx, executable.LoadRequest{
		Model:              variant,
		WeightsPath:        path.Join(opts.Cluster.WeightsPath, strings.ToUpper(size)+"_np"),
		NumPipelineStages:  stages,
		Dummy:              opts.Dummy,
		OutputHiddenStates: opts.Support.HiddenStates,
		OutputAttentions:   opts.Support.Attentions,
	})
	if err != nil {
		return nil, Info{}, err
	}
	if err := remote.Sync(ctx); err != nil {
		return nil, Info{}, err
	}

	info := Info{
		Model:      model,
		Backend:    "mesh",
		SeqLen:     cfg.MaxSeqLen,
		HiddenSize: cfg.HiddenSize,
		NumLayers:  cfg.NumLayers,
		NumHeads:   cfg.NumHeads,
		VocabSize:  cfg.VocabSize,
		NumDevices: remote.NumDevices(),
		NumHosts:   remote.NumHosts(),
		FlopCount:  remote.FlopCount(),
	}
	return &meshStepper{name: model, remote: remote, cfg: cfg}, info, nil
}

func (s *meshStepper) Name() string {
	return s.name
}

func (s *meshStepper) NewCache() *kvcache.Cache {
	return kvcache.New(s.cfg.NumLayers, s.cfg.MaxSeqLen, s.cfg.HiddenSize)
}

func (s *meshStepper) Step(ctx context.Context, sess *Session, token int32, cache *kvcache.Cache, opts StepOptions) (StepResult, error) {
	if cache == nil {
		return StepResult{}, fmt.Errorf("%s: step requires a cache", s.name)
	}
	if err := cache.Validate(s.cfg.NumLayers, s.cfg.MaxSeqLen, s.cfg.HiddenSize); err != nil {
		return StepResult{}, fmt.Errorf("%s: %w", s.name, err)
	}
	position := int32(sess.Steps() + s.cfg.Pad + 1)
	out, err := s.remote.Run(ctx, s.remote.Params(), executable.StepInputs{
		InputIDs:           []int32{token},
		PositionIDs:        []int32{position},
		Cache:              cache,
		OutputHiddenStates: opts.HiddenStates,
		OutputAttentions:   opts.Attentions,
	})
	if err != nil {
		return StepResult{}, fmt.Errorf("%s: %w", s.name, err)
	}
	return StepResult{
		Logits:       out.Logits,
		Cache:        out.AttentionCache,
		HiddenStates: out.HiddenStates,
		Attentions:   out.Attentions,
	}, nil
}
