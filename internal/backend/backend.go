// Package backend selects and wraps the inference implementation behind a
// single-token Stepper interface. Three implementations exist: two local
// single-device model families and the remote mesh executable. The choice
// is made once, from the model name, at load time.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/weft-ml/weft/internal/cluster"
	"github.com/weft-ml/weft/internal/kvcache"
	"github.com/weft-ml/weft/internal/toy"
)

// StepOptions requests optional diagnostics from a step. They must be
// fixed at load time for the mesh backend, so Open takes them too.
type StepOptions struct {
	HiddenStates bool
	Attentions   bool
}

// StepResult is the outcome of one single-token step: logits for the new
// position, the advanced cache, and diagnostics when requested.
type StepResult struct {
	Logits       []float32
	Cache        *kvcache.Cache
	HiddenStates [][]float32
	Attentions   [][]float32
}

// Stepper consumes exactly one token per call and threads the cache
// explicitly. Implementations hold no per-episode state; everything an
// episode needs travels in the session and the cache.
type Stepper interface {
	Name() string
	NewCache() *kvcache.Cache
	Step(ctx context.Context, sess *Session, token int32, cache *kvcache.Cache, opts StepOptions) (StepResult, error)
}

// Info describes the opened model for the benchmark formulas and logs.
type Info struct {
	Model      string
	Backend    string
	SeqLen     int
	HiddenSize int
	NumLayers  int
	NumHeads   int
	VocabSize  int
	NumDevices int
	NumHosts   int
	// FlopCount is the compiler-reported FLOPs of one forward pass;
	// zero for the local backends.
	FlopCount float64
	LoadTime  time.Duration
}

// Options configures Open.
type Options struct {
	// Dummy loads randomly initialized weights instead of a checkpoint.
	Dummy bool
	// Cluster is required for mesh/ models and ignored otherwise.
	Cluster cluster.Cluster
	// HTTPClient overrides the transport used for the mesh service.
	HTTPClient *http.Client
	// Diagnostics the steppers must be able to produce.
	Support StepOptions
}

// Backend name prefixes recognized in model names.
const (
	FamilyGPT  = "gpt"
	FamilyOPT  = "opt"
	FamilyMesh = "mesh"
)

// Local toy geometry. Both local families share it; they differ only in
// attention-mask handling. The seed matches the drivers' fixed seed.
var localConfig = toy.Config{
	Vocab:  512,
	Hidden: 32,
	Layers: 4,
	MaxSeq: 2048,
	Seed:   8,
}

const localNumHeads = 4

// Open resolves a model name such as "gpt/toy", "opt/toy" or
// "mesh/opt-125m" to a Stepper. Unknown names are a configuration error;
// the caller is expected to abort.
func Open(ctx context.Context, model string, opts Options) (Stepper, Info, error) {
	start := time.Now()
	family, rest, ok := strings.Cut(strings.TrimSpace(model), "/")
	if !ok {
		return nil, Info{}, fmt.Errorf("invalid model name %q (want family/variant, e.g. gpt/toy or mesh/opt-125m)", model)
	}

	var (
		s    Stepper
		info Info
		err  error
	)
	switch family {
	case FamilyGPT:
		s, info, err = openLocal(model, rest, false)
	case FamilyOPT:
		s, info, err = openLocal(model, rest, true)
	case FamilyMesh:
		s, info, err = openMesh(ctx, model, rest, opts)
	default:
		return nil, Info{}, fmt.Errorf("unknown model family %q in %q (known: gpt, opt, mesh)", family, model)
	}
	if err != nil {
		return nil, Info{}, err
	}
	info.LoadTime = time.Since(start)
	return s, info, nil
}
