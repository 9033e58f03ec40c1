// Package executable speaks to a mesh executable service: a compiled,
// sharded, possibly pipeline-parallel computation graph deployed across a
// device cluster. The service is opaque; this package only defines the
// wire surface the decoding loop needs: load, run one step, sync.
package executable

import (
	"context"

	"github.com/weft-ml/weft/internal/kvcache"
)

// StepInputs is one single-token invocation of the executable. The cache
// is threaded explicitly by the caller; the service keeps no session state
// between calls.
type StepInputs struct {
	InputIDs           []int32        `json:"input_ids"`
	PositionIDs        []int32        `json:"position_ids"`
	Cache              *kvcache.Cache `json:"cache"`
	OutputHiddenStates bool           `json:"output_hidden_states,omitempty"`
	OutputAttentions   bool           `json:"output_attentions,omitempty"`
}

// StepOutputs is the executable's response for one step. AttentionCache is
// the input cache advanced by one position.
type StepOutputs struct {
	Logits         []float32      `json:"logits"`
	AttentionCache *kvcache.Cache `json:"attention_cache"`
	HiddenStates   [][]float32    `json:"hidden_states,omitempty"`
	Attentions     [][]float32    `json:"attentions,omitempty"`
}

// Params references weights resident on the cluster. Weights never travel
// over this protocol; loading returns a handle and every run names it.
type Params struct {
	ID string `json:"id"`
}

// Executable is a deployed computation graph. Run blocks until the step
// completes on the cluster; there are no retries and no timeouts at this
// layer, callers needing cancellation wrap the context themselves.
type Executable interface {
	Run(ctx context.Context, params Params, in StepInputs) (StepOutputs, error)
	Sync(ctx context.Context) error
	FlopCount() float64
}

// LoadRequest asks the service to compile-or-fetch an executable for one
// model configuration.
type LoadRequest struct {
	Model              string `json:"model"`
	WeightsPath        string `json:"weights_path,omitempty"`
	NumPipelineStages  int    `json:"num_pipeline_stages,omitempty"`
	Dummy              bool   `json:"dummy"`
	OutputHiddenStates bool   `json:"output_hidden_states,omitempty"`
	OutputAttentions   bool   `json:"output_attentions,omitempty"`
}

// LoadResponse identifies the deployed executable and its resident params.
type LoadResponse struct {
	ExecutableID string  `json:"executable_id"`
	ParamsID     string  `json:"params_id"`
	FlopCount    float64 `json:"flop_count"`
	NumDevices   int     `json:"num_devices"`
	NumHosts     int     `json:"num_hosts"`
}
