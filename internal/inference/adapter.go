// Package inference contains the autoregressive decoding loop and the
// generation controller that drives it. The loop is backend-agnostic: it
// only sees the backend.Stepper interface, so the same control flow runs
// against a local toy model or a cluster-resident mesh executable.
package inference

import (
	"context"
	"fmt"

	"github.com/weft-ml/weft/internal/backend"
	"github.com/weft-ml/weft/internal/kvcache"
)

// CausalLM adapts a Stepper to the causal-language-model call shape the
// generation controller expects: prepare inputs, forward, read logits and
// cache off the result.
//
// A multi-token input is decomposed into single-token steps because the
// cache interface accepts one new token per call. Only the last step's
// logits are returned; this is equivalent to scoring the whole prompt at
// once exactly when the backend's cache update matches sequential
// single-token decoding, which the local backends guarantee by
// construction and the mesh protocol guarantees by being single-token-in.
type CausalLM struct {
	stepper backend.Stepper
	cfg     GenerationConfig
	sess    *backend.Session
}

// NewCausalLM wraps a stepper with the given generation config.
func NewCausalLM(stepper backend.Stepper, cfg GenerationConfig) *CausalLM {
	return &CausalLM{stepper: stepper, cfg: cfg}
}

// Config returns the generation config the adapter was built with.
func (m *CausalLM) Config() GenerationConfig {
	return m.cfg
}

// Session exposes the current episode's step counter, for logging.
func (m *CausalLM) Session() *backend.Session {
	return m.sess
}

// PrepareInputs returns the tokens the next Forward call should consume:
// the full history when no cache exists yet, otherwise only the most
// recently appended token. After priming, per-call work is one token.
func (m *CausalLM) PrepareInputs(history []int32, past *kvcache.Cache) []int32 {
	if past != nil && len(history) > 0 {
		return history[len(history)-1:]
	}
	return history
}

// Forward consumes ids one token at a time, threading the cache across
// calls. A nil past starts a fresh episode: the cache is built from the
// model configuration and a new session resets the step counter to zero.
// Failures from the backend propagate immediately; the loop never retries
// and never issues step i+1 before step i's cache has been incorporated.
func (m *CausalLM) Forward(ctx context.Context, ids []int32, past *kvcache.Cache) (backend.StepResult, error) {
	if len(ids) == 0 {
		return backend.StepResult{}, fmt.Errorf("forward: empty input")
	}
	if past == nil {
		past = m.stepper.NewCache()
		m.sess = NewEpisode()
	}
	if m.sess == nil {
		return backend.StepResult{}, fmt.Errorf("forward: cache supplied but no session active")
	}

	opts := backend.StepOptions{
		HiddenStates: m.cfg.OutputHiddenStates,
		Attentions:   m.cfg.OutputAttentions,
	}

	var res backend.StepResult
	for i, tok := range ids {
		var err error
		res, err = m.stepper.Step(ctx, m.sess, tok, past, opts)
		if err != nil {
			return backend.StepResult{}, fmt.Errorf("step %d of %d: %w", i, len(ids), err)
		}
		past = res.Cache
		m.sess.Advance()
	}
	return res, nil
}

// NewEpisode returns a fresh session. Exposed so callers that manage
// episodes explicitly (tests, mostly) can do what Forward does on a nil
// cache.
func NewEpisode() *backend.Session {
	return backend.NewSession()
}
