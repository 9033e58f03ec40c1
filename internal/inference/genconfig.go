package inference

import "fmt"

// GenerationConfig enumerates every generation-control option the drivers
// recognize. It is built once, before generation starts, and never mutated
// afterwards; overrides arrive through NewGenerationConfig, which rejects
// keys it does not know instead of silently accepting them.
type GenerationConfig struct {
	BosTokenID int
	PadTokenID int
	EosTokenID int

	MaxLength int
	MinLength int

	NumBeams           int
	NumBeamGroups      int
	NumReturnSequences int
	EarlyStopping      bool

	DoSample    bool
	Seed        int64
	Temperature float64
	TopK        int
	TopP        float64
	TypicalP    float64

	RepetitionPenalty        float64
	LengthPenalty            float64
	DiversityPenalty         float64
	NoRepeatNgramSize        int
	EncoderNoRepeatNgramSize int
	BadWordsIDs              [][]int32

	ForcedBosTokenID *int
	ForcedEosTokenID *int

	OutputScores       bool
	OutputAttentions   bool
	OutputHiddenStates bool
}

// DefaultGenerationConfig mirrors the defaults the OPT drivers ship with.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		BosTokenID:         0,
		PadTokenID:         1,
		EosTokenID:         2,
		MaxLength:          256,
		NumBeams:           1,
		NumBeamGroups:      1,
		NumReturnSequences: 1,
		Temperature:        1.0,
		TopK:               50,
		TopP:               1.0,
		TypicalP:           1.0,
		RepetitionPenalty:  1.0,
		LengthPenalty:      1.0,
	}
}

// NewGenerationConfig applies overrides on top of the defaults. Unknown
// keys are an error: a misspelled option must fail the run, not quietly
// generate with defaults.
func NewGenerationConfig(overrides map[string]any) (GenerationConfig, error) {
	cfg := DefaultGenerationConfig()
	for key, val := range overrides {
		var err error
		switch key {
		case "bos_token_id":
			cfg.BosTokenID, err = asInt(val)
		case "pad_token_id":
			cfg.PadTokenID, err = asInt(val)
		case "eos_token_id":
			cfg.EosTokenID, err = asInt(val)
		case "max_length":
			cfg.MaxLength, err = asInt(val)
		case "min_length":
			cfg.MinLength, err = asInt(val)
		case "num_beams":
			cfg.NumBeams, err = asInt(val)
		case "num_beam_groups":
			cfg.NumBeamGroups, err = asInt(val)
		case "num_return_sequences":
			cfg.NumReturnSequences, err = asInt(val)
		case "early_stopping":
			cfg.EarlyStopping, err = asBool(val)
		case "do_sample":
			cfg.DoSample, err = asBool(val)
		case "seed":
			var v int
			v, err = asInt(val)
			cfg.Seed = int64(v)
		case "temperature":
			cfg.Temperature, err = asFloat(val)
		case "top_k":
			cfg.TopK, err = asInt(val)
		case "top_p":
			cfg.TopP, err = asFloat(val)
		case "typical_p":
			cfg.TypicalP, err = asFloat(val)
		case "repetition_penalty":
			cfg.RepetitionPenalty, err = asFloat(val)
		case "length_penalty":
			cfg.LengthPenalty, err = asFloat(val)
		case "diversity_penalty":
			cfg.DiversityPenalty, err = asFloat(val)
		case "no_repeat_ngram_size":
			cfg.NoRepeatNgramSize, err = asInt(val)
		case "encoder_no_repeat_ngram_size":
			cfg.EncoderNoRepeatNgramSize, err = asInt(val)
		case "forced_bos_token_id":
			var v int
			if v, err = asInt(val); err == nil {
				cfg.ForcedBosTokenID = &v
			}
		case "forced_eos_token_id":
			var v int
			if v, err = asInt(val); err == nil {
				cfg.ForcedEosTokenID = &v
			}
		case "output_scores":
			cfg.OutputScores, err = asBool(val)
		case "output_attentions":
			cfg.OutputAttentions, err = asBool(val)
		case "output_hidden_states":
			cfg.OutputHiddenStates, err = asBool(val)
		default:
			return GenerationConfig{}, fmt.Errorf("unknown generation option %q", key)
		}
		if err != nil {
			return GenerationConfig{}, fmt.Errorf("generation option %q: %w", key, err)
		}
	}
	if cfg.MaxLength <= 0 {
		return GenerationConfig{}, fmt.Errorf("max_length must be positive, got %d", cfg.MaxLength)
	}
	if cfg.NumBeams != 1 {
		return GenerationConfig{}, fmt.Errorf("beam search is not supported (num_beams=%d)", cfg.NumBeams)
	}
	return cfg, nil
}

func asInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("expected integer, got %v", x)
		}
		return int(x), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func asBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("expected bool, got %T", v)
}
