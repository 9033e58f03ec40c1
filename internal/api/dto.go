package api

// GenerateRequest is the body of POST /v1/generate. Pointer fields
// distinguish "not set" from zero so the engine defaults apply.
type GenerateRequest struct {
	Prompt      string   `json:"prompt"`
	MaxLength   *int     `json:"max_length,omitempty"`
	DoSample    *bool    `json:"do_sample,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

// GenerateResponse reports one finished episode.
type GenerateResponse struct {
	ID              string  `json:"id"`
	Model           string  `json:"model"`
	Text            string  `json:"text"`
	PromptTokens    int     `json:"prompt_tokens"`
	GeneratedTokens int     `json:"generated_tokens"`
	TotalTokens     int     `json:"total_tokens"`
	DurationMs      int64   `json:"duration_ms"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

// ModelResponse describes the loaded model, GET /v1/model.
type ModelResponse struct {
	Model      string `json:"model"`
	Backend    string `json:"backend"`
	SeqLen     int    `json:"seq_len"`
	HiddenSize int    `json:"hidden_size"`
	NumLayers  int    `json:"num_layers"`
	NumHeads   int    `json:"num_heads"`
	VocabSize  int    `json:"vocab_size"`
	NumDevices int    `json:"num_devices"`
	NumHosts   int    `json:"num_hosts"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
