package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/weft-ml/weft/internal/backend"
	"github.com/weft-ml/weft/internal/inference"
	"github.com/weft-ml/weft/internal/logger"
)

// PromptMetrics holds the measurements for a single prompt.
type PromptMetrics struct {
	Prompt     string
	Latency    time.Duration
	Tokens     int
	Speed      float64
	TFLOPS     float64
	ExecTFLOPS float64
}

// Summary is the aggregated row appended to the result table.
type Summary struct {
	Model         string
	Device        string
	Dummy         bool
	LoadTime      time.Duration
	AvgSpeed      float64
	AvgTFLOPS     float64
	AvgExecTFLOPS float64
}

// TextGen benchmarks full generate-until-stop calls, one prompt at a
// time. A failed prompt aborts the whole run; nothing partial is saved.
type TextGen struct {
	Engine    *inference.Engine
	Info      backend.Info
	Device    string
	Dummy     bool
	MaxLength int
	Log       logger.Logger
}

// Run measures every prompt and returns the per-prompt metrics plus the
// arithmetic-mean summary.
func (b *TextGen) Run(ctx context.Context, prompts []string) (Summary, []PromptMetrics, error) {
	if len(prompts) == 0 {
		return Summary{}, nil, fmt.Errorf("benchmark: no prompts")
	}
	log := b.Log
	if log == nil {
		log = logger.Default()
	}
	maxLength := b.MaxLength
	if maxLength <= 0 {
		maxLength = 256
	}

	gpus := b.Info.NumDevices
	if gpus <= 0 {
		gpus = 1
	}

	metrics := make([]PromptMetrics, 0, len(prompts))
	for _, prompt := range prompts {
		tic := time.Now()
		res, err := b.Engine.Generate(ctx, inference.Request{Prompt: prompt, MaxLength: maxLength})
		if err != nil {
			return Summary{}, nil, fmt.Errorf("benchmark prompt %q: %w", prompt, err)
		}
		latency := time.Since(tic)
		tokens := res.Stats.TotalTokens

		m := PromptMetrics{
			Prompt:  prompt,
			Latency: latency,
			Tokens:  tokens,
			Speed:   Throughput(tokens, latency),
			TFLOPS: InferenceTFLOPSWithPadding(1, tokens, b.Info.SeqLen, b.Info.NumLayers,
				b.Info.HiddenSize, b.Info.VocabSize, gpus, latency.Seconds()),
			ExecTFLOPS: ExecTFLOPS(b.Info.FlopCount, tokens, gpus, latency.Seconds()),
		}
		metrics = append(metrics, m)
		log.Info("prompt done",
			"input", prompt,
			"tokens", tokens,
			"speed", fmt.Sprintf("%.2f tok/s", m.Speed),
			"tflops", fmt.Sprintf("%.4f", m.TFLOPS))
	}

	speeds := make([]float64, len(metrics))
	tflops := make([]float64, len(metrics))
	execTflops := make([]float64, len(metrics))
	for i, m := range metrics {
		speeds[i] = m.Speed
		tflops[i] = m.TFLOPS
		execTflops[i] = m.ExecTFLOPS
	}

	return Summary{
		Model:         b.Info.Model,
		Device:        b.Device,
		Dummy:         b.Dummy,
		AvgSpeed:      Mean(speeds),
		AvgTFLOPS:     Mean(tflops),
		AvgExecTFLOPS: Mean(execTflops),
	}, metrics, nil
}

// ResultHeads is the column set of the text-generation result table.
var ResultHeads = []string{
	"Model", "Device", "Dummy", "Load (s)",
	"Speed (token/s)", "TFlops (TFlops/s)", "Exec TFlops (TFlops/s)",
}

// Row renders the summary in ResultHeads order.
func (s Summary) Row() []string {
	return []string{
		s.Model,
		s.Device,
		fmt.Sprintf("%t", s.Dummy),
		fmt.Sprintf("%.2f", s.LoadTime.Seconds()),
		fmt.Sprintf("%.4f", s.AvgSpeed),
		fmt.Sprintf("%.4f", s.AvgTFLOPS),
		fmt.Sprintf("%.4f", s.AvgExecTFLOPS),
	}
}
