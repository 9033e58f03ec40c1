// Package bench derives throughput and utilization figures for a finished
// run and persists them as rows in flat TSV result tables. The TFLOPS
// numbers are closed-form analytic estimates from the model
// hyperparameters, not hardware measurements.
package bench

import "time"

// TrainingTFLOPS estimates utilization for one training step of a
// decoder-only transformer. The factor is 96 with activation
// checkpointing (forward recomputed in the backward pass) and 72 without.
func TrainingTFLOPS(batch, seq, layers, hidden, vocab, gpus int, latency float64, checkpointActivations bool) float64 {
	factor := 72.0
	if checkpointActivations {
		factor = 96.0
	}
	b, s, h := float64(batch), float64(seq), float64(hidden)
	total := factor*b*s*h*h*float64(layers)*(1+s/(6*h)) + 6*b*s*h*float64(vocab)
	return total / latency / float64(gpus) / 1e12
}

// InferenceTFLOPSWithPadding estimates utilization for autoregressive
// generation where every decoded token attends to the full padded
// sequence length. genLen counts all tokens in the finished sequence.
func InferenceTFLOPSWithPadding(batch, genLen, seq, layers, hidden, vocab, gpus int, latency float64) float64 {
	b, g, s, h := float64(batch), float64(genLen), float64(seq), float64(hidden)
	total := 24*b*g*h*h*float64(layers)*(1+s/(6*h)) + 4*b*g*h*float64(vocab)
	return total / latency / float64(gpus) / 1e12
}

// ExecTFLOPS converts an executable-reported per-pass FLOP count into a
// utilization figure for a generation run of genLen tokens.
func ExecTFLOPS(flopCount float64, genLen, gpus int, latency float64) float64 {
	if latency <= 0 || gpus <= 0 {
		return 0
	}
	return flopCount / 1e12 / latency / float64(gpus) * float64(genLen)
}

// Throughput is tokens per second over the measured wall-clock latency.
func Throughput(tokens int, latency time.Duration) float64 {
	secs := latency.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(tokens) / secs
}

// Mean is the arithmetic mean used to aggregate per-prompt metrics.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
