package main

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/weft-ml/weft/internal/backend"
	"github.com/weft-ml/weft/internal/bench"
	"github.com/weft-ml/weft/internal/logits"
	"github.com/weft-ml/weft/internal/modelspec"
)

func benchmarkCmd() *cli.Command {
	var (
		warmupRuns int64
		benchRuns  int64
		steps      int64
		output     string
	)

	flags := append([]cli.Flag{}, commonModelFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "number of warmup runs",
			Value:       1,
			Destination: &warmupRuns,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Usage:       "number of benchmark runs",
			Value:       3,
			Destination: &benchRuns,
		},
		&cli.Int64Flag{
			Name:        "steps",
			Aliases:     []string{"n"},
			Usage:       "number of decode steps per run",
			Value:       128,
			Destination: &steps,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "TSV file the summary row is appended to (default result_<model>.tsv)",
			Destination: &output,
		},
	)

	return &cli.Command{
		Name:  "benchmark",
		Usage: "Measure raw decode-step latency and utilization",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			ctx, log := withLogger(ctx)

			stepper, info, err := openModel(ctx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}

			params := modelspec.ParameterCount(info.NumLayers, info.HiddenSize, info.VocabSize)

			fmt.Println("=== Weft Benchmark ===")
			fmt.Printf("Model:      %s (%s params)\n", info.Model, humanize.Comma(params))
			fmt.Printf("Backend:    %s\n", info.Backend)
			fmt.Printf("Host:       %s\n", hostInfo())
			fmt.Printf("CPUs:       %d\n", runtime.NumCPU())
			fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
			fmt.Printf("Devices:    %d\n", info.NumDevices)
			fmt.Printf("Load:       %s\n", info.LoadTime.Round(time.Millisecond))
			fmt.Printf("Steps:      %d tokens\n", steps)
			fmt.Printf("Warmup:     %d runs\n", warmupRuns)
			fmt.Printf("Runs:       %d\n", benchRuns)
			fmt.Println()

			for i := range int(warmupRuns) {
				log.Info("warmup run", "run", i+1)
				if _, err := decodeRun(ctx, stepper, int(steps)); err != nil {
					return cli.Exit(fmt.Sprintf("error: warmup run %d: %v", i+1, err), 1)
				}
			}

			latencies := make([]time.Duration, 0, benchRuns)
			for i := range int(benchRuns) {
				log.Info("benchmark run", "run", i+1)
				d, err := decodeRun(ctx, stepper, int(steps))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: benchmark run %d: %v", i+1, err), 1)
				}
				latencies = append(latencies, d)
			}

			fmt.Println("=== Results ===")
			fmt.Printf("%-6s %12s %12s %12s\n", "Run", "Latency", "ms/step", "tok/s")
			speeds := make([]float64, len(latencies))
			perStep := make([]float64, len(latencies))
			for i, d := range latencies {
				speeds[i] = bench.Throughput(int(steps), d)
				perStep[i] = d.Seconds() * 1e3 / float64(steps)
				fmt.Printf("%-6d %12s %12.3f %12.2f\n", i+1, d.Round(time.Millisecond), perStep[i], speeds[i])
			}

			gpus := info.NumDevices
			if gpus <= 0 {
				gpus = 1
			}
			meanLatency := bench.Mean(durationsSeconds(latencies))
			tflops := bench.InferenceTFLOPSWithPadding(1, int(steps), info.SeqLen,
				info.NumLayers, info.HiddenSize, info.VocabSize, gpus, meanLatency)
			trainTflops := bench.TrainingTFLOPS(1, int(steps), info.NumLayers,
				info.HiddenSize, info.VocabSize, gpus, meanLatency, true)

			fmt.Printf("\n%-6s %12s %12.3f %12.2f\n", "Avg", "", bench.Mean(perStep), bench.Mean(speeds))
			fmt.Printf("Std:    %.3f ms/step\n", stddev(perStep))
			fmt.Printf("TFlops: %.4f inference, %.4f training-equivalent\n", tflops, trainTflops)

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			fmt.Printf("Memory: %s alloc, %s sys\n",
				humanize.IBytes(mem.Alloc), humanize.IBytes(mem.Sys))

			if output == "" {
				output = fmt.Sprintf("result_%s.tsv", strings.ReplaceAll(info.Model, "/", "_"))
			}
			heads := []string{
				"Model", "Device", "Dummy", "Steps",
				"Mean (ms/step)", "Std (ms/step)", "Speed (token/s)", "TFlops (TFlops/s)",
			}
			values := []string{
				info.Model,
				deviceName,
				fmt.Sprintf("%t", dummy),
				fmt.Sprintf("%d", steps),
				fmt.Sprintf("%.3f", bench.Mean(perStep)),
				fmt.Sprintf("%.3f", stddev(perStep)),
				fmt.Sprintf("%.4f", bench.Mean(speeds)),
				fmt.Sprintf("%.4f", tflops),
			}
			if err := bench.WriteTSV(output, heads, values); err != nil {
				return cli.Exit(fmt.Sprintf("error: write results: %v", err), 1)
			}
			log.Info("result row appended", "file", output)
			return nil
		},
	}
}

// decodeRun times a fresh greedy episode of n decode steps starting from
// the bos token.
func decodeRun(ctx context.Context, stepper backend.Stepper, n int) (time.Duration, error) {
	sess := backend.NewSession()
	cache := stepper.NewCache()
	sampler := logits.NewSampler(logits.SamplerConfig{})
	token := int32(0)

	start := time.Now()
	for range n {
		res, err := stepper.Step(ctx, sess, token, cache, backend.StepOptions{})
		if err != nil {
			return 0, err
		}
		sess.Advance()
		cache = res.Cache
		token = sampler.Sample(res.Logits, nil)
	}
	return time.Since(start), nil
}

func durationsSeconds(ds []time.Duration) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.Seconds()
	}
	return out
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := bench.Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
