package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/weft-ml/weft/internal/bench"
	"github.com/weft-ml/weft/internal/inference"
)

const warmupPrompt = "Paris is the capital city of"

// defaultPrompts is the stock text-generation suite.
var defaultPrompts = []string{
	"Computer science is the study of computation and",
	"Ion Stoica is a Romanian-American computer scientist specializing in",
	"The University of California, Berkeley is a public",
}

func generateCmd() *cli.Command {
	var (
		prompts   []string
		maxLength int64
		output    string
		noWarmup  bool
	)

	flags := append([]cli.Flag{}, commonModelFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.StringSliceFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "prompt to benchmark (repeatable; default suite when omitted)",
			Destination: &prompts,
		},
		&cli.Int64Flag{
			Name:        "max-length",
			Usage:       "total sequence length cap, prompt included",
			Value:       256,
			Destination: &maxLength,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "TSV file the summary row is appended to",
			Value:       "results.tsv",
			Destination: &output,
		},
		&cli.BoolFlag{
			Name:        "no-warmup",
			Usage:       "skip the warmup generation",
			Destination: &noWarmup,
		},
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Run the text-generation benchmark and append a result row",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg)
			applyGenerateConfig(cmd, cfg, &maxLength)
			ctx, log := withLogger(ctx)

			stepper, info, err := openModel(ctx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}
			log.Info("model loaded",
				"model", info.Model,
				"backend", info.Backend,
				"devices", info.NumDevices,
				"load_time", info.LoadTime.Round(time.Millisecond))

			tok, err := newTokenizer(info)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			engine := inference.NewEngine(stepper, info, tok, inference.DefaultGenerationConfig(), log)

			if !noWarmup {
				res, err := engine.Generate(ctx, inference.Request{
					Prompt:    warmupPrompt,
					MaxLength: int(maxLength),
				})
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: warmup: %v", err), 1)
				}
				log.Info("warmup done", "tokens", res.Stats.TotalTokens)
				fmt.Println(res.Text)
			}

			if len(prompts) == 0 {
				prompts = defaultPrompts
			}

			tg := &bench.TextGen{
				Engine:    engine,
				Info:      info,
				Device:    deviceName,
				Dummy:     dummy,
				MaxLength: int(maxLength),
				Log:       log,
			}
			summary, metrics, err := tg.Run(ctx, prompts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			summary.LoadTime = info.LoadTime

			fmt.Println("=== Text generation ===")
			fmt.Printf("%-60s %10s %8s %12s %10s\n", "Prompt", "Latency", "Tokens", "Speed", "TFlops")
			for _, m := range metrics {
				fmt.Printf("%-60s %10s %8d %12.2f %10.4f\n",
					truncate(m.Prompt, 60), m.Latency.Round(time.Millisecond), m.Tokens, m.Speed, m.TFLOPS)
			}
			fmt.Printf("\n%-60s %10s %8s %12.2f %10.4f\n", "Avg", "", "", summary.AvgSpeed, summary.AvgTFLOPS)

			if err := bench.WriteTSV(output, bench.ResultHeads, summary.Row()); err != nil {
				return cli.Exit(fmt.Sprintf("error: write results: %v", err), 1)
			}
			log.Info("result row appended",
				"file", output,
				"row", bench.FormatRow(bench.ResultHeads, summary.Row()))
			return nil
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
