package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/weft-ml/weft/internal/modelspec"
)

func modelsCmd() *cli.Command {
	return &cli.Command{
		Name:    "models",
		Aliases: []string{"ls"},
		Usage:   "List known model names and their geometry",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Println("Local models:")
			fmt.Println("  gpt/toy")
			fmt.Println("  opt/toy")
			fmt.Println()
			fmt.Println("Mesh models (require --cluster):")
			fmt.Printf("  %-14s %8s %8s %8s %8s %9s %16s\n",
				"Name", "Seq", "Hidden", "Layers", "Heads", "Head dim", "Params")
			for _, size := range modelspec.Sizes() {
				cfg, err := modelspec.Lookup(size)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				fmt.Printf("  %-14s %8d %8d %8d %8d %9d %16s\n",
					"mesh/opt-"+size, cfg.MaxSeqLen, cfg.HiddenSize,
					cfg.NumLayers, cfg.NumHeads, cfg.HeadDim(),
					humanize.Comma(cfg.ParameterCount()))
			}
			return nil
		},
	}
}
