package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/weft-ml/weft/internal/backend"
	"github.com/weft-ml/weft/internal/cluster"
	"github.com/weft-ml/weft/internal/logger"
	"github.com/weft-ml/weft/internal/tokenizer"
)

var (
	modelName   string
	deviceName  string
	clusterName string
	clusterFile string
	endpoint    string
	dummy       bool
	logLevel    string
	logFormat   string
	debug       bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "model name (gpt/toy, opt/toy, mesh/opt-<size>)",
			Value:       "gpt/toy",
			Destination: &modelName,
		},
		&cli.StringFlag{
			Name:        "device",
			Usage:       "device label recorded in result rows",
			Value:       "cpu",
			Destination: &deviceName,
		},
		&cli.StringFlag{
			Name:        "cluster",
			Usage:       "cluster name for mesh/ models",
			Value:       "aws",
			Destination: &clusterName,
		},
		&cli.StringFlag{
			Name:        "cluster-file",
			Usage:       "cluster registry YAML (replaces the builtin registry)",
			Destination: &clusterFile,
		},
		&cli.StringFlag{
			Name:        "endpoint",
			Usage:       "override the resolved cluster endpoint",
			Destination: &endpoint,
		},
		&cli.BoolFlag{
			Name:        "dummy",
			Usage:       "load randomly initialized weights instead of a checkpoint",
			Destination: &dummy,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// withLogger builds the logger from the logging flags and attaches it to
// the context for everything downstream.
func withLogger(ctx context.Context) (context.Context, logger.Logger) {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	var log logger.Logger
	switch logFormat {
	case "json":
		log = logger.JSON(os.Stderr, level)
	case "text":
		log = logger.Default()
	default:
		log = logger.Pretty(os.Stderr, level)
	}
	return logger.WithContext(ctx, log), log
}

// resolveCluster applies the registry file and endpoint override on top of
// the builtin registry.
func resolveCluster() (cluster.Cluster, error) {
	reg := cluster.Builtin()
	if clusterFile != "" {
		var err error
		reg, err = cluster.LoadFile(clusterFile)
		if err != nil {
			return cluster.Cluster{}, err
		}
	}
	c, err := reg.Resolve(clusterName)
	if err != nil {
		return cluster.Cluster{}, err
	}
	if endpoint != "" {
		c.Endpoint = endpoint
	}
	return c, nil
}

// openModel resolves the cluster when needed and opens the backend named
// by --model.
func openModel(ctx context.Context) (backend.Stepper, backend.Info, error) {
	opts := backend.Options{Dummy: dummy}
	if strings.HasPrefix(modelName, backend.FamilyMesh+"/") {
		c, err := resolveCluster()
		if err != nil {
			return nil, backend.Info{}, err
		}
		opts.Cluster = c
	}
	return backend.Open(ctx, modelName, opts)
}

func newTokenizer(info backend.Info) (tokenizer.Tokenizer, error) {
	tok, err := tokenizer.NewByteLevel(info.VocabSize)
	if err != nil {
		return nil, fmt.Errorf("build tokenizer: %w", err)
	}
	return tok, nil
}
