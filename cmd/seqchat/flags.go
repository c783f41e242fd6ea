package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqchat/internal/inference"
	"github.com/samcharles93/seqchat/internal/logger"
)

var (
	modelDir        string
	modelsPath      string
	weightsPath     string
	modelConfigPath string
	tokenizerPath   string
	maxLength       int
	showTokens      bool
	traceCandidates int
	logLevel        string
	logFormat       string
	debug           bool
	noColor         bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model-dir",
			Aliases:     []string{"m"},
			Usage:       "directory holding config.json, model.safetensors and the tokenizer",
			Sources:     cli.EnvVars(envModelDir),
			Destination: &modelDir,
		},
		&cli.StringFlag{
			Name:        "models-path",
			Aliases:     []string{"path"},
			Usage:       "directory containing model directories",
			Destination: &modelsPath,
		},
		&cli.StringFlag{
			Name:        "weights",
			Usage:       "override path to model.safetensors",
			Destination: &weightsPath,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "override path to the model config.json",
			Destination: &modelConfigPath,
		},
		&cli.StringFlag{
			Name:        "tokenizer",
			Usage:       "override path to the tokenizer (.subwords or tokenizer.json)",
			Destination: &tokenizerPath,
		},
	}
}

func decodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "max-length",
			Usage:       fmt.Sprintf("maximum generated tokens per reply (1-%d); raising it past the default allows longer replies", inference.MaxLengthLimit),
			Value:       inference.MaxLength,
			Destination: &maxLength,
		},
		&cli.BoolFlag{
			Name:        "show-tokens",
			Usage:       "print input, output, raw prediction and filtered ids",
			Destination: &showTokens,
		},
		&cli.IntFlag{
			Name:        "trace-candidates",
			Usage:       "log the top N candidates per step at debug level",
			Destination: &traceCandidates,
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
		&cli.BoolFlag{
			Name:        "no-color",
			Usage:       "disable colored output",
			Destination: &noColor,
		},
	}
}

func effectiveLevel() slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return logger.ParseLevel(logLevel)
}
