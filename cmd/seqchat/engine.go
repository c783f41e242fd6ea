package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqchat/internal/inference"
	"github.com/samcharles93/seqchat/internal/logger"
)

// explicitModelFiles reports whether every model file was given directly, in
// which case no model directory is needed.
func explicitModelFiles() bool {
	return weightsPath != "" && modelConfigPath != "" && tokenizerPath != ""
}

// loadEngine resolves the model directory and loads it. Errors are returned
// as cli exit errors.
func loadEngine(ctx context.Context, c *cli.Command) (*inference.Engine, error) {
	log := logger.FromContext(ctx)
	applyModelConfig(c, fileConfig)
	if err := checkDecodeFlags(); err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	dir := modelDir
	if dir == "" && !explicitModelFiles() {
		resolved, err := resolveModelDir(modelDir, modelsPath, os.Stdin, os.Stderr)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("error: resolve model: %v", err), 1)
		}
		dir = resolved
	}

	var progress io.Writer
	if isCharDevice(os.Stderr) && logFormat == "pretty" {
		progress = os.Stderr
	}

	start := time.Now()
	e, err := inference.Loader{
		ModelDir:      dir,
		WeightsPath:   weightsPath,
		ConfigPath:    modelConfigPath,
		TokenizerPath: tokenizerPath,
		Progress:      progress,
	}.Load()
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
	}

	cfg := e.Model().Config()
	log.Info("model loaded",
		"dir", dir,
		"tokenizer", string(e.TokenizerKind()),
		"vocab_size", cfg.VocabSize,
		"layers", cfg.NumLayers,
		"d_model", cfg.DModel,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return e, nil
}

// checkDecodeFlags validates decode settings after config has been applied.
func checkDecodeFlags() error {
	if err := inference.CheckMaxLength(maxLength); err != nil {
		return fmt.Errorf("max length: %w", err)
	}
	return nil
}

func decoderOptions(ctx context.Context) inference.DecoderOptions {
	return inference.DecoderOptions{
		MaxLength:       maxLength,
		TraceCandidates: traceCandidates,
		Logger:          logger.FromContext(ctx).With("component", "decoder"),
	}
}
