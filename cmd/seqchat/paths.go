package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samcharles93/seqchat/internal/seq2seq"
)

const (
	envModelDir  = "SEQCHAT_MODEL_DIR"
	envModelsDir = "SEQCHAT_MODELS_DIR"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = func() bool { return isCharDevice(os.Stdin) }

// resolveModelDir picks the model directory: the explicit flag first, then
// the single (or interactively chosen) model under the models directory.
func resolveModelDir(modelDirFlag, modelsPath string, stdin io.Reader, stderr io.Writer) (string, error) {
	if dir := strings.TrimSpace(modelDirFlag); dir != "" {
		return filepath.Clean(dir), nil
	}

	modelsDir := strings.TrimSpace(modelsPath)
	if modelsDir == "" {
		modelsDir = strings.TrimSpace(os.Getenv(envModelsDir))
	}
	if modelsDir == "" {
		return "", fmt.Errorf("--model-dir or --models-path is required unless %s or %s is set", envModelDir, envModelsDir)
	}

	models, err := discoverModelDirs(modelsDir)
	if err != nil {
		return "", err
	}
	switch len(models) {
	case 0:
		return "", fmt.Errorf("no model directories (with %s) found in %s", seq2seq.ConfigFile, modelsDir)
	case 1:
		_, _ = fmt.Fprintf(stderr, "using model %s\n", models[0])
		return models[0], nil
	default:
		if !stdinIsTTY() {
			return "", fmt.Errorf("multiple models found in %s but stdin is not interactive; set --model-dir", modelsDir)
		}
		return selectModelInteractively(modelsDir, models, stdin, stderr)
	}
}

// discoverModelDirs lists dir itself or its immediate subdirectories that
// contain a model config, sorted by path.
func discoverModelDirs(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("models directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}
	if hasModelConfig(dir) {
		return []string{filepath.Clean(dir)}, nil
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	models := make([]string, 0, len(ents))
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if hasModelConfig(sub) {
			models = append(models, sub)
		}
	}
	sort.Strings(models)
	return models, nil
}

func hasModelConfig(dir string) bool {
	st, err := os.Stat(filepath.Join(dir, seq2seq.ConfigFile))
	return err == nil && !st.IsDir()
}

func selectModelInteractively(modelsDir string, models []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no models available in %s", modelsDir)
	}

	_, _ = fmt.Fprintf(stderr, "select a model from %s\n", modelsDir)
	for i, m := range models {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, modelDisplayName(modelsDir, m))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "enter selection [1-%d]: ", len(models))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; set --model-dir")
			}
			continue
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(models) {
			_, _ = fmt.Fprintf(stderr, "invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; set --model-dir")
			}
			continue
		}
		return models[idx-1], nil
	}
}

func modelDisplayName(modelsDir, modelPath string) string {
	rel, err := filepath.Rel(modelsDir, modelPath)
	if err != nil || rel == "." {
		return filepath.Base(modelPath)
	}
	return rel
}

func isCharDevice(f *os.File) bool {
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
