package inference

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/seqchat/internal/safetensors"
	"github.com/samcharles93/seqchat/internal/seq2seq"
	"github.com/samcharles93/seqchat/internal/tokenizer"
)

// Loader locates and loads a model directory. Explicit paths override the
// files found in ModelDir.
type Loader struct {
	ModelDir      string
	WeightsPath   string
	ConfigPath    string
	TokenizerPath string
	// Progress receives a progress bar while weights are read. Nil
	// disables it.
	Progress io.Writer
}

// Resolve returns the file paths Load would use without reading them.
func (l Loader) Resolve() (Paths, error) {
	dir := strings.TrimSpace(l.ModelDir)
	p := Paths{Config: l.ConfigPath, Weights: l.WeightsPath, Tokenizer: l.TokenizerPath}
	if dir == "" && (p.Config == "" || p.Weights == "" || p.Tokenizer == "") {
		return Paths{}, fmt.Errorf("model directory is required (or pass --config, --weights and --tokenizer)")
	}
	if p.Config == "" {
		p.Config = filepath.Join(dir, seq2seq.ConfigFile)
	}
	if p.Weights == "" {
		p.Weights = filepath.Join(dir, seq2seq.WeightsFile)
	}
	if p.Tokenizer == "" {
		tok, err := FindTokenizer(dir)
		if err != nil {
			return Paths{}, err
		}
		p.Tokenizer = tok
	}
	return p, nil
}

// FindTokenizer returns the tokenizer file in a model directory, preferring
// the subword vocabulary.
func FindTokenizer(dir string) (string, error) {
	for _, name := range []string{seq2seq.SubwordsFile, seq2seq.HFTokenizerFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	// Vocabularies saved by tfds carry a configurable prefix.
	matches, _ := filepath.Glob(filepath.Join(dir, "*.subwords"))
	if len(matches) > 0 {
		return matches[0], nil
	}
	return "", fmt.Errorf("no tokenizer found in %s (want %s or %s)", dir, seq2seq.SubwordsFile, seq2seq.HFTokenizerFile)
}

// Load reads the tokenizer, config and weights and checks they agree.
func (l Loader) Load() (*Engine, error) {
	paths, err := l.Resolve()
	if err != nil {
		return nil, err
	}

	tok, kind, err := tokenizer.Load(paths.Tokenizer)
	if err != nil {
		return nil, err
	}

	cfg, err := seq2seq.LoadConfig(paths.Config)
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}
	if want := tok.VocabSize() + 2; cfg.VocabSize != want {
		return nil, fmt.Errorf("config vocab_size %d, tokenizer implies %d: %w", cfg.VocabSize, want, ErrVocabMismatch)
	}

	st, err := safetensors.Open(paths.Weights)
	if err != nil {
		return nil, fmt.Errorf("open weights: %w", err)
	}
	m, err := seq2seq.LoadWeights(cfg, st, l.Progress)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}

	return &Engine{
		model:     m,
		tok:       tok,
		tokKind:   kind,
		paths:     paths,
		sizeBytes: st.Size,
	}, nil
}
