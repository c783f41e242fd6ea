package seq2seq

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/seqchat/internal/safetensors"
	"github.com/samcharles93/seqchat/internal/tensor"
	"github.com/samcharles93/seqchat/internal/tokenizer"
)

// File names inside a model directory.
const (
	ConfigFile      = "config.json"
	WeightsFile     = "model.safetensors"
	SubwordsFile    = "tokenizer.subwords"
	HFTokenizerFile = "tokenizer.json"
)

// NewRandom returns a model with reproducible random weights. Layer norms
// start as identity. It exists for tests and smoke runs; the replies it
// produces are meaningless.
func NewRandom(cfg Config, seed int64) (*Model, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := newModel(cfg)
	for i, p := range m.params() {
		if isNormParam(p.name) {
			continue
		}
		tensor.FillRandVec(*p.data, seed+int64(i)*31, 0.5)
	}
	// Trained models never emit padding mid-reply, and subword decoding
	// rejects it there.
	m.output.Bias[0] = maskBias
	return m, nil
}

func isNormParam(name string) bool {
	return strings.HasSuffix(name, ".gamma") || strings.HasSuffix(name, ".beta")
}

// Save writes config.json and model.safetensors into dir.
func (m *Model) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := m.cfg.marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), raw, 0o644); err != nil {
		return err
	}
	tensors := make(map[string]safetensors.Tensor)
	for _, p := range m.params() {
		tensors[p.name] = safetensors.Tensor{Shape: p.shape, Data: *p.data}
	}
	return safetensors.WriteFile(filepath.Join(dir, WeightsFile), tensors, safetensors.WriteOptions{
		Metadata: map[string]string{"format": "seqchat"},
	})
}

// Scaffold writes a random model and a matching subword vocabulary into
// dir. cfg.VocabSize is derived from the vocabulary.
func Scaffold(dir string, cfg Config, subwords []string, seed int64) (*Model, error) {
	tok, err := tokenizer.NewSubword(subwords)
	if err != nil {
		return nil, err
	}
	cfg.VocabSize = tok.VocabSize() + 2
	m, err := NewRandom(cfg, seed)
	if err != nil {
		return nil, err
	}
	if err := m.Save(dir); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, SubwordsFile))
	if err != nil {
		return nil, err
	}
	if err := tokenizer.WriteSubwords(f, subwords); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return m, nil
}
