package seq2seq

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// Positional encoding layouts. Keras ports of the transformer tutorial
// differ in how the sine and cosine halves are arranged.
const (
	PosInterleaved = "interleaved"
	PosConcat      = "concat"
)

// Config describes the exported model (config.json).
type Config struct {
	// VocabSize counts the output classes: the tokenizer vocabulary plus the
	// START and END control ids.
	VocabSize          int     `json:"vocab_size"`
	NumLayers          int     `json:"num_layers"`
	DModel             int     `json:"d_model"`
	NumHeads           int     `json:"num_heads"`
	DFF                int     `json:"dff"`
	MaxPosition        int     `json:"max_position,omitempty"`
	PositionalEncoding string  `json:"positional_encoding,omitempty"`
	LayerNormEps       float32 `json:"layer_norm_eps,omitempty"`
}

// LoadConfig reads and validates a config.json file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(raw)
}

// ParseConfig decodes config JSON, applies defaults and validates it.
func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse model config: %w", err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.MaxPosition == 0 {
		// Exported checkpoints size the positional table by vocabulary.
		c.MaxPosition = c.VocabSize
	}
	if c.PositionalEncoding == "" {
		c.PositionalEncoding = PosInterleaved
	}
	if c.LayerNormEps == 0 {
		c.LayerNormEps = 1e-6
	}
	return c
}

// Validate reports the first inconsistency in the configuration.
func (c Config) Validate() error {
	switch {
	case c.VocabSize <= 2:
		return fmt.Errorf("vocab_size must exceed 2 (got %d)", c.VocabSize)
	case c.NumLayers <= 0:
		return fmt.Errorf("num_layers must be positive (got %d)", c.NumLayers)
	case c.DModel <= 0:
		return fmt.Errorf("d_model must be positive (got %d)", c.DModel)
	case c.NumHeads <= 0:
		return fmt.Errorf("num_heads must be positive (got %d)", c.NumHeads)
	case c.DModel%c.NumHeads != 0:
		return fmt.Errorf("d_model %d is not divisible by num_heads %d", c.DModel, c.NumHeads)
	case c.DFF <= 0:
		return fmt.Errorf("dff must be positive (got %d)", c.DFF)
	case c.MaxPosition <= 0:
		return fmt.Errorf("max_position must be positive (got %d)", c.MaxPosition)
	case c.LayerNormEps < 0:
		return fmt.Errorf("layer_norm_eps must not be negative")
	}
	if c.PositionalEncoding != PosInterleaved && c.PositionalEncoding != PosConcat {
		return fmt.Errorf("unknown positional_encoding %q", c.PositionalEncoding)
	}
	return nil
}

// HeadDim is the per-head width of the attention projections.
func (c Config) HeadDim() int {
	return c.DModel / c.NumHeads
}

func (c Config) marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
