package tokenizer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Tokenizer converts between text and vocabulary ids. Implementations are
// read-only after construction and may be shared between decode calls.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	// VocabSize is the number of ids Encode can produce. Ids at or above it
	// are free for callers to use as control tokens.
	VocabSize() int
}

// TokenStringer is implemented by tokenizers that can show the vocabulary
// piece behind a single id.
type TokenStringer interface {
	TokenString(id int) string
}

// Pieces maps ids to their vocabulary pieces. It returns nil when tok does
// not implement TokenStringer.
func Pieces(tok Tokenizer, ids []int) []string {
	ts, ok := tok.(TokenStringer)
	if !ok {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = ts.TokenString(id)
	}
	return out
}

// Kind names a tokenizer file format.
type Kind string

const (
	KindSubword Kind = "subword"
	KindHFBPE   Kind = "hf-bpe"
)

// DetectKind infers the tokenizer format from a file name.
func DetectKind(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".subwords", ".txt":
		return KindSubword, nil
	case ".json":
		return KindHFBPE, nil
	default:
		return "", fmt.Errorf("unrecognised tokenizer file %q (want .subwords or tokenizer.json)", path)
	}
}

// Load reads a tokenizer from path, choosing the implementation from the
// file extension.
func Load(path string) (Tokenizer, Kind, error) {
	kind, err := DetectKind(path)
	if err != nil {
		return nil, "", err
	}
	switch kind {
	case KindSubword:
		tok, err := LoadSubwordFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("load subword vocabulary: %w", err)
		}
		return tok, kind, nil
	default:
		tok, err := LoadHFTokenizer(path)
		if err != nil {
			return nil, "", fmt.Errorf("load tokenizer.json: %w", err)
		}
		return tok, kind, nil
	}
}
