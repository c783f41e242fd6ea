package inference

import (
	"errors"
	"io"

	"github.com/samcharles93/seqchat/internal/logger"
	"github.com/samcharles93/seqchat/internal/seq2seq"
	"github.com/samcharles93/seqchat/internal/tokenizer"
)

// ErrVocabMismatch is returned when the model's output classes do not equal
// the tokenizer vocabulary plus the two control ids.
var ErrVocabMismatch = errors.New("inference: model and tokenizer vocabularies disagree")

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	// MaxLength bounds generated tokens per reply. Zero or negative means
	// MaxLength; values above MaxLengthLimit are clamped to it.
	MaxLength int
	// TraceCandidates, when positive, logs that many top candidates per step
	// at debug level.
	TraceCandidates int
	Logger          logger.Logger
}

func (o DecoderOptions) withDefaults() DecoderOptions {
	if o.MaxLength <= 0 {
		o.MaxLength = MaxLength
	}
	o.MaxLength = min(o.MaxLength, MaxLengthLimit)
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	return o
}

// Engine holds a loaded model and tokenizer. Both are read-only, so the
// Engine can hand out any number of Decoders.
type Engine struct {
	model     *seq2seq.Model
	tok       tokenizer.Tokenizer
	tokKind   tokenizer.Kind
	paths     Paths
	sizeBytes int64
}

// Paths lists the files an Engine was loaded from.
type Paths struct {
	Config    string
	Weights   string
	Tokenizer string
}

func (e *Engine) NewDecoder(opts DecoderOptions) *Decoder {
	return NewDecoder(e.model, e.tok, opts)
}

func (e *Engine) Model() *seq2seq.Model         { return e.model }
func (e *Engine) Tokenizer() tokenizer.Tokenizer { return e.tok }
func (e *Engine) TokenizerKind() tokenizer.Kind  { return e.tokKind }
func (e *Engine) Paths() Paths                   { return e.paths }

// WeightsSize is the size in bytes of the weights file.
func (e *Engine) WeightsSize() int64 { return e.sizeBytes }

// Close releases the engine. Weights are fully read at load time, so there
// is nothing to unmap.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.model = nil
	e.tok = nil
	return nil
}

var _ io.Closer = (*Engine)(nil)
