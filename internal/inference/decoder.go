// Package inference implements greedy autoregressive reply generation on top
// of a sequence-to-sequence model and a tokenizer.
package inference

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samcharles93/seqchat/internal/logger"
	"github.com/samcharles93/seqchat/internal/logits"
	"github.com/samcharles93/seqchat/internal/tokenizer"
)

const (
	// MaxLength bounds the number of generated tokens per reply.
	MaxLength = 40
	// MaxLengthLimit is the largest per-reply bound a caller may request.
	MaxLengthLimit = 512
	// FallbackReply is returned for prompts that produce nothing to decode.
	FallbackReply = "cannot respond"
)

// ErrLogitsSize is returned when the model produces a score vector whose
// length does not match its vocabulary.
var ErrLogitsSize = errors.New("inference: logits length does not match model vocabulary")

// ErrMaxLength is returned by CheckMaxLength for bounds outside
// 1..MaxLengthLimit.
var ErrMaxLength = errors.New("inference: max length out of range")

// CheckMaxLength validates a per-reply token bound requested by a user.
func CheckMaxLength(n int) error {
	if n < 1 || n > MaxLengthLimit {
		return fmt.Errorf("%d not in 1..%d: %w", n, MaxLengthLimit, ErrMaxLength)
	}
	return nil
}

// SequenceModel scores the next decoder token given the full encoder input
// and the decoder prefix. Implementations must be safe to share read-only.
type SequenceModel interface {
	Logits(encoderIDs, decoderIDs []int) ([]float32, error)
	// VocabSize is the length of the score vector: tokenizer ids plus the
	// START and END control ids.
	VocabSize() int
}

// Reply is the outcome of one decode call.
type Reply struct {
	Text         string
	Prompt       string // normalized
	EncoderInput []int
	Output       []int // raw, starting with START
	Filtered     []int
	State        State
	Fallback     bool
	Steps        int
	Duration     time.Duration
}

// Decoder generates replies greedily. It holds no per-call state, so one
// Decoder may serve several sequential or concurrent calls.
type Decoder struct {
	model     SequenceModel
	tok       tokenizer.Tokenizer
	maxLength int
	topK      int
	log       logger.Logger
}

// NewDecoder builds a Decoder over model and tok. A zero opts gives the
// default MaxLength and a discarding logger.
func NewDecoder(model SequenceModel, tok tokenizer.Tokenizer, opts DecoderOptions) *Decoder {
	opts = opts.withDefaults()
	return &Decoder{
		model:     model,
		tok:       tok,
		maxLength: opts.MaxLength,
		topK:      opts.TraceCandidates,
		log:       opts.Logger,
	}
}

// Start is the control id that opens every sequence.
func (d *Decoder) Start() int { return d.tok.VocabSize() }

// End is the control id that closes every sequence.
func (d *Decoder) End() int { return d.tok.VocabSize() + 1 }

// Normalize prepares raw user input for tokenization.
func Normalize(prompt string) string {
	return strings.ToLower(strings.TrimSpace(prompt))
}

// GenerateReply returns only the reply text. Errors are logged and reported
// as the fallback message.
func (d *Decoder) GenerateReply(prompt string) string {
	r, err := d.Reply(prompt)
	if err != nil {
		d.log.Error("decode failed", "error", err)
		return FallbackReply
	}
	return r.Text
}

// Reply runs one greedy decode for prompt.
func (d *Decoder) Reply(prompt string) (*Reply, error) {
	started := time.Now()
	vocab := d.tok.VocabSize()
	start, end := d.Start(), d.End()

	r := &Reply{Prompt: Normalize(prompt), State: StateNotStarted}
	finish := func() *Reply {
		r.Duration = time.Since(started)
		return r
	}

	ids, err := safeEncode(d.tok, r.Prompt)
	if err != nil {
		d.log.Warn("prompt could not be encoded", "error", err)
	}
	if err != nil || len(ids) == 0 {
		r.Text = FallbackReply
		r.Fallback = true
		if err == nil {
			d.log.Warn("prompt produced no tokens")
		}
		return finish(), nil
	}

	r.EncoderInput = make([]int, 0, len(ids)+2)
	r.EncoderInput = append(r.EncoderInput, start)
	r.EncoderInput = append(r.EncoderInput, ids...)
	r.EncoderInput = append(r.EncoderInput, end)

	r.Output = make([]int, 1, d.maxLength+1)
	r.Output[0] = start
	r.State = StateDecoding

	prev := -1
	for r.Steps < d.maxLength {
		scores, err := d.model.Logits(r.EncoderInput, r.Output)
		if err != nil {
			return nil, fmt.Errorf("model step %d: %w", r.Steps, err)
		}
		if len(scores) != d.model.VocabSize() {
			return nil, fmt.Errorf("model step %d: got %d scores, want %d: %w", r.Steps, len(scores), d.model.VocabSize(), ErrLogitsSize)
		}
		next, err := logits.Argmax(scores)
		if err != nil {
			return nil, fmt.Errorf("model step %d: %w", r.Steps, err)
		}
		r.Steps++
		if d.topK > 0 {
			d.log.Debug("decode step", "step", r.Steps, "next", next, "candidates", logits.TopK(scores, d.topK))
		}

		if next == end {
			r.State = StateStoppedEOS
			break
		}
		if next == prev {
			r.State = StateStoppedRepeat
			d.log.Warn("repetition detected", "token", next, "step", r.Steps)
			break
		}
		r.Output = append(r.Output, next)
		prev = next
	}
	if r.State == StateDecoding {
		r.State = StateStoppedMaxLength
	}

	r.Filtered = make([]int, 0, len(r.Output))
	for _, id := range r.Output {
		if id < vocab {
			r.Filtered = append(r.Filtered, id)
		}
	}
	if len(r.Filtered) == 0 {
		r.Text = FallbackReply
		r.Fallback = true
		return finish(), nil
	}

	text, err := d.tok.Decode(r.Filtered)
	if err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	r.Text = text
	d.log.Debug("reply generated", "state", r.State.String(), "steps", r.Steps, "tokens", len(r.Filtered))
	return finish(), nil
}

func safeEncode(tok tokenizer.Tokenizer, text string) (ids []int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Encode: %v", rec)
		}
	}()
	return tok.Encode(text)
}
