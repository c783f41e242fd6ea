// Package chat runs the interactive You/Bot conversation loop.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/seqchat/internal/inference"
	"github.com/samcharles93/seqchat/internal/logger"
)

// QuitCommand ends a session. It is matched case-insensitively and never
// reaches the decoder.
const QuitCommand = "quit"

// Replier produces one reply per prompt. *inference.Decoder satisfies it.
type Replier interface {
	Reply(prompt string) (*inference.Reply, error)
}

// Options configures a Session.
type Options struct {
	// ShowTokens prints the Input, Output, Raw prediction and Filtered
	// diagnostics for each reply to Diag.
	ShowTokens bool
	Diag       io.Writer
	Styles     *Styles
	Logger     logger.Logger
}

// Session is one interactive conversation. Turns are independent: no
// history is fed back to the model.
type Session struct {
	ID uuid.UUID

	replier    Replier
	lines      LineReader
	out        io.Writer
	diag       io.Writer
	styles     Styles
	showTokens bool
	log        logger.Logger
	turns      int
}

func New(r Replier, lines LineReader, out io.Writer, opts Options) *Session {
	s := &Session{
		ID:         uuid.New(),
		replier:    r,
		lines:      lines,
		out:        out,
		diag:       opts.Diag,
		showTokens: opts.ShowTokens,
	}
	if opts.Styles != nil {
		s.styles = *opts.Styles
	} else {
		s.styles = PlainStyles()
	}
	if s.diag == nil {
		s.diag = out
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	s.log = log.With("session_id", s.ID.String())
	return s
}

// Turns returns the number of prompts answered so far.
func (s *Session) Turns() int { return s.turns }

// Run reads prompts until quit, EOF or ctx is cancelled. Decode failures
// are logged and answered with the fallback reply; only I/O errors end the
// session early.
func (s *Session) Run(ctx context.Context) error {
	s.log.Info("session started")
	defer func() { s.log.Info("session ended", "turns", s.turns) }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.lines.ReadLine(s.styles.Prompt())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if strings.EqualFold(line, QuitCommand) {
			return nil
		}
		if err := s.Turn(line); err != nil {
			return err
		}
	}
}

// Turn answers a single prompt.
func (s *Session) Turn(line string) error {
	turnID := uuid.New()
	log := s.log.With("turn_id", turnID.String())
	s.turns++

	start := time.Now()
	r, err := s.replier.Reply(line)
	text := inference.FallbackReply
	if err != nil {
		log.Error("reply failed", "error", err)
	} else {
		text = r.Text
		log.Debug("reply ready",
			"state", r.State.String(),
			"steps", r.Steps,
			"fallback", r.Fallback,
			"elapsed", time.Since(start),
		)
		if s.showTokens && !r.Fallback {
			WriteDiagnostics(s.diag, line, r)
		}
	}

	_, werr := fmt.Fprintln(s.out, s.styles.BotLine(text))
	return werr
}

// WriteDiagnostics prints the token-level view of one reply.
func WriteDiagnostics(w io.Writer, input string, r *inference.Reply) {
	fmt.Fprintf(w, "Input: %s\n", input)
	fmt.Fprintf(w, "Output: %s\n", r.Text)
	fmt.Fprintf(w, "Raw prediction: %s\n", formatIDs(r.Output))
	fmt.Fprintf(w, "Filtered: %s\n", formatIDs(r.Filtered))
}

// formatIDs prints ids as a bracketed, comma-separated list.
func formatIDs(ids []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", id)
	}
	b.WriteByte(']')
	return b.String()
}
