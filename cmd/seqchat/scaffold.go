package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqchat/internal/logger"
	"github.com/samcharles93/seqchat/internal/seq2seq"
	"github.com/samcharles93/seqchat/internal/tokenizer"
)

// defaultSubwords seeds the smoke-test vocabulary. Anything outside it is
// still encodable through the byte fallback.
var defaultSubwords = []string{
	"hello_", "hi_", "how_", "are_", "you_", "i_", "am_", "fine_",
	"thanks_", "what_", "is_", "your_", "name_", "my_", "the_", "a_",
	"good_", "morning_", "bye_", "?", "!", ".", ",",
}

func scaffoldCmd() *cli.Command {
	var (
		out       string
		vocabFile string
		layers    int
		dModel    int
		heads     int
		dff       int
		seed      int64
		posLayout string
		force     bool
	)
	return &cli.Command{
		Name:  "scaffold",
		Usage: "Write a random-weight model directory for smoke tests",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Required: true, Destination: &out},
			&cli.StringFlag{Name: "vocab", Usage: "subword vocabulary file to reuse", Destination: &vocabFile},
			&cli.IntFlag{Name: "layers", Usage: "encoder and decoder layers", Value: 2, Destination: &layers},
			&cli.IntFlag{Name: "d-model", Usage: "model width", Value: 32, Destination: &dModel},
			&cli.IntFlag{Name: "heads", Usage: "attention heads", Value: 4, Destination: &heads},
			&cli.IntFlag{Name: "dff", Usage: "feed-forward width", Value: 64, Destination: &dff},
			&cli.Int64Flag{Name: "seed", Usage: "weight seed", Value: 1, Destination: &seed},
			&cli.StringFlag{Name: "positional-encoding", Usage: "interleaved or concat", Value: seq2seq.PosInterleaved, Destination: &posLayout},
			&cli.BoolFlag{Name: "force", Usage: "overwrite an existing model directory", Destination: &force},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)

			if !force && hasModelConfig(out) {
				return cli.Exit(fmt.Sprintf("error: %s already holds a model (use --force)", out), 1)
			}

			subwords := defaultSubwords
			if vocabFile != "" {
				tok, err := tokenizer.LoadSubwordFile(vocabFile)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: load vocabulary: %v", err), 1)
				}
				subwords = tok.Subwords()
			}

			m, err := seq2seq.Scaffold(out, seq2seq.Config{
				NumLayers:          layers,
				DModel:             dModel,
				NumHeads:           heads,
				DFF:                dff,
				PositionalEncoding: posLayout,
			}, subwords, seed)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: scaffold: %v", err), 1)
			}

			log.Info("scaffolded model",
				"dir", out,
				"vocab_size", m.VocabSize(),
				"parameters", humanize.Comma(int64(m.ParamCount())),
			)
			_, _ = fmt.Fprintf(os.Stderr, "try: seqchat chat --model-dir %s\n", out)
			return nil
		},
	}
}
