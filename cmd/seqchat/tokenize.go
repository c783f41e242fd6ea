package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqchat/internal/inference"
	"github.com/samcharles93/seqchat/internal/tokenizer"
)

func tokenizeCmd() *cli.Command {
	var (
		text    string
		tokFile string
	)
	return &cli.Command{
		Name:      "tokenize",
		Usage:     "Show how a prompt is normalized and encoded",
		ArgsUsage: "[text...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "tokenizer",
				Aliases:     []string{"t"},
				Usage:       "tokenizer file (.subwords or tokenizer.json)",
				Destination: &tokFile,
			},
			&cli.StringFlag{
				Name:        "model-dir",
				Aliases:     []string{"m"},
				Usage:       "model directory to take the tokenizer from",
				Sources:     cli.EnvVars(envModelDir),
				Destination: &modelDir,
			},
			&cli.StringFlag{
				Name:        "text",
				Usage:       "text to encode (defaults to the positional arguments)",
				Destination: &text,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if !c.IsSet("text") {
				text = strings.Join(c.Args().Slice(), " ")
			}
			applyModelConfig(c, fileConfig)

			path := tokFile
			if path == "" {
				if modelDir == "" {
					return cli.Exit("error: --tokenizer or --model-dir is required", 1)
				}
				p, err := inference.FindTokenizer(modelDir)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				path = p
			}

			tok, kind, err := tokenizer.Load(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			norm := inference.Normalize(text)
			ids, err := tok.Encode(norm)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: encode: %v", err), 1)
			}
			decoded, err := tok.Decode(ids)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: decode: %v", err), 1)
			}
			start, end := tok.VocabSize(), tok.VocabSize()+1

			fmt.Printf("tokenizer:     %s (%s, vocab %d)\n", path, kind, tok.VocabSize())
			fmt.Printf("normalized:    %q\n", norm)
			fmt.Printf("ids:           %v\n", ids)
			if pieces := tokenizer.Pieces(tok, ids); pieces != nil {
				fmt.Printf("pieces:        %q\n", pieces)
			}
			if len(ids) > 0 {
				enc := append(append([]int{start}, ids...), end)
				fmt.Printf("encoder input: %v\n", enc)
			} else {
				fmt.Printf("encoder input: (empty, reply would be %q)\n", inference.FallbackReply)
			}
			fmt.Printf("decoded:       %q\n", decoded)
			return nil
		},
	}
}
