package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqchat/internal/chat"
	"github.com/samcharles93/seqchat/internal/logger"
)

func askCmd() *cli.Command {
	var prompt string
	flags := append(commonModelFlags(), decodeFlags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "prompt",
		Aliases:     []string{"p"},
		Usage:       "prompt text (defaults to the positional arguments)",
		Destination: &prompt,
	})

	return &cli.Command{
		Name:      "ask",
		Usage:     "Print a single reply",
		ArgsUsage: "[prompt words...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if !c.IsSet("prompt") {
				prompt = strings.Join(c.Args().Slice(), " ")
			}

			e, err := loadEngine(ctx, c)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			r, err := e.NewDecoder(decoderOptions(ctx)).Reply(prompt)
			if err != nil {
				logger.FromContext(ctx).Error("reply failed", "error", err)
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if showTokens && !r.Fallback {
				chat.WriteDiagnostics(os.Stderr, prompt, r)
			}
			fmt.Println(r.Text)
			return nil
		},
	}
}
