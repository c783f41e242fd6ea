package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqchat/internal/chat"
	"github.com/samcharles93/seqchat/internal/logger"
)

func chatCmd() *cli.Command {
	flags := append(commonModelFlags(), decodeFlags()...)
	return &cli.Command{
		Name:  "chat",
		Usage: "Chat interactively; type quit to exit",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := loadEngine(ctx, c)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			styles := chat.NewStyles(os.Stdout, noColor)
			s := chat.New(e.NewDecoder(decoderOptions(ctx)), newLineReader(os.Stdin, os.Stdout), os.Stdout, chat.Options{
				ShowTokens: showTokens,
				Diag:       os.Stderr,
				Styles:     &styles,
				Logger:     logger.FromContext(ctx),
			})
			return s.Run(ctx)
		},
	}
}
