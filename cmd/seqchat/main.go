package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqchat/internal/logger"
)

// fileConfig holds the YAML settings loaded before any command runs.
var fileConfig Config

func main() {
	app := &cli.Command{
		Name:  "seqchat",
		Usage: "Greedy seq2seq transformer chatbot",
		Flags: loggingFlags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configPath())
			applyLoggingConfig(c, cfg)
			log := logger.Setup(os.Stderr, logFormat, effectiveLevel(), noColor)
			if err != nil {
				log.Warn("ignoring config file", "error", err)
				cfg = Config{}
			}
			fileConfig = cfg
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			chatCmd(),
			askCmd(),
			tokenizeCmd(),
			inspectCmd(),
			scaffoldCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
