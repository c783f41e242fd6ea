package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqchat/internal/safetensors"
	"github.com/samcharles93/seqchat/internal/tokenizer"
)

func inspectCmd() *cli.Command {
	var (
		showTensors  bool
		tensorFilter string
		tensorLimit  int
	)
	flags := append(commonModelFlags(),
		&cli.BoolFlag{Name: "tensors", Usage: "list tensors in the weights file", Destination: &showTensors},
		&cli.StringFlag{Name: "tensor-filter", Usage: "substring filter for tensor listing", Destination: &tensorFilter},
		&cli.IntFlag{Name: "tensors-limit", Usage: "limit tensor listing (0 = no limit)", Value: 50, Destination: &tensorLimit},
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Describe a model directory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := loadEngine(ctx, c)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			m := e.Model()
			cfg := m.Config()
			paths := e.Paths()
			params := m.ParamCount()

			fmt.Println("Model")
			fmt.Printf("  config:              %s\n", paths.Config)
			fmt.Printf("  weights:             %s (%s)\n", paths.Weights, humanize.Bytes(uint64(e.WeightsSize())))
			fmt.Printf("  parameters:          %s (%s)\n", humanize.Comma(int64(params)), humanize.SIWithDigits(float64(params), 2, ""))
			fmt.Printf("  layers:              %d\n", cfg.NumLayers)
			fmt.Printf("  d_model:             %d\n", cfg.DModel)
			fmt.Printf("  heads:               %d (head dim %d)\n", cfg.NumHeads, cfg.HeadDim())
			fmt.Printf("  dff:                 %d\n", cfg.DFF)
			fmt.Printf("  max position:        %d\n", cfg.MaxPosition)
			fmt.Printf("  positional encoding: %s\n", cfg.PositionalEncoding)
			fmt.Printf("  output classes:      %s\n", humanize.Comma(int64(cfg.VocabSize)))

			tok := e.Tokenizer()
			fmt.Println("Tokenizer")
			fmt.Printf("  file:                %s\n", paths.Tokenizer)
			fmt.Printf("  kind:                %s\n", e.TokenizerKind())
			fmt.Printf("  vocab size:          %s\n", humanize.Comma(int64(tok.VocabSize())))
			fmt.Printf("  START / END ids:     %d / %d\n", tok.VocabSize(), tok.VocabSize()+1)
			if sw, ok := tok.(*tokenizer.Subword); ok {
				fmt.Printf("  subwords:            %s\n", humanize.Comma(int64(len(sw.Subwords()))))
				printMetadata(sw.Metadata())
			}

			if !showTensors {
				return nil
			}
			st, err := safetensors.Open(paths.Weights)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open weights: %v", err), 1)
			}
			printTensors(st, tensorFilter, tensorLimit)
			return nil
		},
	}
}

func printTensors(st *safetensors.File, filter string, limit int) {
	names := st.Names()
	fmt.Println("Tensors")
	if len(st.Metadata) > 0 {
		keys := make([]string, 0, len(st.Metadata))
		for k := range st.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  metadata %s=%s\n", k, st.Metadata[k])
		}
	}
	shown := 0
	for _, name := range names {
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		if limit > 0 && shown >= limit {
			fmt.Printf("  ... (%d more, raise --tensors-limit)\n", countMatching(names, filter)-shown)
			return
		}
		info, _ := st.Tensor(name)
		fmt.Printf("  %-48s %-5s %v\n", name, info.DType, info.Shape)
		shown++
	}
}

func countMatching(names []string, filter string) int {
	if filter == "" {
		return len(names)
	}
	n := 0
	for _, name := range names {
		if strings.Contains(name, filter) {
			n++
		}
	}
	return n
}

func printMetadata(meta map[string]any) {
	if len(meta) == 0 {
		return
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("  metadata:")
	for _, k := range keys {
		fmt.Printf("    %-18s %v\n", k+":", meta[k])
	}
}
