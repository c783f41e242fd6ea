//go:build !linux

package main

import (
	"io"
	"os"

	"github.com/samcharles93/seqchat/internal/chat"
)

func newLineReader(in *os.File, out io.Writer) chat.LineReader {
	return chat.NewScannerReader(in, out)
}
