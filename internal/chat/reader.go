package chat

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// LineReader reads one line of user input after showing prompt. It returns
// io.EOF when input is exhausted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// ScannerReader reads lines from a plain stream, such as a pipe.
type ScannerReader struct {
	sc  *bufio.Scanner
	out io.Writer
}

// NewScannerReader echoes the prompt to out (which may be nil) and reads
// from in.
func NewScannerReader(in io.Reader, out io.Writer) *ScannerReader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	return &ScannerReader{sc: sc, out: out}
}

func (r *ScannerReader) ReadLine(prompt string) (string, error) {
	if r.out != nil {
		if _, err := fmt.Fprint(r.out, prompt); err != nil {
			return "", err
		}
	}
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSuffix(r.sc.Text(), "\r"), nil
}
