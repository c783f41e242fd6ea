//go:build linux

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/samcharles93/seqchat/internal/chat"
)

// newLineReader returns a raw-mode line editor with history when in is a
// terminal, and a plain line scanner otherwise.
func newLineReader(in *os.File, out io.Writer) chat.LineReader {
	if !isCharDevice(in) {
		return chat.NewScannerReader(in, out)
	}
	return &termReader{in: in, out: out}
}

// termReader edits one line at a time in raw mode. Supported keys:
// arrows, Home/End, Delete, Backspace, Ctrl+A/E/W, Ctrl+Left/Right,
// Alt+b/f/Backspace, Up/Down history, Ctrl+C and Ctrl+D on an empty line.
type termReader struct {
	in      *os.File
	out     io.Writer
	history []string
}

// lineState is the buffer being edited plus history navigation.
type lineState struct {
	r      *termReader
	prompt string
	line   []byte
	cursor int

	histPos      int
	histBrowsing bool
	histDraft    string
}

func (r *termReader) ReadLine(prompt string) (string, error) {
	fd := int(r.in.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	raw := *oldState
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return "", err
	}
	defer func() { _ = unix.IoctlSetTermios(fd, unix.TCSETS, oldState) }()

	fmt.Fprint(r.out, prompt)
	ls := &lineState{r: r, prompt: prompt, line: make([]byte, 0, 256), histPos: len(r.history)}

	var (
		buf    [16]byte
		esc    int
		escSeq strings.Builder
	)
	for {
		n, err := r.in.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			switch esc {
			case 1:
				esc = 0
				switch b {
				case '[':
					esc = 2
					escSeq.Reset()
				case 'b', 'B':
					ls.wordLeft()
				case 'f', 'F':
					ls.wordRight()
				case 127:
					ls.deleteWordBack()
				}
				continue
			case 2:
				escSeq.WriteByte(b)
				if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
					ls.csi(escSeq.String())
					esc = 0
				}
				continue
			}

			switch b {
			case 27:
				esc = 1
			case '\r', '\n':
				fmt.Fprint(r.out, "\r\n")
				s := string(ls.line)
				if strings.TrimSpace(s) != "" {
					r.history = append(r.history, s)
				}
				return s, nil
			case 3: // Ctrl+C
				fmt.Fprint(r.out, "^C\r\n")
				return "", io.EOF
			case 4: // Ctrl+D
				if len(ls.line) == 0 {
					fmt.Fprint(r.out, "\r\n")
					return "", io.EOF
				}
			case 127, 8:
				ls.backspace()
			case 1: // Ctrl+A
				ls.moveTo(0)
			case 5: // Ctrl+E
				ls.moveTo(len(ls.line))
			case 23: // Ctrl+W
				ls.deleteWordBack()
			default:
				if b >= 32 {
					ls.insert(b)
				}
			}
		}
	}
}

func (ls *lineState) redraw() {
	w := ls.r.out
	fmt.Fprintf(w, "\r%s%s\x1b[K", ls.prompt, ls.line)
	if ls.cursor < len(ls.line) {
		fmt.Fprintf(w, "\r%s%s", ls.prompt, ls.line[:ls.cursor])
	}
}

func (ls *lineState) moveTo(pos int) {
	ls.cursor = max(0, min(pos, len(ls.line)))
	ls.redraw()
}

func (ls *lineState) insert(b byte) {
	ls.line = append(ls.line, 0)
	copy(ls.line[ls.cursor+1:], ls.line[ls.cursor:])
	ls.line[ls.cursor] = b
	ls.cursor++
	ls.redraw()
}

func (ls *lineState) backspace() {
	if ls.cursor == 0 {
		return
	}
	ls.line = append(ls.line[:ls.cursor-1], ls.line[ls.cursor:]...)
	ls.cursor--
	ls.redraw()
}

func (ls *lineState) setLine(s string) {
	ls.line = append(ls.line[:0], s...)
	ls.cursor = len(ls.line)
	ls.redraw()
}

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

// wordStart returns the start of the word before pos.
func (ls *lineState) wordStart(pos int) int {
	for pos > 0 && isBlank(ls.line[pos-1]) {
		pos--
	}
	for pos > 0 && !isBlank(ls.line[pos-1]) {
		pos--
	}
	return pos
}

// wordEnd returns the end of the word after pos.
func (ls *lineState) wordEnd(pos int) int {
	for pos < len(ls.line) && isBlank(ls.line[pos]) {
		pos++
	}
	for pos < len(ls.line) && !isBlank(ls.line[pos]) {
		pos++
	}
	return pos
}

func (ls *lineState) wordLeft()  { ls.moveTo(ls.wordStart(ls.cursor)) }
func (ls *lineState) wordRight() { ls.moveTo(ls.wordEnd(ls.cursor)) }

func (ls *lineState) deleteWordBack() {
	start := ls.wordStart(ls.cursor)
	ls.line = append(ls.line[:start], ls.line[ls.cursor:]...)
	ls.cursor = start
	ls.redraw()
}

func (ls *lineState) deleteWordForward() {
	end := ls.wordEnd(ls.cursor)
	ls.line = append(ls.line[:ls.cursor], ls.line[end:]...)
	ls.redraw()
}

func (ls *lineState) historyUp() {
	hist := ls.r.history
	if len(hist) == 0 {
		return
	}
	if !ls.histBrowsing {
		ls.histDraft = string(ls.line)
		ls.histBrowsing = true
		ls.histPos = len(hist)
	}
	if ls.histPos > 0 {
		ls.histPos--
		ls.setLine(hist[ls.histPos])
	}
}

func (ls *lineState) historyDown() {
	if !ls.histBrowsing {
		return
	}
	hist := ls.r.history
	if ls.histPos < len(hist)-1 {
		ls.histPos++
		ls.setLine(hist[ls.histPos])
		return
	}
	ls.histPos = len(hist)
	ls.histBrowsing = false
	ls.setLine(ls.histDraft)
}

// csi handles the body of an ESC [ sequence.
func (ls *lineState) csi(seq string) {
	switch seq {
	case "A":
		ls.historyUp()
	case "B":
		ls.historyDown()
	case "D":
		ls.moveTo(ls.cursor - 1)
	case "C":
		ls.moveTo(ls.cursor + 1)
	case "H":
		ls.moveTo(0)
	case "F":
		ls.moveTo(len(ls.line))
	case "3~":
		if ls.cursor < len(ls.line) {
			ls.line = append(ls.line[:ls.cursor], ls.line[ls.cursor+1:]...)
			ls.redraw()
		}
	case "1;5D", "5D":
		ls.wordLeft()
	case "1;5C", "5C":
		ls.wordRight()
	case "3;5~":
		ls.deleteWordForward()
	}
}
