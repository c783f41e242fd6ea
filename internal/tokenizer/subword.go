package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

const (
	// underscoreEscape replaces literal underscores inside tokens so that a
	// trailing "_" can mark a following space.
	underscoreEscape = `\&undsc`
	numByteIDs       = 256
	metadataPrefix   = "### Metadata: "
)

// Subword is a SubwordTextEncoder-compatible tokenizer.
//
// Id layout: 0 is padding, 1..len(subwords) are vocabulary subwords and the
// following 256 ids encode raw bytes for text the vocabulary cannot cover.
type Subword struct {
	subwords []string
	ids      map[string]int
	maxLen   int
	metadata map[string]any
}

// NewSubword builds a tokenizer from an ordered subword list.
func NewSubword(subwords []string) (*Subword, error) {
	if len(subwords) == 0 {
		return nil, fmt.Errorf("empty subword list")
	}
	s := &Subword{
		subwords: append([]string(nil), subwords...),
		ids:      make(map[string]int, len(subwords)),
		maxLen:   utf8.RuneCountInString(underscoreEscape),
	}
	for i, w := range subwords {
		if w == "" {
			return nil, fmt.Errorf("subword %d is empty", i)
		}
		s.ids[w] = i
		s.maxLen = max(s.maxLen, utf8.RuneCountInString(w))
	}
	return s, nil
}

// LoadSubwordFile reads a ".subwords" vocabulary file.
func LoadSubwordFile(path string) (*Subword, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadSubwords(f)
}

// ReadSubwords parses the vocabulary file format: one single-quoted subword
// per line, "#" lines are comments and "### Metadata: {json}" carries
// free-form metadata.
func ReadSubwords(r io.Reader) (*Subword, error) {
	var (
		words []string
		meta  map[string]any
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if strings.HasPrefix(text, metadataPrefix) {
			if err := json.Unmarshal([]byte(text[len(metadataPrefix):]), &meta); err != nil {
				return nil, fmt.Errorf("line %d: parse metadata: %w", line, err)
			}
			continue
		}
		if strings.HasPrefix(text, "#") {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
			text = text[1 : len(text)-1]
		}
		if text == "" {
			return nil, fmt.Errorf("line %d: empty subword", line)
		}
		words = append(words, text)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	s, err := NewSubword(words)
	if err != nil {
		return nil, err
	}
	s.metadata = meta
	return s, nil
}

// WriteSubwords writes the vocabulary in the format ReadSubwords accepts.
func WriteSubwords(w io.Writer, subwords []string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "### SubwordTextEncoder\n%s{}\n", metadataPrefix); err != nil {
		return err
	}
	for _, s := range subwords {
		if _, err := fmt.Fprintf(bw, "'%s'\n", s); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (s *Subword) VocabSize() int {
	return 1 + len(s.subwords) + numByteIDs
}

// Subwords returns a copy of the vocabulary in id order (id = index + 1).
func (s *Subword) Subwords() []string {
	return append([]string(nil), s.subwords...)
}

// Metadata returns the metadata stored in the vocabulary file, if any.
func (s *Subword) Metadata() map[string]any {
	return s.metadata
}

// TokenString returns the vocabulary piece for id. Byte fallback ids render
// as <0xNN> and padding as <pad>.
func (s *Subword) TokenString(id int) string {
	switch {
	case id == 0:
		return "<pad>"
	case id < 0 || id >= s.VocabSize():
		return ""
	case id <= len(s.subwords):
		return s.subwords[id-1]
	default:
		return fmt.Sprintf("<0x%02X>", id-1-len(s.subwords))
	}
}

func (s *Subword) Encode(text string) ([]int, error) {
	tokens := prepareTokens(splitWordRuns(text))
	var ids []int
	for _, tok := range tokens {
		for _, piece := range s.segment(tok) {
			ids = append(ids, s.pieceIDs(piece)...)
		}
	}
	// Shift past the padding id.
	for i := range ids {
		ids[i]++
	}
	return ids, nil
}

func (s *Subword) Decode(ids []int) (string, error) {
	end := len(ids)
	for end > 0 && ids[end-1] == 0 {
		end--
	}
	var (
		out     strings.Builder
		pending []byte
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		out.WriteString(strings.ToValidUTF8(string(pending), "�"))
		pending = pending[:0]
	}
	for _, raw := range ids[:end] {
		id := raw - 1
		if id < 0 || id >= s.VocabSize()-1 {
			return "", fmt.Errorf("token id out of range: %d", raw)
		}
		if id >= len(s.subwords) {
			pending = append(pending, byte(id-len(s.subwords)))
			continue
		}
		flush()
		w := s.subwords[id]
		space := strings.HasSuffix(w, "_")
		if space {
			w = w[:len(w)-1]
		}
		out.WriteString(strings.ReplaceAll(w, underscoreEscape, "_"))
		if space {
			out.WriteByte(' ')
		}
	}
	flush()
	return out.String(), nil
}

// segment splits a prepared token into vocabulary subwords, longest match
// first. Runes with no match are emitted on their own.
func (s *Subword) segment(token string) []string {
	runes := []rune(token)
	var out []string
	for start := 0; start < len(runes); {
		matched := false
		for end := min(len(runes), start+s.maxLen); end > start; end-- {
			cand := string(runes[start:end])
			if _, ok := s.ids[cand]; ok || cand == underscoreEscape {
				out = append(out, cand)
				start = end
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, string(runes[start]))
			start++
		}
	}
	return out
}

// pieceIDs returns unshifted ids for one segmented piece.
func (s *Subword) pieceIDs(piece string) []int {
	offset := len(s.subwords)
	if piece == underscoreEscape {
		return []int{offset + '_'}
	}
	if id, ok := s.ids[piece]; ok {
		return []int{id}
	}
	if piece == "_" {
		return []int{offset + ' '}
	}
	ids := make([]int, 0, len(piece))
	for _, b := range []byte(piece) {
		ids = append(ids, offset+int(b))
	}
	return ids
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// splitWordRuns splits text into maximal runs of word and non-word runes,
// keeping both kinds.
func splitWordRuns(text string) []string {
	var out []string
	start := 0
	var prevWord bool
	for i, r := range text {
		w := isWordRune(r)
		if i > 0 && w != prevWord {
			out = append(out, text[start:i])
			start = i
		}
		prevWord = w
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// prepareTokens escapes underscores and folds a following single space into
// a trailing "_".
func prepareTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := strings.ReplaceAll(tokens[i], "_", underscoreEscape)
		if i+1 < len(tokens) && tokens[i+1] == " " {
			t += "_"
			i++
		}
		out = append(out, t)
	}
	return out
}
