package tokenizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// HFTokenizer is a byte-level BPE tokenizer read from a Hugging Face
// tokenizer.json. Special-token insertion is left to the caller: the
// decoder brackets prompts with its own control ids.
type HFTokenizer struct {
	encoder      map[string]int
	decoder      []string
	bpeRanks     map[Pair]int
	byteEncoder  map[byte]string
	byteDecoder  map[string]byte
	pattern      *regexp.Regexp
	unkID        int
	ignoreMerges bool
	special      []string

	mu    sync.Mutex
	cache map[string][]string
}

type hfPreTokenizer struct {
	Type          string `json:"type"`
	Pretokenizers []struct {
		Type    string `json:"type"`
		Pattern struct {
			Regex string `json:"Regex"`
		} `json:"pattern"`
	} `json:"pretokenizers"`
}

type hfTokenizerJSON struct {
	Model struct {
		Type         string         `json:"type"`
		Vocab        map[string]int `json:"vocab"`
		Merges       []any          `json:"merges"`
		IgnoreMerges bool           `json:"ignore_merges"`
		UnkToken     string         `json:"unk_token"`
	} `json:"model"`
	PreTokenizer hfPreTokenizer `json:"pre_tokenizer"`
	AddedTokens  []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

func LoadHFTokenizer(path string) (*HFTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadHFTokenizerBytes(data)
}

func LoadHFTokenizerBytes(tokJSON []byte) (*HFTokenizer, error) {
	var tj hfTokenizerJSON
	if err := json.Unmarshal(tokJSON, &tj); err != nil {
		return nil, err
	}
	if strings.ToUpper(tj.Model.Type) != "BPE" {
		return nil, fmt.Errorf("unsupported tokenizer model: %s", tj.Model.Type)
	}

	encoder := make(map[string]int, len(tj.Model.Vocab))
	maxID := -1
	for tok, id := range tj.Model.Vocab {
		if id < 0 {
			return nil, fmt.Errorf("negative id %d for token %q", id, tok)
		}
		encoder[tok] = id
		maxID = max(maxID, id)
	}
	for _, at := range tj.AddedTokens {
		encoder[at.Content] = at.ID
		maxID = max(maxID, at.ID)
	}
	if maxID < 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	decoder := make([]string, maxID+1)
	for tok, id := range encoder {
		decoder[id] = tok
	}

	bpeRanks := make(map[Pair]int, len(tj.Model.Merges))
	rank := 0
	for _, raw := range tj.Model.Merges {
		line := ""
		switch v := raw.(type) {
		case string:
			line = v
		case []any:
			if len(v) == 2 {
				a, aok := v[0].(string)
				b, bok := v[1].(string)
				if aok && bok {
					line = a + " " + b
				}
			}
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, " ")
		if len(parts) != 2 {
			continue
		}
		p := Pair{A: parts[0], B: parts[1]}
		if _, ok := bpeRanks[p]; !ok {
			bpeRanks[p] = rank
			rank++
		}
	}

	unkID := -1
	if tj.Model.UnkToken != "" {
		if id, ok := encoder[tj.Model.UnkToken]; ok {
			unkID = id
		}
	}

	byteEncoder, byteDecoder := bytesToUnicode()
	return &HFTokenizer{
		encoder:      encoder,
		decoder:      decoder,
		bpeRanks:     bpeRanks,
		cache:        make(map[string][]string),
		byteEncoder:  byteEncoder,
		byteDecoder:  byteDecoder,
		pattern:      buildHFPattern(tj.PreTokenizer),
		unkID:        unkID,
		ignoreMerges: tj.Model.IgnoreMerges,
		special:      collectSpecials(decoder),
	}, nil
}

func (t *HFTokenizer) VocabSize() int { return len(t.decoder) }

func (t *HFTokenizer) Encode(text string) ([]int, error) {
	var ids []int
	for _, part := range splitSpecials(text, t.special) {
		if part.isSpecial {
			id, ok := t.encoder[part.text]
			if !ok {
				return nil, fmt.Errorf("unknown special token: %q", part.text)
			}
			ids = append(ids, id)
			continue
		}
		for _, token := range t.pattern.FindAllString(part.text, -1) {
			for _, bpeTok := range t.bpe(t.byteEncode(token)) {
				id, ok := t.encoder[bpeTok]
				if !ok {
					if t.unkID >= 0 {
						ids = append(ids, t.unkID)
						continue
					}
					return nil, fmt.Errorf("unknown token: %q", bpeTok)
				}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (t *HFTokenizer) Decode(ids []int) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(t.decoder) {
			return "", fmt.Errorf("token id out of range: %d", id)
		}
		token := t.decoder[id]
		if isSpecialToken(token) {
			b = append(b, token...)
			continue
		}
		for _, r := range token {
			if by, ok := t.byteDecoder[string(r)]; ok {
				b = append(b, by)
			} else {
				b = append(b, string(r)...)
			}
		}
	}
	return string(b), nil
}

// TokenString returns the byte-level BPE piece for id.
func (t *HFTokenizer) TokenString(id int) string {
	if id < 0 || id >= len(t.decoder) {
		return ""
	}
	return t.decoder[id]
}

func (t *HFTokenizer) byteEncode(s string) string {
	var b strings.Builder
	for _, by := range []byte(s) {
		b.WriteString(t.byteEncoder[by])
	}
	return b.String()
}

func (t *HFTokenizer) bpe(token string) []string {
	t.mu.Lock()
	v, ok := t.cache[token]
	t.mu.Unlock()
	if ok {
		return v
	}

	word := t.merge(token)

	t.mu.Lock()
	t.cache[token] = word
	t.mu.Unlock()
	return word
}

func (t *HFTokenizer) merge(token string) []string {
	if t.ignoreMerges {
		if _, ok := t.encoder[token]; ok {
			return []string{token}
		}
	}
	word := splitRunes(token)
	pairs := getPairs(word)
	for len(pairs) > 0 {
		bestRank := int(^uint(0) >> 1)
		bestPair := Pair{}
		found := false
		for p := range pairs {
			if rank, ok := t.bpeRanks[p]; ok && rank < bestRank {
				bestRank = rank
				bestPair = p
				found = true
			}
		}
		if !found {
			break
		}
		word = mergePair(word, bestPair)
		if len(word) == 1 {
			break
		}
		pairs = getPairs(word)
	}
	return word
}

func buildHFPattern(pre hfPreTokenizer) *regexp.Regexp {
	// Default to GPT2-ish regex.
	pat := `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`
	if pre.Type == "Sequence" {
		for _, p := range pre.Pretokenizers {
			if p.Type == "Split" && p.Pattern.Regex != "" {
				pat = p.Pattern.Regex
				break
			}
		}
	}
	// Go regexp has no lookahead; fall back to the llama.cpp variant.
	if strings.Contains(pat, "(?!\\S)") || strings.Contains(pat, "(?i:") {
		pat = `(?:'[sS]|'[tT]|'[rR][eE]|'[vV][eE]|'[mM]|'[lL][lL]|'[dD])|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+`
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return regexp.MustCompile(`'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`)
	}
	return re
}
