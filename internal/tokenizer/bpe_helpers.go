package tokenizer

import (
	"sort"
	"strings"
)

// Pair is an adjacent pair of BPE symbols.
type Pair struct {
	A string
	B string
}

type textPart struct {
	text      string
	isSpecial bool
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func getPairs(word []string) map[Pair]struct{} {
	pairs := make(map[Pair]struct{}, len(word))
	for i := 1; i < len(word); i++ {
		pairs[Pair{A: word[i-1], B: word[i]}] = struct{}{}
	}
	return pairs
}

func mergePair(word []string, pair Pair) []string {
	out := make([]string, 0, len(word))
	for i := 0; i < len(word); i++ {
		if i+1 < len(word) && word[i] == pair.A && word[i+1] == pair.B {
			out = append(out, pair.A+pair.B)
			i++
			continue
		}
		out = append(out, word[i])
	}
	return out
}

// collectSpecials returns the <|...|> tokens of a vocabulary, longest first
// so splitSpecials prefers the longest match.
func collectSpecials(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if isSpecialToken(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func isSpecialToken(s string) bool {
	return len(s) >= 4 && strings.HasPrefix(s, "<|") && strings.HasSuffix(s, "|>")
}

func splitSpecials(text string, specials []string) []textPart {
	if len(specials) == 0 || !strings.Contains(text, "<|") {
		return []textPart{{text: text}}
	}
	var (
		parts []textPart
		start int
	)
	for i := 0; i < len(text); {
		match := ""
		for _, sp := range specials {
			if strings.HasPrefix(text[i:], sp) {
				match = sp
				break
			}
		}
		if match == "" {
			i++
			continue
		}
		if start < i {
			parts = append(parts, textPart{text: text[start:i]})
		}
		parts = append(parts, textPart{text: match, isSpecial: true})
		i += len(match)
		start = i
	}
	if start < len(text) {
		parts = append(parts, textPart{text: text[start:]})
	}
	return parts
}

// bytesToUnicode maps bytes to printable runes so BPE merges stay
// reversible.
func bytesToUnicode() (map[byte]string, map[string]byte) {
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	enc := make(map[byte]string, 256)
	dec := make(map[string]byte, 256)
	n := 0
	for b := 0; b < 256; b++ {
		r := rune(b)
		if !printable(b) {
			r = rune(256 + n)
			n++
		}
		enc[byte(b)] = string(r)
		dec[string(r)] = byte(b)
	}
	return enc, dec
}
