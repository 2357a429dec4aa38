package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalizer folds free text into a comparable form. The diacritic table is
// shared read-only between goroutines.
type Normalizer struct {
	diacritics map[rune]rune
}

// NewNormalizer creates a normalizer over a diacritic -> base letter table
func NewNormalizer(diacritics map[rune]rune) *Normalizer {
	return &Normalizer{diacritics: diacritics}
}

// Normalize lowercases, folds diacritics, drops anything that is not a letter,
// digit or whitespace, and collapses whitespace. Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = strings.ToLower(norm.NFC.String(text))

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if base, ok := n.diacritics[r]; ok {
			r = base
		}
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokenize returns the distinct normalized words longer than one character
func (n *Normalizer) Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Split(n.Normalize(text), " ") {
		if utf8.RuneCountInString(w) <= 1 {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

// TokenOverlap is the Jaccard similarity of the token sets of a and b
func (n *Normalizer) TokenOverlap(a, b string) float64 {
	return Jaccard(n.Tokenize(a), n.Tokenize(b))
}

// NormalizeSet normalizes every item into a set, skipping empties
func (n *Normalizer) NormalizeSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if v := n.Normalize(it); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are identical (1.0); exactly one empty set shares nothing (0.0).
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// NewSet builds a set from items
func NewSet(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// IndexWord returns the byte offset of the first occurrence of word in text that
// starts and ends on a word boundary, or -1.
func IndexWord(text, word string) int {
	return IndexWordFrom(text, word, 0)
}

// IndexWordFrom is IndexWord starting the search at byte offset from
func IndexWordFrom(text, word string, from int) int {
	if word == "" {
		return -1
	}
	start := from
	for start < len(text) {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return -1
		}
		idx += start
		var before, after rune
		if idx > 0 {
			before, _ = utf8.DecodeLastRuneInString(text[:idx])
		}
		if end := idx + len(word); end < len(text) {
			after, _ = utf8.DecodeRuneInString(text[end:])
		}
		if !isWordRune(before) && !isWordRune(after) {
			return idx
		}
		_, size := utf8.DecodeRuneInString(text[idx:])
		start = idx + size
	}
	return -1
}

// ContainsWord reports whether word occurs in text on word boundaries
func ContainsWord(text, word string) bool {
	return IndexWord(text, word) >= 0
}

func isWordRune(r rune) bool {
	if r == 0 || r == utf8.RuneError {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
