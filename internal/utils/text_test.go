package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"

	"plantdoctor/internal/config"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(config.DefaultLexicon().Diacritics)
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "diacritics and case", input: "ĐỐM NÂU", want: "dom nau"},
		{name: "plain", input: "dom nau", want: "dom nau"},
		{name: "punctuation dropped", input: "Lá bị vàng, rễ thối!", want: "la bi vang re thoi"},
		{name: "whitespace collapsed", input: "  lá \t\n  héo  ", want: "la heo"},
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: " \t \n", want: ""},
		{name: "digits kept", input: "Cây 3 tuổi", want: "cay 3 tuoi"},
		{name: "decomposed input", input: norm.NFD.String("thối rễ"), want: "thoi re"},
		{name: "punctuation only", input: "?!...", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer()
	inputs := []string{"ĐỐM NÂU trên lá", "Quả bị thối, rụng sớm.", "  ", "Hoa héo; nụ rụng", "ượ ữ ỹ"}

	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestTokenize(t *testing.T) {
	n := newTestNormalizer()

	got := n.Tokenize("Lá bị vàng, lá ở gốc a b")
	assert.Equal(t, NewSet("la", "bi", "vang", "goc"), got)

	assert.Empty(t, n.Tokenize(""))
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{name: "both empty", a: NewSet(), b: NewSet(), want: 1.0},
		{name: "left empty", a: NewSet(), b: NewSet("x"), want: 0.0},
		{name: "right empty", a: NewSet("x"), b: NewSet(), want: 0.0},
		{name: "identical", a: NewSet("x", "y"), b: NewSet("y", "x"), want: 1.0},
		{name: "disjoint", a: NewSet("x"), b: NewSet("y"), want: 0.0},
		{name: "half", a: NewSet("x", "y"), b: NewSet("y", "z", "x", "w"), want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.InDelta(t, got, Jaccard(tt.b, tt.a), 1e-9, "not symmetric")
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestTokenOverlap(t *testing.T) {
	n := newTestNormalizer()

	assert.InDelta(t, 1.0, n.TokenOverlap("Lá vàng úa", "la vang ua"), 1e-9)
	assert.InDelta(t, 1.0/3.0, n.TokenOverlap("lá vàng", "lá héo"), 1e-9)
	assert.InDelta(t, 1.0, n.TokenOverlap("", "!!"), 1e-9)
}

func TestIndexWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		word string
		want int
	}{
		{name: "at start", text: "lá bị vàng", word: "lá", want: 0},
		{name: "inside word rejected", text: "hoang dã", word: "hoa", want: -1},
		{name: "second occurrence on boundary", text: "hoang hoa", word: "hoa", want: 6},
		{name: "phrase", text: "cây có đốm nâu trên lá", word: "đốm nâu", want: len("cây có ")},
		{name: "missing", text: "thân cây", word: "rễ", want: -1},
		{name: "empty word", text: "thân", word: "", want: -1},
		{name: "followed by punctuation", text: "rễ, thân", word: "rễ", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IndexWord(tt.text, tt.word))
		})
	}
}
