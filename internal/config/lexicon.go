package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"plantdoctor/internal/model"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// lexiconFile mirrors lexicon.yaml
type lexiconFile struct {
	PlantParts    map[string][]string `yaml:"plant_parts"`
	BoundaryWords []string            `yaml:"boundary_words"`
	ModifierWords []string            `yaml:"modifier_words"`
	Diacritics    map[string]string   `yaml:"diacritics"`
}

// PartKeyword is one plant-part keyword
type PartKeyword struct {
	Part    model.PlantPart
	Keyword string
}

// Lexicon holds the compiled keyword tables. It is read-only after construction
// and shared by reference between requests.
type Lexicon struct {
	// PartKeywords is ordered longest keyword first
	PartKeywords  []PartKeyword
	BoundaryWords []string
	ModifierWords []string
	Diacritics    map[rune]rune
}

var defaultLexicon = sync.OnceValues(func() (*Lexicon, error) {
	return ParseLexicon(defaultLexiconYAML)
})

// DefaultLexicon returns the embedded keyword tables
func DefaultLexicon() *Lexicon {
	lex, err := defaultLexicon()
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon is invalid: %v", err))
	}
	return lex
}

// LoadLexicon reads keyword tables from path, or the embedded defaults when path is empty
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return defaultLexicon()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

// ParseLexicon compiles YAML keyword tables
func ParseLexicon(data []byte) (*Lexicon, error) {
	var raw lexiconFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}

	lex := &Lexicon{Diacritics: make(map[rune]rune)}

	for name, words := range raw.PlantParts {
		part, ok := model.ParsePlantPart(name)
		if !ok || !part.IsSpecific() {
			return nil, fmt.Errorf("unknown plant part %q in lexicon", name)
		}
		for _, w := range compileWords(words) {
			lex.PartKeywords = append(lex.PartKeywords, PartKeyword{Part: part, Keyword: w})
		}
	}
	if len(lex.PartKeywords) == 0 {
		return nil, fmt.Errorf("lexicon has no plant-part keywords")
	}
	sort.SliceStable(lex.PartKeywords, func(i, j int) bool {
		a, b := lex.PartKeywords[i], lex.PartKeywords[j]
		if len(a.Keyword) != len(b.Keyword) {
			return len(a.Keyword) > len(b.Keyword)
		}
		if a.Keyword != b.Keyword {
			return a.Keyword < b.Keyword
		}
		return a.Part < b.Part
	})

	lex.BoundaryWords = compileWords(raw.BoundaryWords)
	lex.ModifierWords = compileWords(raw.ModifierWords)

	for base, accented := range raw.Diacritics {
		baseRunes := []rune(base)
		if len(baseRunes) != 1 {
			return nil, fmt.Errorf("diacritic base %q must be a single letter", base)
		}
		for _, r := range norm.NFC.String(accented) {
			lex.Diacritics[r] = baseRunes[0]
		}
	}

	return lex, nil
}

// compileWords lowercases, composes and deduplicates words, longest first
func compileWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(w))), " ")
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}
