package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"plantdoctor/internal/config"
	"plantdoctor/internal/model"
	"plantdoctor/internal/utils"
)

const (
	// scopeSentinel replaces boundary words before splitting
	scopeSentinel = '\x1f'

	// commaLookaheadRunes is how far past a comma a plant-part keyword may start
	// for the comma to open a new clause
	commaLookaheadRunes = 3
)

// AnchorMatch is the plant-part keyword that anchors a clause
type AnchorMatch struct {
	Part     model.PlantPart
	Position int // byte offset in the clause
	Length   int // keyword length in runes
}

// Segmenter splits descriptions into clauses and anchors each clause to a plant part
type Segmenter struct {
	lex *config.Lexicon
}

// NewSegmenter creates a segmenter over the given keyword tables
func NewSegmenter(lex *config.Lexicon) *Segmenter {
	return &Segmenter{lex: lex}
}

// Segment returns the clauses of a description with their anchors.
// Clauses without a plant-part keyword inherit the previous anchor, or general.
func (s *Segmenter) Segment(description string) []model.Clause {
	text := strings.ToLower(norm.NFC.String(description))
	if strings.TrimSpace(text) == "" {
		return nil
	}

	text = s.markBoundaries(text)

	var clauses []model.Clause
	last := model.PartGeneral
	for _, segment := range strings.FieldsFunc(text, func(r rune) bool {
		return r == scopeSentinel || r == ';' || r == '.'
	}) {
		for _, piece := range s.splitCommas(segment) {
			clause := model.Clause{Text: piece}
			if anchor, ok := s.ResolveAnchor(piece); ok {
				clause.Anchor = anchor.Part
				last = anchor.Part
			} else {
				clause.Anchor = last
				clause.Inherited = true
			}
			clauses = append(clauses, clause)
		}
	}
	return clauses
}

// ResolveAnchor finds the plant part a clause talks about. A modifier word directly
// followed by a plant-part keyword wins; otherwise the earliest keyword wins,
// and among keywords at the same position the longer one.
func (s *Segmenter) ResolveAnchor(clause string) (AnchorMatch, bool) {
	if m, ok := s.modifierAnchor(clause); ok {
		return m, true
	}
	return s.earliestAnchor(clause)
}

func (s *Segmenter) earliestAnchor(clause string) (AnchorMatch, bool) {
	best := AnchorMatch{Position: -1}
	for _, kw := range s.lex.PartKeywords {
		pos := utils.IndexWord(clause, kw.Keyword)
		if pos < 0 {
			continue
		}
		length := utf8.RuneCountInString(kw.Keyword)
		if best.Position < 0 || pos < best.Position || (pos == best.Position && length > best.Length) {
			best = AnchorMatch{Part: kw.Part, Position: pos, Length: length}
		}
	}
	return best, best.Position >= 0
}

func (s *Segmenter) modifierAnchor(clause string) (AnchorMatch, bool) {
	best := AnchorMatch{Position: -1}
	bestModifier := -1
	for _, mod := range s.lex.ModifierWords {
		for from := 0; ; {
			pos := utils.IndexWordFrom(clause, mod, from)
			if pos < 0 || (bestModifier >= 0 && pos >= bestModifier) {
				break
			}
			from = pos + len(mod)
			rest := strings.TrimLeftFunc(clause[from:], unicode.IsSpace)
			if rest == clause[from:] {
				continue
			}
			if kw, ok := s.keywordPrefix(rest); ok {
				best = AnchorMatch{
					Part:     kw.Part,
					Position: len(clause) - len(rest),
					Length:   utf8.RuneCountInString(kw.Keyword),
				}
				bestModifier = pos
				break
			}
		}
	}
	return best, best.Position >= 0
}

// keywordPrefix returns the longest plant-part keyword that text starts with as a whole word
func (s *Segmenter) keywordPrefix(text string) (config.PartKeyword, bool) {
	for _, kw := range s.lex.PartKeywords {
		if utils.IndexWord(text, kw.Keyword) == 0 {
			return kw, true
		}
	}
	return config.PartKeyword{}, false
}

// markBoundaries replaces every boundary word with the scope sentinel
func (s *Segmenter) markBoundaries(text string) string {
	for _, word := range s.lex.BoundaryWords {
		var b strings.Builder
		from := 0
		for {
			pos := utils.IndexWordFrom(text, word, from)
			if pos < 0 {
				break
			}
			b.WriteString(text[from:pos])
			b.WriteRune(scopeSentinel)
			from = pos + len(word)
		}
		if from == 0 {
			continue
		}
		b.WriteString(text[from:])
		text = b.String()
	}
	return text
}

// splitCommas breaks a segment on commas that introduce a new plant part;
// other comma-separated phrases stay in the running clause
func (s *Segmenter) splitCommas(segment string) []string {
	var out []string
	var running []string
	flush := func() {
		clause := strings.TrimFunc(strings.Join(running, ","), func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})
		if clause != "" {
			out = append(out, clause)
		}
		running = running[:0]
	}

	for i, piece := range strings.Split(segment, ",") {
		if i > 0 && s.opensScope(strings.TrimSpace(piece)) {
			flush()
		}
		running = append(running, piece)
	}
	flush()
	return out
}

// opensScope reports whether a plant-part keyword starts within the first few runes of text
func (s *Segmenter) opensScope(text string) bool {
	for _, kw := range s.lex.PartKeywords {
		pos := utils.IndexWord(text, kw.Keyword)
		if pos >= 0 && utf8.RuneCountInString(text[:pos]) <= commaLookaheadRunes {
			return true
		}
	}
	return false
}
