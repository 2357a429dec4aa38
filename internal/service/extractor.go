package service

import (
	"math"
	"strings"
	"unicode/utf8"

	"plantdoctor/internal/model"
	"plantdoctor/internal/utils"
)

// AmbiguousMatchMaxRunes is the longest normalized match treated as a single
// ambiguous word during conflict resolution
const AmbiguousMatchMaxRunes = 5

const (
	canonicalConfidence = 1.0
	synonymConfidence   = 0.9
	inferredPartFactor  = 0.9
	categoryBoostFactor = 1.1
)

// Extractor attributes dictionary symptoms found in a description to plant parts
type Extractor struct {
	segmenter  *Segmenter
	normalizer *utils.Normalizer
}

// NewExtractor creates an extractor
func NewExtractor(segmenter *Segmenter, normalizer *utils.Normalizer) *Extractor {
	return &Extractor{segmenter: segmenter, normalizer: normalizer}
}

// clauseMatch is one dictionary hit inside a clause
type clauseMatch struct {
	symptom  model.ExtractedSymptom
	matchLen int // normalized runes of the matched term
}

// Extract returns the symptoms of description grouped by plant part
func (e *Extractor) Extract(description string, dict *Dictionary) *model.ScopedSymptomMap {
	_, symptoms := e.ExtractDetailed(description, dict)
	return symptoms
}

// ExtractDetailed also returns the clauses the description was split into
func (e *Extractor) ExtractDetailed(description string, dict *Dictionary) ([]model.Clause, *model.ScopedSymptomMap) {
	result := model.NewScopedSymptomMap()
	if strings.TrimSpace(description) == "" {
		return nil, result
	}

	clauses := e.segmenter.Segment(description)
	if len(clauses) == 0 {
		clauses = []model.Clause{{Text: strings.ToLower(description), Anchor: model.PartGeneral, Inherited: true}}
	}
	if dict.Len() == 0 {
		return clauses, result
	}

	seen := make(map[string]struct{})
	for _, clause := range clauses {
		for _, m := range e.matchClause(clause, dict) {
			if _, dup := seen[m.symptom.Name]; dup {
				continue
			}
			seen[m.symptom.Name] = struct{}{}
			result.Add(m.symptom)
		}
	}
	return clauses, result
}

// matchClause finds every dictionary entry mentioned in one clause
func (e *Extractor) matchClause(clause model.Clause, dict *Dictionary) []clauseMatch {
	text := e.normalizer.Normalize(clause.Text)
	if text == "" {
		return nil
	}

	var matches []clauseMatch
	for _, term := range dict.terms {
		confidence, matched := 0.0, ""
		if utils.ContainsWord(text, term.canonical) {
			confidence, matched = canonicalConfidence, term.canonical
		} else {
			for _, syn := range term.synonyms {
				if utils.ContainsWord(text, syn) {
					confidence, matched = synonymConfidence, syn
					break
				}
			}
		}
		if matched == "" {
			continue
		}
		matches = append(matches, clauseMatch{
			symptom:  attribute(term.entry, clause.Anchor, confidence),
			matchLen: utf8.RuneCountInString(matched),
		})
	}
	return resolveConflicts(matches, clause.Anchor)
}

// attribute decides the plant part and confidence of a match
func attribute(entry model.SymptomEntry, anchor model.PlantPart, confidence float64) model.ExtractedSymptom {
	part := anchor
	if anchor == model.PartGeneral && entry.Category.IsSpecific() {
		part = entry.Category
		confidence *= inferredPartFactor
	}
	if entry.Category != "" && entry.Category == part {
		confidence = math.Min(confidence*categoryBoostFactor, 1.0)
	}

	id := entry.ID
	return model.ExtractedSymptom{
		Name:       entry.Name,
		PlantPart:  part,
		SymptomID:  &id,
		Category:   entry.Category,
		Confidence: confidence,
	}
}

// resolveConflicts keeps a single winner among short matches of identical length.
// The winner is the one whose category matches the anchor, then the most confident.
func resolveConflicts(matches []clauseMatch, anchor model.PlantPart) []clauseMatch {
	byLen := make(map[int][]int)
	for i, m := range matches {
		if m.matchLen <= AmbiguousMatchMaxRunes {
			byLen[m.matchLen] = append(byLen[m.matchLen], i)
		}
	}

	drop := make(map[int]bool)
	for _, group := range byLen {
		if len(group) < 2 {
			continue
		}
		winner := group[0]
		for _, idx := range group[1:] {
			if betterConflictCandidate(matches[idx], matches[winner], anchor) {
				winner = idx
			}
		}
		for _, idx := range group {
			if idx != winner {
				drop[idx] = true
			}
		}
	}
	if len(drop) == 0 {
		return matches
	}

	kept := make([]clauseMatch, 0, len(matches)-len(drop))
	for i, m := range matches {
		if !drop[i] {
			kept = append(kept, m)
		}
	}
	return kept
}

func betterConflictCandidate(a, b clauseMatch, anchor model.PlantPart) bool {
	aAnchored := a.symptom.Category != "" && a.symptom.Category == anchor
	bAnchored := b.symptom.Category != "" && b.symptom.Category == anchor
	if aAnchored != bAnchored {
		return aAnchored
	}
	return a.symptom.Confidence > b.symptom.Confidence
}
