package service

import (
	"context"
	"fmt"
	"sync"

	"plantdoctor/internal/model"
	"plantdoctor/internal/utils"
)

// SymptomSource supplies the symptom dictionary
type SymptomSource interface {
	GetAllSymptoms(ctx context.Context) ([]model.SymptomEntry, error)
}

// dictionaryTerm is a symptom entry with its names pre-normalized
type dictionaryTerm struct {
	entry     model.SymptomEntry
	canonical string
	synonyms  []string
}

// Dictionary is an immutable, normalized snapshot of symptom entries
type Dictionary struct {
	terms []dictionaryTerm
}

// CompileDictionary normalizes entries once. Canonical names are unique in the
// result: later entries whose normalized name repeats an earlier one are dropped.
func CompileDictionary(entries []model.SymptomEntry, n *utils.Normalizer) *Dictionary {
	d := &Dictionary{terms: make([]dictionaryTerm, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		canonical := n.Normalize(e.Name)
		if canonical == "" {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}

		term := dictionaryTerm{entry: e, canonical: canonical}
		for _, syn := range e.Synonyms {
			if v := n.Normalize(syn); v != "" && v != canonical {
				term.synonyms = append(term.synonyms, v)
			}
		}
		d.terms = append(d.terms, term)
	}
	return d
}

// Len returns the number of entries
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.terms)
}

// SymptomDictionary loads the dictionary lazily, once per request scope.
// It must not be shared between requests.
type SymptomDictionary struct {
	source     SymptomSource
	normalizer *utils.Normalizer

	once sync.Once
	dict *Dictionary
	err  error
}

// NewSymptomDictionary creates a request-scoped dictionary backed by source
func NewSymptomDictionary(source SymptomSource, normalizer *utils.Normalizer) *SymptomDictionary {
	return &SymptomDictionary{source: source, normalizer: normalizer}
}

// Get returns the compiled dictionary, loading it on first use
func (d *SymptomDictionary) Get(ctx context.Context) (*Dictionary, error) {
	if d == nil || d.source == nil {
		return nil, nil
	}
	d.once.Do(func() {
		entries, err := d.source.GetAllSymptoms(ctx)
		if err != nil {
			d.err = fmt.Errorf("failed to load symptom dictionary: %w", err)
			return
		}
		d.dict = CompileDictionary(entries, d.normalizer)
	})
	return d.dict, d.err
}
