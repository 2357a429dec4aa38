package model

import (
	"encoding/json"

	"github.com/lib/pq"
)

// SymptomEntry is one row of the symptom dictionary
type SymptomEntry struct {
	ID       int64          `json:"id" db:"id"`
	Name     string         `json:"name" db:"name"`
	Synonyms pq.StringArray `json:"synonyms" db:"synonyms"`
	Category PlantPart      `json:"category,omitempty" db:"category"` // empty when uncategorised
	NameEN   *string        `json:"name_en,omitempty" db:"name_en"`
}

// ExtractedSymptom is a dictionary hit attributed to a plant part
type ExtractedSymptom struct {
	Name       string    `json:"name"`
	PlantPart  PlantPart `json:"plant_part"`
	SymptomID  *int64    `json:"symptom_id,omitempty"`
	Category   PlantPart `json:"category,omitempty"`
	Confidence float64   `json:"confidence"`
}

// ScopedSymptomMap groups extracted symptoms by plant part, preserving insertion order
type ScopedSymptomMap struct {
	order  []PlantPart
	byPart map[PlantPart][]ExtractedSymptom
}

// NewScopedSymptomMap creates an empty map
func NewScopedSymptomMap() *ScopedSymptomMap {
	return &ScopedSymptomMap{byPart: make(map[PlantPart][]ExtractedSymptom)}
}

// Add appends a symptom under its plant part. Returns false if the part already holds that name.
func (m *ScopedSymptomMap) Add(s ExtractedSymptom) bool {
	existing, ok := m.byPart[s.PlantPart]
	for _, e := range existing {
		if e.Name == s.Name {
			return false
		}
	}
	if !ok {
		m.order = append(m.order, s.PlantPart)
	}
	m.byPart[s.PlantPart] = append(existing, s)
	return true
}

// Parts returns the plant parts in first-seen order
func (m *ScopedSymptomMap) Parts() []PlantPart {
	out := make([]PlantPart, len(m.order))
	copy(out, m.order)
	return out
}

// Get returns the symptoms recorded for a part
func (m *ScopedSymptomMap) Get(part PlantPart) []ExtractedSymptom {
	return m.byPart[part]
}

// Len returns the number of distinct symptom names
func (m *ScopedSymptomMap) Len() int {
	return len(m.Flatten())
}

// IsEmpty reports whether no symptom was recorded
func (m *ScopedSymptomMap) IsEmpty() bool {
	return len(m.order) == 0
}

// Flatten returns symptom names, deduplicated across parts
func (m *ScopedSymptomMap) Flatten() []string {
	all := m.AllSymptoms()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// AllSymptoms returns one entry per distinct symptom name (first occurrence wins)
func (m *ScopedSymptomMap) AllSymptoms() []ExtractedSymptom {
	seen := make(map[string]struct{})
	var out []ExtractedSymptom
	for _, part := range m.order {
		for _, s := range m.byPart[part] {
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// PartOf returns the part a symptom name was attributed to
func (m *ScopedSymptomMap) PartOf(name string) (PlantPart, bool) {
	for _, part := range m.order {
		for _, s := range m.byPart[part] {
			if s.Name == name {
				return part, true
			}
		}
	}
	return "", false
}

// SymptomIDs returns the dictionary ids of all extracted symptoms that carry one
func (m *ScopedSymptomMap) SymptomIDs() []int64 {
	var ids []int64
	for _, s := range m.AllSymptoms() {
		if s.SymptomID != nil {
			ids = append(ids, *s.SymptomID)
		}
	}
	return ids
}

// AsMap returns part -> names, used for JSON output and assertions
func (m *ScopedSymptomMap) AsMap() map[PlantPart][]string {
	out := make(map[PlantPart][]string, len(m.order))
	for _, part := range m.order {
		for _, s := range m.byPart[part] {
			out[part] = append(out[part], s.Name)
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler
func (m *ScopedSymptomMap) MarshalJSON() ([]byte, error) {
	out := make(map[PlantPart][]ExtractedSymptom, len(m.order))
	for _, part := range m.order {
		out[part] = m.byPart[part]
	}
	return json.Marshal(out)
}

// Clause is one scoped segment of a description
type Clause struct {
	Text      string    `json:"text"`
	Anchor    PlantPart `json:"anchor"`
	Inherited bool      `json:"inherited"`
}

// ExtractRequest is the body of POST /api/v1/symptoms/extract
type ExtractRequest struct {
	Description string `json:"description" binding:"required"`
}

// ExtractResponse describes how a description was segmented and matched
type ExtractResponse struct {
	Clauses  []Clause          `json:"clauses"`
	Symptoms *ScopedSymptomMap `json:"symptoms"`
	Names    []string          `json:"names"`
}
