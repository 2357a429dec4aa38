package model

import (
	"time"

	"github.com/lib/pq"
)

// Disease is a catalogued plant disease
type Disease struct {
	ID              int64          `json:"id" db:"id"`
	Name            string         `json:"name" db:"name"`
	ScientificName  *string        `json:"scientific_name,omitempty" db:"scientific_name"`
	Description     *string        `json:"description,omitempty" db:"description"`
	Causes          *string        `json:"causes,omitempty" db:"causes"`
	Treatment       *string        `json:"treatment,omitempty" db:"treatment"`
	Prevention      *string        `json:"prevention,omitempty" db:"prevention"`
	ProductKeywords pq.StringArray `json:"product_keywords" db:"product_keywords"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// DiseaseSymptomLink ties a symptom to a disease
type DiseaseSymptomLink struct {
	DiseaseID    int64      `json:"disease_id" db:"disease_id"`
	SymptomID    int64      `json:"symptom_id" db:"symptom_id"`
	SymptomName  string     `json:"symptom_name" db:"symptom_name"`
	Weight       float64    `json:"weight" db:"weight"`
	IsPrimary    bool       `json:"is_primary" db:"is_primary"`
	AffectedPart *PlantPart `json:"affected_part,omitempty" db:"affected_part"` // nil means any part
}

// DefaultLinkWeight is the weight of a link created without one
const DefaultLinkWeight = 1.0

// DiseaseMatchCandidate is a disease sharing at least one symptom with a query
type DiseaseMatchCandidate struct {
	Disease        Disease              `json:"disease"`
	MatchedLinks   []DiseaseSymptomLink `json:"matched_links"`
	TotalWeight    float64              `json:"total_weight"`
	MatchedWeight  float64              `json:"matched_weight"`
	TotalSymptoms  int                  `json:"total_symptoms"`
	PrimaryCount   int                  `json:"primary_count"`
	MatchedPrimary int                  `json:"matched_primary"`
}

// DiseaseScoreBreakdown shows how a disease score was built
type DiseaseScoreBreakdown struct {
	Base           float64 `json:"base"`
	PlantPartBonus float64 `json:"plant_part_bonus"`
	PrimaryBonus   float64 `json:"primary_bonus"`
	Final          float64 `json:"final"`
}

// DiseaseMatchResult is an accepted knowledge-base match
type DiseaseMatchResult struct {
	Disease         Disease               `json:"disease"`
	Score           float64               `json:"score"`
	Breakdown       DiseaseScoreBreakdown `json:"breakdown"`
	MatchedSymptoms []string              `json:"matched_symptoms"`
	TotalSymptoms   int                   `json:"total_symptoms"`
	ProductKeywords []string              `json:"product_keywords"`
}

// DiseaseWithSymptoms is a catalogue listing row
type DiseaseWithSymptoms struct {
	Disease
	Symptoms []DiseaseSymptomLink `json:"symptoms"`
}
