package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// DefaultCacheTTLDays is how long a cached diagnosis stays valid
const DefaultCacheTTLDays = 90

// CacheEntry is a persisted AI diagnosis
type CacheEntry struct {
	ID                    uuid.UUID        `json:"id" db:"id"`
	PlantType             *string          `json:"plant_type,omitempty" db:"plant_type"`
	Description           string           `json:"description" db:"description"`
	NormalizedDescription string           `json:"normalized_description" db:"normalized_description"`
	Symptoms              pq.StringArray   `json:"symptoms" db:"symptoms"`
	DiseaseName           *string          `json:"disease_name,omitempty" db:"disease_name"`
	Response              json.RawMessage  `json:"response" db:"response"`
	HasImage              bool             `json:"has_image" db:"has_image"`
	HitCount              int64            `json:"hit_count" db:"hit_count"`
	Embedding             *pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
	ExpiresAt             time.Time        `json:"expires_at" db:"expires_at"`
}

// CacheCandidate is a read-only projection of a cache row scored against a query
type CacheCandidate struct {
	ID                    uuid.UUID       `json:"id" db:"id"`
	PlantType             *string         `json:"plant_type,omitempty" db:"plant_type"`
	NormalizedDescription string          `json:"normalized_description" db:"normalized_description"`
	Symptoms              pq.StringArray  `json:"symptoms" db:"symptoms"`
	DiseaseName           *string         `json:"disease_name,omitempty" db:"disease_name"`
	Response              json.RawMessage `json:"response" db:"response"`
	HitCount              int64           `json:"hit_count" db:"hit_count"`
	TrigramScore          float64         `json:"trigram_score" db:"trigram_score"`
}

// CacheSearchQuery carries the parameters of a candidate search
type CacheSearchQuery struct {
	NormalizedText string
	SymptomNames   []string
	PlantType      *string
	HasImage       bool
	LexicalFloor   float64
	Limit          int
}

// MatchScoreBreakdown shows how a cache candidate score was built
type MatchScoreBreakdown struct {
	TrigramScore     float64 `json:"trigram_score"`
	SymptomJaccard   float64 `json:"symptom_jaccard"`
	TokenOverlap     float64 `json:"token_overlap"`
	PlantTypeMatched bool    `json:"plant_type_matched"`
	PlantTypeBonus   float64 `json:"plant_type_bonus"`
	Final            float64 `json:"final"`
}

// CacheMatchResult is an accepted cache hit
type CacheMatchResult struct {
	Candidate CacheCandidate      `json:"candidate"`
	Score     float64             `json:"score"`
	Breakdown MatchScoreBreakdown `json:"breakdown"`
	Symptoms  []string            `json:"symptoms"`
}

// EmbeddingItem is a cache entry awaiting or carrying an embedding
type EmbeddingItem struct {
	CacheID   uuid.UUID `json:"cache_id"`
	Text      string    `json:"text,omitempty"`
	Embedding []float32 `json:"-"`
}

// EmbeddingBackfillResponse reports an embedding backfill run
type EmbeddingBackfillResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Feedback actions on a cached diagnosis
const (
	FeedbackHelpful   = "helpful"
	FeedbackIncorrect = "incorrect"
)

// FeedbackRequest is the body of POST /api/v1/feedback
type FeedbackRequest struct {
	CacheID uuid.UUID `json:"cache_id" binding:"required"`
	Action  string    `json:"action" binding:"required"`
}

// FeedbackResponse acknowledges a feedback request
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
