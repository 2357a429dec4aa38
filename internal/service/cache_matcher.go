package service

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"plantdoctor/internal/apperrors"
	"plantdoctor/internal/logging"
	"plantdoctor/internal/model"
	"plantdoctor/internal/utils"
)

// Cache scoring weights
const (
	weightTrigram        = 0.4
	weightSymptomJaccard = 0.4
	weightTokenOverlap   = 0.2
	plantTypeBonus       = 0.1

	cacheLexicalFloor = 0.3
	cacheSearchLimit  = 20
)

// phrasePatterns harvest symptom-like phrases ("đốm nâu", "lá xoăn") from normalized text
var phrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:la|than|re|qua|hoa|canh|goc|cu)\s+(?:bi\s+)?\pL+`),
	regexp.MustCompile(`\b(?:dom|vet|mang|soc)\s+\pL+`),
	regexp.MustCompile(`\b(?:thoi|heo|kho|chay|rung|nut)\s+\pL+`),
}

// CacheStore persists and searches prior AI diagnoses
type CacheStore interface {
	Search(ctx context.Context, query model.CacheSearchQuery) ([]model.CacheCandidate, error)
	IncrementHit(ctx context.Context, id uuid.UUID) error
	Save(ctx context.Context, entry *model.CacheEntry) error
	CleanupExpired(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Embedder turns text into a vector for similarity search
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CacheMatcher scores cached diagnoses against a new description
type CacheMatcher struct {
	store      CacheStore
	extractor  *Extractor
	normalizer *utils.Normalizer
	embedder   Embedder
	ttlDays    int
	logger     *zap.Logger
	now        func() time.Time
}

// NewCacheMatcher creates a cache matcher. embedder may be nil.
func NewCacheMatcher(store CacheStore, extractor *Extractor, normalizer *utils.Normalizer, embedder Embedder, ttlDays int, logger *zap.Logger) *CacheMatcher {
	if ttlDays <= 0 {
		ttlDays = model.DefaultCacheTTLDays
	}
	return &CacheMatcher{
		store:      store,
		extractor:  extractor,
		normalizer: normalizer,
		embedder:   embedder,
		ttlDays:    ttlDays,
		logger:     logger.Named("cache"),
		now:        time.Now,
	}
}

// FindMatch returns the best cached diagnosis for a description, or nil.
// Store and dictionary failures are logged and reported as a miss.
func (m *CacheMatcher) FindMatch(ctx context.Context, dict *SymptomDictionary, description string, plantType *string, hasImage bool) *model.CacheMatchResult {
	normalized := m.normalizer.Normalize(description)
	if normalized == "" {
		return nil
	}

	symptoms := m.querySymptoms(ctx, dict, description, normalized)

	candidates, err := m.store.Search(ctx, model.CacheSearchQuery{
		NormalizedText: normalized,
		SymptomNames:   symptoms,
		PlantType:      plantType,
		HasImage:       hasImage,
		LexicalFloor:   cacheLexicalFloor,
		Limit:          cacheSearchLimit,
	})
	if err != nil {
		m.logger.Warn("Cache search failed", zap.String("error", logging.SanitizeError(err)))
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	querySet := m.normalizer.NormalizeSet(symptoms)
	var best *model.CacheMatchResult
	for _, c := range candidates {
		breakdown := m.scoreCandidate(c, normalized, querySet, plantType)
		if best == nil || breakdown.Final > best.Score {
			best = &model.CacheMatchResult{Candidate: c, Score: breakdown.Final, Breakdown: breakdown, Symptoms: symptoms}
		}
	}

	if !acceptScore(best.Score) {
		m.logger.Debug("Best cache candidate below threshold",
			zap.String("candidate_id", best.Candidate.ID.String()),
			zap.Float64("score", best.Score))
		return nil
	}
	return best
}

// scoreCandidate combines lexical, symptom and token similarity into one score in [0, 1]
func (m *CacheMatcher) scoreCandidate(c model.CacheCandidate, normalized string, querySymptoms map[string]struct{}, plantType *string) model.MatchScoreBreakdown {
	b := model.MatchScoreBreakdown{
		TrigramScore:   clampUnit(c.TrigramScore),
		SymptomJaccard: utils.Jaccard(querySymptoms, m.normalizer.NormalizeSet(c.Symptoms)),
		TokenOverlap:   m.normalizer.TokenOverlap(normalized, c.NormalizedDescription),
	}
	if plantType != nil && c.PlantType != nil {
		want, got := m.normalizer.Normalize(*plantType), m.normalizer.Normalize(*c.PlantType)
		if want != "" && want == got {
			b.PlantTypeMatched = true
			b.PlantTypeBonus = plantTypeBonus
		}
	}
	b.Final = clampUnit(weightTrigram*b.TrigramScore +
		weightSymptomJaccard*b.SymptomJaccard +
		weightTokenOverlap*b.TokenOverlap +
		b.PlantTypeBonus)
	return b
}

// querySymptoms merges dictionary symptoms with harvested phrases, deduplicated by normalized form
func (m *CacheMatcher) querySymptoms(ctx context.Context, dict *SymptomDictionary, description, normalized string) []string {
	var names []string
	if d, err := dict.Get(ctx); err != nil {
		m.logger.Warn("Symptom dictionary unavailable for cache lookup", zap.String("error", logging.SanitizeError(err)))
	} else {
		names = m.extractor.Extract(description, d).Flatten()
	}

	seen := m.normalizer.NormalizeSet(names)
	for _, phrase := range harvestPhrases(normalized) {
		if _, ok := seen[phrase]; ok {
			continue
		}
		seen[phrase] = struct{}{}
		names = append(names, phrase)
	}
	return names
}

// harvestPhrases returns pattern hits on normalized text in order of appearance
func harvestPhrases(normalized string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, re := range phrasePatterns {
		for _, hit := range re.FindAllString(normalized, -1) {
			hit = strings.Join(strings.Fields(hit), " ")
			if _, ok := seen[hit]; ok {
				continue
			}
			seen[hit] = struct{}{}
			out = append(out, hit)
		}
	}
	return out
}

// Save writes a diagnosis to the cache. Failures are logged, never returned.
func (m *CacheMatcher) Save(ctx context.Context, dict *SymptomDictionary, description string, plantType *string, diagnosis *model.Diagnosis, hasImage bool) {
	normalized := m.normalizer.Normalize(description)
	if normalized == "" || diagnosis == nil {
		return
	}

	response, err := json.Marshal(diagnosis)
	if err != nil {
		m.logger.Warn("Failed to encode diagnosis for cache", zap.Error(err))
		return
	}

	now := m.now()
	entry := &model.CacheEntry{
		ID:                    uuid.New(),
		PlantType:             plantType,
		Description:           description,
		NormalizedDescription: normalized,
		Symptoms:              m.querySymptoms(ctx, dict, description, normalized),
		Response:              response,
		HasImage:              hasImage,
		CreatedAt:             now,
		ExpiresAt:             now.AddDate(0, 0, m.ttlDays),
	}
	if name := strings.TrimSpace(diagnosis.DiseaseInfo.Name); name != "" {
		entry.DiseaseName = &name
	}
	if m.embedder != nil {
		if vec, err := m.embedder.Embed(ctx, normalized); err != nil {
			m.logger.Debug("Embedding skipped", zap.String("error", logging.SanitizeError(err)))
		} else if len(vec) > 0 {
			v := pgvector.NewVector(vec)
			entry.Embedding = &v
		}
	}

	if err := m.store.Save(ctx, entry); err != nil {
		m.logger.Warn("Failed to save diagnosis to cache", zap.String("error", logging.SanitizeError(err)))
		return
	}
	m.logger.Info("Diagnosis cached",
		zap.String("id", entry.ID.String()),
		zap.Int("symptoms", len(entry.Symptoms)),
		zap.Time("expires_at", entry.ExpiresAt))
}

// Invalidate removes one entry, typically after a user reported it wrong
func (m *CacheMatcher) Invalidate(ctx context.Context, id uuid.UUID) error {
	deleted, err := m.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.ErrNotFound
	}
	m.logger.Info("Cache entry invalidated", zap.String("id", id.String()))
	return nil
}

// Cleanup deletes expired cache entries
func (m *CacheMatcher) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := m.store.CleanupExpired(ctx)
	if err != nil {
		return 0, err
	}
	m.logger.Info("Expired cache entries removed", zap.Int64("deleted", deleted))
	return deleted, nil
}
