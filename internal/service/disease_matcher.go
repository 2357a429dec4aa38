package service

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"plantdoctor/internal/logging"
	"plantdoctor/internal/model"
)

// Knowledge-base scoring constants
const (
	plantPartBonusWeight = 0.3
	primaryBonusWeight   = 0.2
)

// DiseaseSource reads the disease catalogue
type DiseaseSource interface {
	FindDiseasesBySymptomIDs(ctx context.Context, symptomIDs []int64) ([]model.DiseaseMatchCandidate, error)
	GetDiseasesForPlantTypeName(ctx context.Context, name string) ([]model.Disease, error)
}

// DiseaseMatcher matches extracted symptoms against catalogued diseases
type DiseaseMatcher struct {
	source    DiseaseSource
	extractor *Extractor
	logger    *zap.Logger
}

// NewDiseaseMatcher creates a knowledge-base matcher
func NewDiseaseMatcher(source DiseaseSource, extractor *Extractor, logger *zap.Logger) *DiseaseMatcher {
	return &DiseaseMatcher{
		source:    source,
		extractor: extractor,
		logger:    logger.Named("kb"),
	}
}

// FindMatchingDisease returns the best-covered disease for a description, or nil.
// Diseases linked to plantType rank first on equal scores; others stay eligible.
func (m *DiseaseMatcher) FindMatchingDisease(ctx context.Context, dict *SymptomDictionary, description string, plantType *string) *model.DiseaseMatchResult {
	d, err := dict.Get(ctx)
	if err != nil {
		m.logger.Warn("Symptom dictionary unavailable", zap.String("error", logging.SanitizeError(err)))
		return nil
	}

	symptoms := m.extractor.Extract(description, d)
	ids := symptoms.SymptomIDs()
	if len(ids) == 0 {
		return nil
	}

	candidates, err := m.source.FindDiseasesBySymptomIDs(ctx, ids)
	if err != nil {
		m.logger.Warn("Disease lookup failed", zap.String("error", logging.SanitizeError(err)))
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	if plantType != nil && *plantType != "" {
		m.prioritizePlantType(ctx, candidates, *plantType)
	}

	partByID := make(map[int64]model.PlantPart)
	for _, s := range symptoms.AllSymptoms() {
		if s.SymptomID != nil {
			partByID[*s.SymptomID] = s.PlantPart
		}
	}

	var best *model.DiseaseMatchResult
	for _, c := range candidates {
		breakdown := ScoreDisease(c, partByID)
		if best != nil && breakdown.Final <= best.Score {
			continue
		}
		names := make([]string, 0, len(c.MatchedLinks))
		for _, l := range c.MatchedLinks {
			names = append(names, l.SymptomName)
		}
		best = &model.DiseaseMatchResult{
			Disease:         c.Disease,
			Score:           breakdown.Final,
			Breakdown:       breakdown,
			MatchedSymptoms: names,
			TotalSymptoms:   c.TotalSymptoms,
			ProductKeywords: c.Disease.ProductKeywords,
		}
	}

	if best == nil || !acceptScore(best.Score) {
		return nil
	}
	m.logger.Debug("Knowledge base match",
		zap.String("disease", best.Disease.Name),
		zap.Float64("score", best.Score))
	return best
}

// prioritizePlantType moves diseases linked to the plant type to the front, keeping relative order
func (m *DiseaseMatcher) prioritizePlantType(ctx context.Context, candidates []model.DiseaseMatchCandidate, plantType string) {
	linked, err := m.source.GetDiseasesForPlantTypeName(ctx, plantType)
	if err != nil {
		m.logger.Warn("Plant type lookup failed", zap.String("plant_type", plantType), zap.String("error", logging.SanitizeError(err)))
		return
	}
	ids := make(map[int64]struct{}, len(linked))
	for _, d := range linked {
		ids[d.ID] = struct{}{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		_, li := ids[candidates[i].Disease.ID]
		_, lj := ids[candidates[j].Disease.ID]
		return li && !lj
	})
}

// ScoreDisease computes weighted symptom coverage plus plant-part and primary-symptom bonuses.
// partByID maps each extracted symptom id to the part the user described it on.
func ScoreDisease(c model.DiseaseMatchCandidate, partByID map[int64]model.PlantPart) model.DiseaseScoreBreakdown {
	var b model.DiseaseScoreBreakdown
	if c.TotalWeight <= 0 {
		return b
	}

	b.Base = clampUnit(c.MatchedWeight / c.TotalWeight)

	if n := len(c.MatchedLinks); n > 0 {
		aligned := 0
		for _, l := range c.MatchedLinks {
			if l.AffectedPart == nil {
				continue
			}
			if part, ok := partByID[l.SymptomID]; ok && part == *l.AffectedPart {
				aligned++
			}
		}
		b.PlantPartBonus = float64(aligned) / float64(n) * plantPartBonusWeight
	}

	if c.PrimaryCount > 0 {
		b.PrimaryBonus = clampUnit(float64(c.MatchedPrimary)/float64(c.PrimaryCount)) * primaryBonusWeight
	}

	b.Final = math.Min(b.Base+b.PlantPartBonus+b.PrimaryBonus, 1.0)
	return b
}
