package service

import (
	"context"

	"plantdoctor/internal/apperrors"
	"plantdoctor/internal/model"
)

// CatalogSource reads the reference catalogue
type CatalogSource interface {
	GetAllSymptoms(ctx context.Context) ([]model.SymptomEntry, error)
	GetAllPlantTypes(ctx context.Context) ([]model.PlantType, error)
	GetAllDiseasesWithSymptoms(ctx context.Context) ([]model.DiseaseWithSymptoms, error)
	GetDiseaseByID(ctx context.Context, id int64) (*model.DiseaseWithSymptoms, error)
}

// CatalogService exposes the knowledge-base catalogue
type CatalogService struct {
	source CatalogSource
}

// NewCatalogService creates a catalogue service
func NewCatalogService(source CatalogSource) *CatalogService {
	return &CatalogService{source: source}
}

// Symptoms lists the symptom dictionary
func (s *CatalogService) Symptoms(ctx context.Context) ([]model.SymptomEntry, error) {
	return s.source.GetAllSymptoms(ctx)
}

// PlantTypes lists the known crops
func (s *CatalogService) PlantTypes(ctx context.Context) ([]model.PlantType, error) {
	return s.source.GetAllPlantTypes(ctx)
}

// Diseases lists every disease with its symptom links
func (s *CatalogService) Diseases(ctx context.Context) ([]model.DiseaseWithSymptoms, error) {
	return s.source.GetAllDiseasesWithSymptoms(ctx)
}

// Disease returns one disease, or apperrors.ErrNotFound
func (s *CatalogService) Disease(ctx context.Context, id int64) (*model.DiseaseWithSymptoms, error) {
	d, err := s.source.GetDiseaseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperrors.ErrNotFound
	}
	return d, nil
}
