package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantdoctor/internal/apperrors"
	"plantdoctor/internal/model"
)

type fakeCatalogSource struct {
	fakeSymptomSource
	diseases []model.DiseaseWithSymptoms
}

func (f *fakeCatalogSource) GetAllPlantTypes(ctx context.Context) ([]model.PlantType, error) {
	return []model.PlantType{{ID: 1, Name: "Lúa"}}, nil
}

func (f *fakeCatalogSource) GetAllDiseasesWithSymptoms(ctx context.Context) ([]model.DiseaseWithSymptoms, error) {
	return f.diseases, nil
}

func (f *fakeCatalogSource) GetDiseaseByID(ctx context.Context, id int64) (*model.DiseaseWithSymptoms, error) {
	for i := range f.diseases {
		if f.diseases[i].ID == id {
			return &f.diseases[i], nil
		}
	}
	return nil, nil
}

func TestCatalogService(t *testing.T) {
	source := &fakeCatalogSource{diseases: []model.DiseaseWithSymptoms{
		{Disease: model.Disease{ID: 2, Name: "Đạo ôn"}},
	}}
	source.entries = []model.SymptomEntry{{ID: 1, Name: "lá vàng"}}
	svc := NewCatalogService(source)
	ctx := context.Background()

	symptoms, err := svc.Symptoms(ctx)
	require.NoError(t, err)
	assert.Len(t, symptoms, 1)

	plants, err := svc.PlantTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lúa", plants[0].Name)

	d, err := svc.Disease(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Đạo ôn", d.Name)

	_, err = svc.Disease(ctx, 9)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
