package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantdoctor/internal/apperrors"
	"plantdoctor/internal/model"
)

type fakeCatalog struct {
	diseases []model.DiseaseWithSymptoms
}

func (f *fakeCatalog) Symptoms(ctx context.Context) ([]model.SymptomEntry, error) {
	return []model.SymptomEntry{{ID: 1, Name: "lá vàng", Category: model.PartLeaf}}, nil
}

func (f *fakeCatalog) PlantTypes(ctx context.Context) ([]model.PlantType, error) {
	return nil, nil
}

func (f *fakeCatalog) Diseases(ctx context.Context) ([]model.DiseaseWithSymptoms, error) {
	return f.diseases, nil
}

func (f *fakeCatalog) Disease(ctx context.Context, id int64) (*model.DiseaseWithSymptoms, error) {
	for i := range f.diseases {
		if f.diseases[i].ID == id {
			return &f.diseases[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func newCatalogRouter() *gin.Engine {
	h := NewCatalogHandler(&fakeCatalog{diseases: []model.DiseaseWithSymptoms{
		{Disease: model.Disease{ID: 3, Name: "Thán thư"}, Symptoms: []model.DiseaseSymptomLink{}},
	}})
	r := gin.New()
	r.GET("/symptoms", h.ListSymptoms)
	r.GET("/plant-types", h.ListPlantTypes)
	r.GET("/diseases", h.ListDiseases)
	r.GET("/diseases/:id", h.GetDisease)
	return r
}

func TestCatalog_Lists(t *testing.T) {
	r := newCatalogRouter()

	w := get(r, "/symptoms")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), `"category":"leaf"`)

	w = get(r, "/plant-types")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"plant_types":[],"total":0}`, w.Body.String())

	w = get(r, "/diseases")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thán thư")
}

func TestCatalog_GetDisease(t *testing.T) {
	r := newCatalogRouter()

	w := get(r, "/diseases/3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Thán thư"`)

	assert.Equal(t, http.StatusNotFound, get(r, "/diseases/99").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/diseases/abc").Code)
}
