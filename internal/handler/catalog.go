package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"plantdoctor/internal/model"
)

// Catalog is the read-only catalogue surface
type Catalog interface {
	Symptoms(ctx context.Context) ([]model.SymptomEntry, error)
	PlantTypes(ctx context.Context) ([]model.PlantType, error)
	Diseases(ctx context.Context) ([]model.DiseaseWithSymptoms, error)
	Disease(ctx context.Context, id int64) (*model.DiseaseWithSymptoms, error)
}

// CatalogHandler serves the symptom and disease catalogue
type CatalogHandler struct {
	catalog Catalog
}

// NewCatalogHandler creates a new catalogue handler
func NewCatalogHandler(catalog Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListSymptoms handles GET /api/v1/symptoms
func (h *CatalogHandler) ListSymptoms(c *gin.Context) {
	symptoms, err := h.catalog.Symptoms(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list symptoms: ", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symptoms": nonNil(symptoms), "total": len(symptoms)})
}

// ListPlantTypes handles GET /api/v1/plant-types
func (h *CatalogHandler) ListPlantTypes(c *gin.Context) {
	plants, err := h.catalog.PlantTypes(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list plant types: ", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plant_types": nonNil(plants), "total": len(plants)})
}

// ListDiseases handles GET /api/v1/diseases
func (h *CatalogHandler) ListDiseases(c *gin.Context) {
	diseases, err := h.catalog.Diseases(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list diseases: ", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"diseases": nonNil(diseases), "total": len(diseases)})
}

// GetDisease handles GET /api/v1/diseases/:id
func (h *CatalogHandler) GetDisease(c *gin.Context) {
	diseaseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid disease ID"})
		return
	}

	disease, err := h.catalog.Disease(c.Request.Context(), diseaseID)
	if err != nil {
		respondError(c, "Failed to get disease: ", err)
		return
	}

	c.JSON(http.StatusOK, disease)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
