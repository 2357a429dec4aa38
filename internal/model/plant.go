package model

import (
	"strings"
	"time"
)

// PlantPart identifies the part of a plant a symptom is observed on
type PlantPart string

const (
	PartLeaf    PlantPart = "leaf"
	PartStem    PlantPart = "stem"
	PartRoot    PlantPart = "root"
	PartFruit   PlantPart = "fruit"
	PartFlower  PlantPart = "flower"
	PartGeneral PlantPart = "general"
)

// AnchorParts are the parts a clause can be anchored to. General is the fallback, never an anchor keyword.
var AnchorParts = []PlantPart{PartLeaf, PartStem, PartRoot, PartFruit, PartFlower}

// ParsePlantPart converts a stored category into a PlantPart
func ParsePlantPart(s string) (PlantPart, bool) {
	switch p := PlantPart(strings.ToLower(strings.TrimSpace(s))); p {
	case PartLeaf, PartStem, PartRoot, PartFruit, PartFlower, PartGeneral:
		return p, true
	}
	return "", false
}

// IsSpecific reports whether the part is a concrete anchor part (not general, not empty)
func (p PlantPart) IsSpecific() bool {
	switch p {
	case PartLeaf, PartStem, PartRoot, PartFruit, PartFlower:
		return true
	}
	return false
}

// PlantType is a crop known to the catalogue
type PlantType struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	ScientificName *string   `json:"scientific_name,omitempty" db:"scientific_name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
