package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"plantdoctor/internal/model"
)

const symptomColumns = `id, name, synonyms, COALESCE(category, '') AS category, name_en`

const diseaseColumns = `d.id, d.name, d.scientific_name, d.description, d.causes, d.treatment,
	d.prevention, d.product_keywords, d.created_at`

const linkColumns = `ds.disease_id, ds.symptom_id, s.name AS symptom_name,
	ds.weight::float8 AS weight, ds.is_primary, ds.affected_part`

// GetAllSymptoms returns the symptom dictionary
func (r *PostgresRepository) GetAllSymptoms(ctx context.Context) ([]model.SymptomEntry, error) {
	var entries []model.SymptomEntry
	query := `SELECT ` + symptomColumns + ` FROM symptoms ORDER BY id`
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to load symptoms: %w", err)
	}
	return entries, nil
}

// GetAllPlantTypes returns the known crops
func (r *PostgresRepository) GetAllPlantTypes(ctx context.Context) ([]model.PlantType, error) {
	var types []model.PlantType
	query := `SELECT id, name, scientific_name, created_at FROM plant_types ORDER BY name`
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("failed to load plant types: %w", err)
	}
	return types, nil
}

// GetDiseasesForPlantTypeName returns the diseases linked to a plant type (case-insensitive)
func (r *PostgresRepository) GetDiseasesForPlantTypeName(ctx context.Context, name string) ([]model.Disease, error) {
	var diseases []model.Disease
	query := `
		SELECT ` + diseaseColumns + `
		FROM diseases d
		JOIN plant_type_diseases ptd ON ptd.disease_id = d.id
		JOIN plant_types p ON p.id = ptd.plant_type_id
		WHERE lower(p.name) = lower($1)
		ORDER BY d.id`
	if err := r.db.SelectContext(ctx, &diseases, query, name); err != nil {
		return nil, fmt.Errorf("failed to load diseases for plant type %q: %w", name, err)
	}
	return diseases, nil
}

// diseaseAggregateRow is a disease with totals over all its symptom links
type diseaseAggregateRow struct {
	model.Disease
	TotalWeight   float64 `db:"total_weight"`
	TotalSymptoms int     `db:"total_symptoms"`
	PrimaryCount  int     `db:"primary_count"`
}

// FindDiseasesBySymptomIDs returns every disease linked to at least one of the symptoms,
// with its totals and the links that matched
func (r *PostgresRepository) FindDiseasesBySymptomIDs(ctx context.Context, symptomIDs []int64) ([]model.DiseaseMatchCandidate, error) {
	if len(symptomIDs) == 0 {
		return nil, nil
	}

	var rows []diseaseAggregateRow
	query := `
		SELECT ` + diseaseColumns + `,
			COALESCE(SUM(ds.weight), 0)::float8 AS total_weight,
			COUNT(ds.symptom_id) AS total_symptoms,
			COUNT(*) FILTER (WHERE ds.is_primary) AS primary_count
		FROM diseases d
		JOIN disease_symptoms ds ON ds.disease_id = d.id
		WHERE d.id IN (SELECT disease_id FROM disease_symptoms WHERE symptom_id = ANY($1))
		GROUP BY d.id
		ORDER BY d.id`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(symptomIDs)); err != nil {
		return nil, fmt.Errorf("failed to find diseases by symptoms: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	diseaseIDs := make([]int64, len(rows))
	for i, row := range rows {
		diseaseIDs[i] = row.ID
	}

	var links []model.DiseaseSymptomLink
	linkQuery := `
		SELECT ` + linkColumns + `
		FROM disease_symptoms ds
		JOIN symptoms s ON s.id = ds.symptom_id
		WHERE ds.disease_id = ANY($1) AND ds.symptom_id = ANY($2)
		ORDER BY ds.disease_id, ds.symptom_id`
	if err := r.db.SelectContext(ctx, &links, linkQuery, pq.Array(diseaseIDs), pq.Array(symptomIDs)); err != nil {
		return nil, fmt.Errorf("failed to load matched symptom links: %w", err)
	}

	byDisease := make(map[int64][]model.DiseaseSymptomLink, len(rows))
	for _, l := range links {
		byDisease[l.DiseaseID] = append(byDisease[l.DiseaseID], l)
	}

	candidates := make([]model.DiseaseMatchCandidate, 0, len(rows))
	for _, row := range rows {
		c := model.DiseaseMatchCandidate{
			Disease:       row.Disease,
			MatchedLinks:  byDisease[row.ID],
			TotalWeight:   row.TotalWeight,
			TotalSymptoms: row.TotalSymptoms,
			PrimaryCount:  row.PrimaryCount,
		}
		for _, l := range c.MatchedLinks {
			c.MatchedWeight += l.Weight
			if l.IsPrimary {
				c.MatchedPrimary++
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// GetAllDiseasesWithSymptoms returns the full catalogue
func (r *PostgresRepository) GetAllDiseasesWithSymptoms(ctx context.Context) ([]model.DiseaseWithSymptoms, error) {
	var diseases []model.Disease
	query := `SELECT ` + diseaseColumns + ` FROM diseases d ORDER BY d.name`
	if err := r.db.SelectContext(ctx, &diseases, query); err != nil {
		return nil, fmt.Errorf("failed to load diseases: %w", err)
	}

	var links []model.DiseaseSymptomLink
	linkQuery := `
		SELECT ` + linkColumns + `
		FROM disease_symptoms ds
		JOIN symptoms s ON s.id = ds.symptom_id
		ORDER BY ds.disease_id, ds.is_primary DESC, ds.weight DESC`
	if err := r.db.SelectContext(ctx, &links, linkQuery); err != nil {
		return nil, fmt.Errorf("failed to load disease symptoms: %w", err)
	}

	byDisease := make(map[int64][]model.DiseaseSymptomLink, len(diseases))
	for _, l := range links {
		byDisease[l.DiseaseID] = append(byDisease[l.DiseaseID], l)
	}

	out := make([]model.DiseaseWithSymptoms, len(diseases))
	for i, d := range diseases {
		out[i] = model.DiseaseWithSymptoms{Disease: d, Symptoms: byDisease[d.ID]}
		if out[i].Symptoms == nil {
			out[i].Symptoms = []model.DiseaseSymptomLink{}
		}
	}
	return out, nil
}

// GetDiseaseByID returns one disease with its symptoms, or nil if it does not exist
func (r *PostgresRepository) GetDiseaseByID(ctx context.Context, id int64) (*model.DiseaseWithSymptoms, error) {
	var d model.Disease
	query := `SELECT ` + diseaseColumns + ` FROM diseases d WHERE d.id = $1`
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get disease %d: %w", id, err)
	}

	links := []model.DiseaseSymptomLink{}
	linkQuery := `
		SELECT ` + linkColumns + `
		FROM disease_symptoms ds
		JOIN symptoms s ON s.id = ds.symptom_id
		WHERE ds.disease_id = $1
		ORDER BY ds.is_primary DESC, ds.weight DESC`
	if err := r.db.SelectContext(ctx, &links, linkQuery, id); err != nil {
		return nil, fmt.Errorf("failed to load symptoms of disease %d: %w", id, err)
	}

	return &model.DiseaseWithSymptoms{Disease: d, Symptoms: links}, nil
}
