package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"plantdoctor/internal/model"
)

// CacheRepository stores AI diagnoses in diagnosis_cache
type CacheRepository struct {
	db *sqlx.DB
}

// NewCacheRepository wraps an open pool
func NewCacheRepository(db *sqlx.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Search returns live entries whose trigram similarity to the query reaches the floor.
// Entries for the requested plant type come first, then by similarity; shared symptoms
// only break ties.
func (r *CacheRepository) Search(ctx context.Context, q model.CacheSearchQuery) ([]model.CacheCandidate, error) {
	var plantType any
	if q.PlantType != nil && *q.PlantType != "" {
		plantType = *q.PlantType
	}
	symptoms := q.SymptomNames
	if symptoms == nil {
		symptoms = []string{}
	}

	var candidates []model.CacheCandidate
	query := `
		SELECT id, plant_type, normalized_description, symptoms, disease_name, response, hit_count,
			similarity(normalized_description, $1)::float8 AS trigram_score
		FROM diagnosis_cache
		WHERE expires_at > NOW()
			AND has_image = $5
			AND similarity(normalized_description, $1) >= $2
		ORDER BY (plant_type IS NOT NULL AND lower(plant_type) = lower($4::text)) DESC NULLS LAST,
			trigram_score DESC,
			(symptoms && $3) DESC,
			hit_count DESC
		LIMIT $6`
	err := r.db.SelectContext(ctx, &candidates, query,
		q.NormalizedText, q.LexicalFloor, pq.Array(symptoms), plantType, q.HasImage, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search diagnosis cache: %w", err)
	}
	return candidates, nil
}

// IncrementHit bumps the hit counter of an entry
func (r *CacheRepository) IncrementHit(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE diagnosis_cache SET hit_count = hit_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment hit count: %w", err)
	}
	return nil
}

// Save inserts a cache entry
func (r *CacheRepository) Save(ctx context.Context, e *model.CacheEntry) error {
	query := `
		INSERT INTO diagnosis_cache (
			id, plant_type, description, normalized_description, symptoms, disease_name,
			response, has_image, hit_count, embedding, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	symptoms := []string(e.Symptoms)
	if symptoms == nil {
		symptoms = []string{}
	}
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.PlantType, e.Description, e.NormalizedDescription, pq.Array(symptoms), e.DiseaseName,
		[]byte(e.Response), e.HasImage, e.HitCount, e.Embedding, e.CreatedAt, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// CleanupExpired deletes entries past their expiry and returns how many were removed
func (r *CacheRepository) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM diagnosis_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	return res.RowsAffected()
}

// GetByID returns one entry, including expired ones
func (r *CacheRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CacheEntry, error) {
	var e model.CacheEntry
	query := `
		SELECT id, plant_type, description, normalized_description, symptoms, disease_name,
			response, has_image, hit_count, embedding, created_at, expires_at
		FROM diagnosis_cache WHERE id = $1`
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		return nil, fmt.Errorf("failed to get cache entry %s: %w", id, err)
	}
	return &e, nil
}

// ListMissingEmbeddings returns live entries that have no embedding yet
func (r *CacheRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]model.EmbeddingItem, error) {
	var rows []struct {
		ID   uuid.UUID `db:"id"`
		Text string    `db:"normalized_description"`
	}
	query := `
		SELECT id, normalized_description
		FROM diagnosis_cache
		WHERE embedding IS NULL AND expires_at > NOW()
		ORDER BY hit_count DESC, created_at DESC
		LIMIT $1`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list entries without embedding: %w", err)
	}

	items := make([]model.EmbeddingItem, len(rows))
	for i, row := range rows {
		items[i] = model.EmbeddingItem{CacheID: row.ID, Text: row.Text}
	}
	return items, nil
}

// BatchUpdateEmbeddings writes embeddings in one transaction. It returns how many
// rows were updated and one message per failed item.
func (r *CacheRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to start transaction: %v", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE diagnosis_cache SET embedding = $1 WHERE id = $2`)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to prepare statement: %v", err)}
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.CacheID); err != nil {
			errs = append(errs, fmt.Sprintf("cache entry %s: %v", item.CacheID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		return 0, append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
	}
	return success, errs
}

// Delete removes one entry. It reports whether the entry existed.
func (r *CacheRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM diagnosis_cache WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
