package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"plantdoctor/internal/apperrors"
	"plantdoctor/internal/model"
)

// DefaultBackfillLimit caps one backfill run
const DefaultBackfillLimit = 100

// EmbeddingStore lists and updates cache rows that lack an embedding
type EmbeddingStore interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]model.EmbeddingItem, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// EmbeddingBackfill fills embeddings for cache entries saved while the embedder was off or failing
type EmbeddingBackfill struct {
	store    EmbeddingStore
	embedder Embedder
	logger   *zap.Logger
}

// NewEmbeddingBackfill creates a backfill job
func NewEmbeddingBackfill(store EmbeddingStore, embedder Embedder, logger *zap.Logger) *EmbeddingBackfill {
	return &EmbeddingBackfill{
		store:    store,
		embedder: embedder,
		logger:   logger.Named("embedding-backfill"),
	}
}

// Run embeds up to limit entries. Per-item failures are reported, not returned.
func (b *EmbeddingBackfill) Run(ctx context.Context, limit int) (*model.EmbeddingBackfillResponse, error) {
	if b.embedder == nil {
		return nil, apperrors.ErrModelUnavailable
	}
	if limit <= 0 {
		limit = DefaultBackfillLimit
	}

	pending, err := b.store.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return nil, err
	}

	resp := &model.EmbeddingBackfillResponse{Errors: []string{}}
	ready := make([]model.EmbeddingItem, 0, len(pending))
	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := b.embedder.Embed(ctx, item.Text)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("cache entry %s: %v", item.CacheID, err))
			continue
		}
		item.Embedding = vec
		ready = append(ready, item)
	}

	if len(ready) > 0 {
		success, errs := b.store.BatchUpdateEmbeddings(ctx, ready)
		resp.Success = success
		resp.Errors = append(resp.Errors, errs...)
	}
	resp.Failed = len(pending) - resp.Success

	b.logger.Info("Embedding backfill finished",
		zap.Int("pending", len(pending)),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed))
	return resp, nil
}
