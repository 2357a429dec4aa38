package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"plantdoctor/internal/config"
	"plantdoctor/internal/logging"
	"plantdoctor/internal/repository"
	"plantdoctor/internal/service"
	"plantdoctor/internal/utils"
)

var (
	_ service.CacheStore     = (*repository.CacheRepository)(nil)
	_ service.EmbeddingStore = (*repository.CacheRepository)(nil)
	_ service.HitCounter     = (*repository.CacheRepository)(nil)
	_ service.SymptomSource  = (*repository.PostgresRepository)(nil)
	_ service.DiseaseSource  = (*repository.PostgresRepository)(nil)
	_ service.CatalogSource  = (*repository.PostgresRepository)(nil)
)

// App is the wired set of repositories and services shared by the server and the CLI
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Repo      *repository.PostgresRepository
	Cache     *repository.CacheRepository
	Hits      *service.HitRecorder
	Diagnosis *service.DiagnosisService
	Catalog   *service.CatalogService
	Backfill  *service.EmbeddingBackfill
	Vision    *service.OpenAIVisionClient
}

// New connects to PostgreSQL, optionally migrates, and builds every service
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	lex, err := config.LoadLexicon(cfg.Lexicon.Path)
	if err != nil {
		return nil, err
	}

	db, err := repository.Connect(ctx, cfg.GetPostgreSQLDSN(), cfg.PostgreSQL.MaxConnections, cfg.PostgreSQL.MaxIdleConnections)
	if err != nil {
		return nil, fmt.Errorf("%w (dsn: %s)", err, logging.SanitizeConnectionString(cfg.GetPostgreSQLDSN()))
	}
	logger.Info("Connected to PostgreSQL",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.GetPostgreSQLDSN())))

	if cfg.PostgreSQL.MigrateOnStart {
		if err := repository.RunMigrations(ctx, db.DB, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	repo := repository.NewPostgresRepository(db)
	cacheRepo := repository.NewCacheRepository(db)

	vision := service.NewOpenAIVisionClient(cfg.OpenAI, logger)

	var embedder service.Embedder
	if vision.IsEnabled() && cfg.OpenAI.EmbeddingModel != "" {
		embedder = vision
	}

	normalizer := utils.NewNormalizer(lex.Diacritics)
	extractor := service.NewExtractor(service.NewSegmenter(lex), normalizer)
	hits := service.NewHitRecorder(cacheRepo, cfg.Cache.HitQueueSize, logger)

	diagnosis := service.NewDiagnosisService(service.DiagnosisDeps{
		Symptoms:       repo,
		Normalizer:     normalizer,
		Extractor:      extractor,
		Diseases:       service.NewDiseaseMatcher(repo, extractor, logger),
		Cache:          service.NewCacheMatcher(cacheRepo, extractor, normalizer, embedder, cfg.Cache.TTLDays, logger),
		Hits:           hits,
		Vision:         vision,
		Logger:         logger,
		CoalesceMisses: cfg.Cache.CoalesceMisses,
	})

	return &App{
		Config:    cfg,
		Logger:    logger,
		Repo:      repo,
		Cache:     cacheRepo,
		Hits:      hits,
		Diagnosis: diagnosis,
		Catalog:   service.NewCatalogService(repo),
		Backfill:  service.NewEmbeddingBackfill(cacheRepo, embedder, logger),
		Vision:    vision,
	}, nil
}

// Close waits for pending cache writes, drains hit updates, then closes the pool
func (a *App) Close(ctx context.Context) error {
	if err := a.Diagnosis.Close(ctx); err != nil {
		a.Logger.Warn("Cache writes still pending at shutdown", zap.Error(err))
	}
	if err := a.Hits.Close(ctx); err != nil {
		a.Logger.Warn("Hit recorder did not drain", zap.Error(err))
	}
	return a.Repo.Close()
}
