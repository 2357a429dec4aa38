//go:build integration

package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plantdoctor/internal/model"
	"plantdoctor/internal/repository"
	"plantdoctor/internal/testhelpers"
)

func strPtr(s string) *string { return &s }

func newEntry(description string, symptoms []string, expiresIn time.Duration) *model.CacheEntry {
	now := time.Now().UTC()
	return &model.CacheEntry{
		ID:                    uuid.New(),
		PlantType:             strPtr("Sầu riêng"),
		Description:           description,
		NormalizedDescription: description,
		Symptoms:              symptoms,
		DiseaseName:           strPtr("Thối rễ do nấm Phytophthora"),
		Response:              json.RawMessage(`{"disease_name":"Thối rễ do nấm Phytophthora","confidence":80}`),
		CreatedAt:             now,
		ExpiresAt:             now.Add(expiresIn),
	}
}

func TestCatalog_SeedData(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := repository.NewPostgresRepository(testDB.DB)
	ctx := context.Background()

	symptoms, err := repo.GetAllSymptoms(ctx)
	require.NoError(t, err)
	assert.Len(t, symptoms, 10)

	plants, err := repo.GetAllPlantTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, plants, 3)

	diseases, err := repo.GetDiseasesForPlantTypeName(ctx, "sầu riêng")
	require.NoError(t, err)
	names := make([]string, len(diseases))
	for i, d := range diseases {
		names[i] = d.Name
	}
	assert.ElementsMatch(t, []string{"Thối rễ do nấm Phytophthora", "Thán thư"}, names)
}

func TestFindDiseasesBySymptomIDs(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := repository.NewPostgresRepository(testDB.DB)
	ctx := context.Background()

	symptoms, err := repo.GetAllSymptoms(ctx)
	require.NoError(t, err)
	ids := map[string]int64{}
	for _, s := range symptoms {
		ids[s.Name] = s.ID
	}

	candidates, err := repo.FindDiseasesBySymptomIDs(ctx, []int64{ids["thối rễ"], ids["lá vàng"]})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "Thối rễ do nấm Phytophthora", c.Disease.Name)
	assert.InDelta(t, 4.0, c.TotalWeight, 1e-9)
	assert.InDelta(t, 3.0, c.MatchedWeight, 1e-9)
	assert.Equal(t, 3, c.TotalSymptoms)
	assert.Equal(t, 1, c.PrimaryCount)
	assert.Equal(t, 1, c.MatchedPrimary)
	require.Len(t, c.MatchedLinks, 2)
	for _, l := range c.MatchedLinks {
		require.NotNil(t, l.AffectedPart)
	}

	none, err := repo.FindDiseasesBySymptomIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetDiseaseByID(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := repository.NewPostgresRepository(testDB.DB)
	ctx := context.Background()

	all, err := repo.GetAllDiseasesWithSymptoms(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	got, err := repo.GetDiseaseByID(ctx, all[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, all[0].Name, got.Name)
	assert.NotEmpty(t, got.Symptoms)

	missing, err := repo.GetDiseaseByID(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCache_SaveSearchAndHit(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	cache := repository.NewCacheRepository(testDB.DB)
	ctx := context.Background()

	entry := newEntry("re cay bi thoi den va la vang ua", []string{"thối rễ", "lá vàng"}, time.Hour)
	require.NoError(t, cache.Save(ctx, entry))

	candidates, err := cache.Search(ctx, model.CacheSearchQuery{
		NormalizedText: "re cay bi thoi den va la vang ua",
		PlantType:      strPtr("sầu riêng"),
		LexicalFloor:   0.3,
		Limit:          20,
	})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, entry.ID, candidates[0].ID)
	assert.InDelta(t, 1.0, candidates[0].TrigramScore, 1e-6)
	assert.JSONEq(t, string(entry.Response), string(candidates[0].Response))

	unrelated := newEntry("canh cay con nhieu choi non xanh tot", []string{"lá vàng"}, time.Hour)
	require.NoError(t, cache.Save(ctx, unrelated))
	bySymptom, err := cache.Search(ctx, model.CacheSearchQuery{
		NormalizedText: "re cay bi thoi den va la vang ua",
		SymptomNames:   []string{"lá vàng"},
		LexicalFloor:   0.3,
		Limit:          20,
	})
	require.NoError(t, err)
	for _, c := range bySymptom {
		assert.NotEqual(t, unrelated.ID, c.ID, "shared symptoms never bypass the similarity floor")
		assert.GreaterOrEqual(t, c.TrigramScore, 0.3)
	}

	withImage, err := cache.Search(ctx, model.CacheSearchQuery{
		NormalizedText: "re cay bi thoi den va la vang ua",
		HasImage:       true,
		LexicalFloor:   0.3,
		Limit:          20,
	})
	require.NoError(t, err)
	for _, c := range withImage {
		assert.NotEqual(t, entry.ID, c.ID)
	}

	require.NoError(t, cache.IncrementHit(ctx, entry.ID))
	require.NoError(t, cache.IncrementHit(ctx, entry.ID))
	stored, err := cache.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.HitCount)
}

func TestCache_CleanupExpired(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	cache := repository.NewCacheRepository(testDB.DB)
	ctx := context.Background()

	expired := newEntry("qua thoi nhun tu cuong", []string{"thối quả"}, -time.Hour)
	live := newEntry("qua thoi nhun tu cuong con moi", []string{"thối quả"}, time.Hour)
	require.NoError(t, cache.Save(ctx, expired))
	require.NoError(t, cache.Save(ctx, live))

	candidates, err := cache.Search(ctx, model.CacheSearchQuery{
		NormalizedText: "qua thoi nhun tu cuong",
		LexicalFloor:   0.3,
		Limit:          20,
	})
	require.NoError(t, err)
	for _, c := range candidates {
		assert.NotEqual(t, expired.ID, c.ID, "expired entries are never candidates")
	}

	deleted, err := cache.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	_, err = cache.GetByID(ctx, expired.ID)
	assert.Error(t, err)
	_, err = cache.GetByID(ctx, live.ID)
	assert.NoError(t, err)
}

func TestCache_EmbeddingBackfill(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	cache := repository.NewCacheRepository(testDB.DB)
	ctx := context.Background()

	entry := newEntry("than chay nhua nau do", []string{"chảy nhựa"}, time.Hour)
	require.NoError(t, cache.Save(ctx, entry))

	pending, err := cache.ListMissingEmbeddings(ctx, 1000)
	require.NoError(t, err)
	var item *model.EmbeddingItem
	for i := range pending {
		if pending[i].CacheID == entry.ID {
			item = &pending[i]
		}
	}
	require.NotNil(t, item)
	assert.Equal(t, entry.NormalizedDescription, item.Text)

	item.Embedding = []float32{0.1, 0.2, 0.3}
	success, errs := cache.BatchUpdateEmbeddings(ctx, []model.EmbeddingItem{*item})
	assert.Equal(t, 1, success)
	assert.Empty(t, errs)

	stored, err := cache.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Embedding)
	assert.Equal(t, pgvector.NewVector([]float32{0.1, 0.2, 0.3}).Slice(), stored.Embedding.Slice())
}

func TestMigrations_Version(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)

	version, dirty, err := repository.MigrationVersion(context.Background(), testDB.DB.DB, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 2, version)
}
