package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plantdoctor/internal/model"
)

var errStoreDown = errors.New("connection refused")

type fakeSymptomSource struct {
	entries []model.SymptomEntry
	err     error

	mu    sync.Mutex
	calls int
}

func (f *fakeSymptomSource) GetAllSymptoms(ctx context.Context) ([]model.SymptomEntry, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.entries, f.err
}

type fakeCacheStore struct {
	mu         sync.Mutex
	candidates []model.CacheCandidate
	searchErr  error
	saveErr    error
	queries    []model.CacheSearchQuery
	saved      []*model.CacheEntry
	hits       []uuid.UUID
	deleted    int64
	removed    []uuid.UUID
}

func (f *fakeCacheStore) Search(ctx context.Context, q model.CacheSearchQuery) ([]model.CacheCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.candidates, f.searchErr
}

func (f *fakeCacheStore) IncrementHit(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, id)
	return nil
}

func (f *fakeCacheStore) Save(ctx context.Context, entry *model.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, entry)
	return nil
}

func (f *fakeCacheStore) CleanupExpired(ctx context.Context) (int64, error) {
	return f.deleted, nil
}

func (f *fakeCacheStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.candidates {
		if c.ID == id {
			f.removed = append(f.removed, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCacheStore) savedEntries() []*model.CacheEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.CacheEntry(nil), f.saved...)
}

type fakeDiseaseSource struct {
	candidates []model.DiseaseMatchCandidate
	byPlant    map[string][]model.Disease
	err        error
	gotIDs     []int64
}

func (f *fakeDiseaseSource) FindDiseasesBySymptomIDs(ctx context.Context, ids []int64) ([]model.DiseaseMatchCandidate, error) {
	f.gotIDs = ids
	out := make([]model.DiseaseMatchCandidate, len(f.candidates))
	copy(out, f.candidates)
	return out, f.err
}

func (f *fakeDiseaseSource) GetDiseasesForPlantTypeName(ctx context.Context, name string) ([]model.Disease, error) {
	return f.byPlant[name], nil
}

type fakeVision struct {
	mu       sync.Mutex
	content  string
	err      error
	enabled  bool
	calls    int
	lastReq  AnalyzeRequest
	block    chan struct{}
	started  chan struct{}
	embedErr error
}

func (f *fakeVision) IsEnabled() bool { return f.enabled }

func (f *fakeVision) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &AnalyzeResult{Content: f.content, Debug: map[string]any{"model": "fake"}}, nil
}

func (f *fakeVision) AnalyzeStream(ctx context.Context, req AnalyzeRequest, onDelta func(string) error) (*AnalyzeResult, error) {
	res, err := f.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	half := len(res.Content) / 2
	for _, chunk := range []string{res.Content[:half], res.Content[half:]} {
		if err := onDelta(chunk); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (f *fakeVision) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeVision) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingHits struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingHits) Record(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return true
}

func strPtr(s string) *string { return &s }

func partPtr(p model.PlantPart) *model.PlantPart { return &p }

func testLogger() *zap.Logger { return zap.NewNop() }
