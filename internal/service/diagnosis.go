package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"plantdoctor/internal/apperrors"
	"plantdoctor/internal/logging"
	"plantdoctor/internal/model"
	"plantdoctor/internal/utils"
)

// Stream event names
const (
	EventKnowledgeBase = "knowledge_base"
	EventCache         = "cache"
	EventAnalyzing     = "analyzing"
	EventContent       = "content"
)

// cacheWriteTimeout bounds a detached cache write, embedding call included
const cacheWriteTimeout = 30 * time.Second

// DiagnosisEventCallback is called for streaming diagnosis events
type DiagnosisEventCallback func(event string, data any) error

// HitSink receives accepted cache hits
type HitSink interface {
	Record(id uuid.UUID) bool
}

// DiagnosisService runs the knowledge base -> cache -> model priority chain
type DiagnosisService struct {
	symptoms   SymptomSource
	normalizer *utils.Normalizer
	extractor  *Extractor
	diseases   *DiseaseMatcher
	cache      *CacheMatcher
	hits       HitSink
	vision     VisionModel
	logger     *zap.Logger

	coalesce bool
	flights  singleflight.Group

	// pending tracks detached cache writes
	pending sync.WaitGroup
}

// DiagnosisDeps groups the collaborators of DiagnosisService
type DiagnosisDeps struct {
	Symptoms   SymptomSource
	Normalizer *utils.Normalizer
	Extractor  *Extractor
	Diseases   *DiseaseMatcher
	Cache      *CacheMatcher
	Hits       HitSink
	Vision     VisionModel
	Logger     *zap.Logger

	// CoalesceMisses shares one model call between concurrent identical text-only requests
	CoalesceMisses bool
}

// NewDiagnosisService creates the orchestrator
func NewDiagnosisService(deps DiagnosisDeps) *DiagnosisService {
	return &DiagnosisService{
		symptoms:   deps.Symptoms,
		normalizer: deps.Normalizer,
		extractor:  deps.Extractor,
		diseases:   deps.Diseases,
		cache:      deps.Cache,
		hits:       deps.Hits,
		vision:     deps.Vision,
		logger:     deps.Logger.Named("diagnosis"),
		coalesce:   deps.CoalesceMisses,
	}
}

// Diagnose resolves a request through the priority chain
func (s *DiagnosisService) Diagnose(ctx context.Context, req *model.DiagnoseRequest) (*model.DiagnoseResponse, error) {
	return s.diagnose(ctx, req, nil)
}

// DiagnoseStream is Diagnose with stage and model-output events delivered to callback
func (s *DiagnosisService) DiagnoseStream(ctx context.Context, req *model.DiagnoseRequest, callback DiagnosisEventCallback) (*model.DiagnoseResponse, error) {
	return s.diagnose(ctx, req, callback)
}

func (s *DiagnosisService) diagnose(ctx context.Context, req *model.DiagnoseRequest, callback DiagnosisEventCallback) (*model.DiagnoseResponse, error) {
	startTime := time.Now()

	if err := prepareRequest(req); err != nil {
		return nil, err
	}

	emit := func(event string, data any) error {
		if callback == nil {
			return nil
		}
		return callback(event, data)
	}

	dict := NewSymptomDictionary(s.symptoms, s.normalizer)
	textOnly := !req.HasImage()

	if textOnly && !req.SkipCache {
		if err := emit(EventKnowledgeBase, map[string]any{"status": "Checking knowledge base..."}); err != nil {
			return nil, err
		}
		if kb := s.diseases.FindMatchingDisease(ctx, dict, req.Description, req.PlantType); kb != nil {
			s.logger.Info("Diagnosis served from knowledge base",
				zap.String("disease", kb.Disease.Name),
				zap.Float64("score", kb.Score))
			return &model.DiagnoseResponse{
				Source:             model.SourceKnowledgeBase,
				Diagnosis:          diagnosisFromDisease(kb, req.PlantType),
				KnowledgeBaseMatch: kb,
				Took:               time.Since(startTime).Milliseconds(),
			}, nil
		}

		if err := emit(EventCache, map[string]any{"status": "Searching previous diagnoses..."}); err != nil {
			return nil, err
		}
		if hit := s.cache.FindMatch(ctx, dict, req.Description, req.PlantType, false); hit != nil {
			var cached model.Diagnosis
			if err := json.Unmarshal(hit.Candidate.Response, &cached); err != nil {
				s.logger.Warn("Cached response is unreadable, ignoring hit",
					zap.String("id", hit.Candidate.ID.String()),
					zap.Error(err))
			} else {
				if s.hits != nil {
					s.hits.Record(hit.Candidate.ID)
				}
				s.logger.Info("Diagnosis served from cache",
					zap.String("id", hit.Candidate.ID.String()),
					zap.Float64("score", hit.Score))
				return &model.DiagnoseResponse{
					Source:     model.SourceCache,
					Diagnosis:  &cached,
					CacheMatch: hit,
					Took:       time.Since(startTime).Milliseconds(),
				}, nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := emit(EventAnalyzing, map[string]any{"status": "Analyzing with AI model..."}); err != nil {
		return nil, err
	}

	var onDelta func(string) error
	if callback != nil {
		onDelta = func(content string) error {
			return callback(EventContent, map[string]any{"content": content})
		}
	}

	var (
		outcome *modelOutcome
		err     error
	)
	if s.coalesce && textOnly && onDelta == nil {
		outcome, err = s.analyzeCoalesced(ctx, dict, req)
	} else {
		outcome, err = s.analyzeAndCache(ctx, dict, req, onDelta)
	}
	if err != nil {
		return nil, err
	}

	return &model.DiagnoseResponse{
		Source:    model.SourceAI,
		Diagnosis: outcome.diagnosis,
		Debug:     outcome.debug,
		Took:      time.Since(startTime).Milliseconds(),
	}, nil
}

// modelOutcome is a parsed model diagnosis, shared between coalesced callers
type modelOutcome struct {
	diagnosis *model.Diagnosis
	debug     map[string]any
}

// analyzeCoalesced runs one model call per normalized description at a time.
// Waiting callers give up when their own context ends.
func (s *DiagnosisService) analyzeCoalesced(ctx context.Context, dict *SymptomDictionary, req *model.DiagnoseRequest) (*modelOutcome, error) {
	key := s.flightKey(req)
	ch := s.flights.DoChan(key, func() (any, error) {
		return s.analyzeAndCache(context.WithoutCancel(ctx), dict, req, nil)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("Model call shared with concurrent request")
		}
		shared := res.Val.(*modelOutcome)
		d := *shared.diagnosis
		return &modelOutcome{diagnosis: &d, debug: shared.debug}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *DiagnosisService) flightKey(req *model.DiagnoseRequest) string {
	plant := ""
	if req.PlantType != nil {
		plant = s.normalizer.Normalize(*req.PlantType)
	}
	return strings.Join([]string{s.normalizer.Normalize(req.Description), plant, req.Language}, "\x00")
}

// analyzeAndCache calls the model, parses its answer and caches text-only results
func (s *DiagnosisService) analyzeAndCache(ctx context.Context, dict *SymptomDictionary, req *model.DiagnoseRequest, onDelta func(string) error) (*modelOutcome, error) {
	if s.vision == nil || !s.vision.IsEnabled() {
		return nil, apperrors.ErrModelUnavailable
	}

	analyzeReq := AnalyzeRequest{
		Description:   req.Description,
		Image:         req.Image,
		ImageMimeType: req.ImageMimeType,
		ImageURL:      req.ImageURL,
		Language:      req.Language,
	}

	var (
		result *AnalyzeResult
		err    error
	)
	if onDelta != nil {
		result, err = s.vision.AnalyzeStream(ctx, analyzeReq, onDelta)
	} else {
		result, err = s.vision.Analyze(ctx, analyzeReq)
	}
	if err != nil {
		s.logger.Error("Model call failed", zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	diagnosis, err := ParseDiagnosis(result.Content)
	if err != nil {
		s.logger.Warn("Model returned unparseable diagnosis",
			zap.String("content", logging.TruncateString(result.Content, 200)),
			zap.Error(err))
		return nil, err
	}

	if !req.HasImage() {
		s.saveDetached(ctx, dict, req.Description, req.PlantType, diagnosis)
	}

	return &modelOutcome{diagnosis: diagnosis, debug: result.Debug}, nil
}

// modelDiagnosis accepts a fractional confidence score from the model
type modelDiagnosis struct {
	model.Diagnosis
	ConfidenceScore float64 `json:"confidenceScore"`
}

// saveDetached writes a text-only diagnosis to the cache without holding up the response.
// The write outlives the request context but not cacheWriteTimeout.
func (s *DiagnosisService) saveDetached(ctx context.Context, dict *SymptomDictionary, description string, plantType *string, diagnosis *model.Diagnosis) {
	var plant *string
	if plantType != nil {
		p := *plantType
		plant = &p
	}
	saved := *diagnosis

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
		defer cancel()
		s.cache.Save(saveCtx, dict, description, plant, &saved, false)
	}()
}

// Close waits for detached cache writes to finish or ctx to end
func (s *DiagnosisService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseDiagnosis decodes model output into a Diagnosis
func ParseDiagnosis(content string) (*model.Diagnosis, error) {
	var raw modelDiagnosis
	if err := utils.ParseAIJSON(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidResponse, err)
	}
	d := raw.Diagnosis

	d.DiseaseInfo.Name = strings.TrimSpace(d.DiseaseInfo.Name)
	if d.DiseaseInfo.Name == "" && !d.DiseaseInfo.IsHealthy {
		return nil, fmt.Errorf("%w: missing disease name", apperrors.ErrInvalidResponse)
	}
	d.ConfidenceScore = int(math.Round(math.Max(0, math.Min(100, raw.ConfidenceScore))))
	if d.DiseaseInfo.Symptoms == nil {
		d.DiseaseInfo.Symptoms = []string{}
	}
	if d.ProductKeywords == nil {
		d.ProductKeywords = []string{}
	}
	return &d, nil
}

// diagnosisFromDisease renders a knowledge-base match in the shared diagnosis schema
func diagnosisFromDisease(kb *model.DiseaseMatchResult, plantType *string) *model.Diagnosis {
	d := &model.Diagnosis{
		DiseaseInfo: model.DiseaseInfo{
			Name:           kb.Disease.Name,
			ScientificName: deref(kb.Disease.ScientificName),
			Description:    deref(kb.Disease.Description),
			Symptoms:       kb.MatchedSymptoms,
			Causes:         deref(kb.Disease.Causes),
		},
		TreatmentInfo: model.TreatmentInfo{
			Immediate:  splitLines(kb.Disease.Treatment),
			Prevention: splitLines(kb.Disease.Prevention),
		},
		ConfidenceScore: int(math.Round(kb.Score * 100)),
		ProductKeywords: kb.ProductKeywords,
	}
	if plantType != nil {
		d.PlantInfo.CommonName = *plantType
	}
	if d.DiseaseInfo.Symptoms == nil {
		d.DiseaseInfo.Symptoms = []string{}
	}
	if d.ProductKeywords == nil {
		d.ProductKeywords = []string{}
	}
	return d
}

// prepareRequest validates a request and decodes an inline image
func prepareRequest(req *model.DiagnoseRequest) error {
	if req == nil {
		return apperrors.ErrEmptyInput
	}
	req.Description = strings.TrimSpace(req.Description)

	if req.ImageBase64 != "" && len(req.Image) == 0 {
		data := req.ImageBase64
		if i := strings.Index(data, ";base64,"); i >= 0 && strings.HasPrefix(data, "data:") {
			if req.ImageMimeType == "" {
				req.ImageMimeType = data[len("data:"):i]
			}
			data = data[i+len(";base64,"):]
		}
		img, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidImage, err)
		}
		req.Image = img
	}

	if req.Description == "" && !req.HasImage() {
		return apperrors.ErrEmptyInput
	}
	return nil
}

// ExtractSymptoms shows how a description is segmented and which symptoms it mentions
func (s *DiagnosisService) ExtractSymptoms(ctx context.Context, description string) (*model.ExtractResponse, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.ErrEmptyInput
	}
	dict, err := NewSymptomDictionary(s.symptoms, s.normalizer).Get(ctx)
	if err != nil {
		return nil, err
	}
	clauses, symptoms := s.extractor.ExtractDetailed(description, dict)
	return &model.ExtractResponse{
		Clauses:  clauses,
		Symptoms: symptoms,
		Names:    symptoms.Flatten(),
	}, nil
}

// CleanupCache removes expired cache entries
func (s *DiagnosisService) CleanupCache(ctx context.Context) (int64, error) {
	return s.cache.Cleanup(ctx)
}

// Feedback applies a user verdict to a cached diagnosis. A helpful verdict counts as a hit,
// an incorrect one removes the entry so it is never served again.
func (s *DiagnosisService) Feedback(ctx context.Context, req *model.FeedbackRequest) error {
	switch req.Action {
	case model.FeedbackHelpful:
		if s.hits != nil {
			s.hits.Record(req.CacheID)
		}
		return nil
	case model.FeedbackIncorrect:
		return s.cache.Invalidate(ctx, req.CacheID)
	default:
		return fmt.Errorf("%w: unknown feedback action %q", apperrors.ErrInvalidInput, req.Action)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func splitLines(s *string) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(*s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
