package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"plantdoctor/internal/apperrors"
	"plantdoctor/internal/config"
)

// AnalyzeRequest is the input to the vision/language model
type AnalyzeRequest struct {
	Description   string
	Image         []byte
	ImageMimeType string
	ImageURL      string
	Language      string
}

// AnalyzeResult is the raw model output
type AnalyzeResult struct {
	Content string
	Debug   map[string]any
}

// VisionModel diagnoses a plant from an image and/or a description
type VisionModel interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error)

	// AnalyzeStream is Analyze with content deltas delivered to onDelta as they arrive
	AnalyzeStream(ctx context.Context, req AnalyzeRequest, onDelta func(content string) error) (*AnalyzeResult, error)

	IsEnabled() bool
}

// OpenAIVisionClient talks to an OpenAI-compatible chat completion endpoint
type OpenAIVisionClient struct {
	client *openai.Client
	cfg    config.OpenAIConfig
	logger *zap.Logger
}

var (
	_ VisionModel = (*OpenAIVisionClient)(nil)
	_ Embedder    = (*OpenAIVisionClient)(nil)
)

// NewOpenAIVisionClient creates a client from configuration
func NewOpenAIVisionClient(cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIVisionClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.APIBase, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}

	logger = logger.Named("vision")
	if cfg.Enabled {
		logger.Info("Vision model configured",
			zap.String("base_url", clientConfig.BaseURL),
			zap.String("model", cfg.VisionModel),
			zap.String("embedding_model", cfg.EmbeddingModel))
	} else {
		logger.Warn("OPENAI_API_KEY not set, unmatched requests will fail")
	}

	return &OpenAIVisionClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: logger,
	}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIVisionClient) IsEnabled() bool {
	return c.cfg.Enabled
}

// Analyze performs one non-streaming diagnosis request
func (c *OpenAIVisionClient) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	chatReq, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.logger.Error("Vision request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, classifyModelError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", apperrors.ErrDiagnosisFailed)
	}

	elapsed := time.Since(start)
	c.logger.Info("Vision request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", elapsed))

	return &AnalyzeResult{
		Content: resp.Choices[0].Message.Content,
		Debug: map[string]any{
			"model":             resp.Model,
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"elapsed_ms":        elapsed.Milliseconds(),
			"finish_reason":     string(resp.Choices[0].FinishReason),
		},
	}, nil
}

// AnalyzeStream performs a streaming diagnosis request
func (c *OpenAIVisionClient) AnalyzeStream(ctx context.Context, req AnalyzeRequest, onDelta func(content string) error) (*AnalyzeResult, error) {
	chatReq, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}
	chatReq.Stream = true

	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, classifyModelError(err)
	}
	defer stream.Close()

	var content strings.Builder
	chunks := 0
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyModelError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		chunks++
		content.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Info("Vision stream completed", zap.Int("chunks", chunks), zap.Duration("elapsed", time.Since(start)))
	return &AnalyzeResult{
		Content: content.String(),
		Debug: map[string]any{
			"model":      chatReq.Model,
			"chunks":     chunks,
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	}, nil
}

// Embed returns the embedding of text using the configured embedding model
func (c *OpenAIVisionClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.cfg.Enabled || c.cfg.EmbeddingModel == "" {
		return nil, apperrors.ErrModelUnavailable
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIVisionClient) buildRequest(req AnalyzeRequest) (openai.ChatCompletionRequest, error) {
	if !c.cfg.Enabled {
		return openai.ChatCompletionRequest{}, apperrors.ErrModelUnavailable
	}

	language := req.Language
	if language == "" {
		language = c.cfg.Language
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: buildUserPrompt(req.Description, len(req.Image) > 0 || req.ImageURL != ""),
	}}
	if imageURL := imageURLFor(req); imageURL != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailAuto},
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.cfg.VisionModel,
		Temperature: float32(c.cfg.ChatTemperature),
		MaxTokens:   c.cfg.ChatMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(language)},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}, nil
}

// imageURLFor returns the remote URL, or inline image bytes as a data URL
func imageURLFor(req AnalyzeRequest) string {
	if len(req.Image) > 0 {
		mime := req.ImageMimeType
		if mime == "" {
			mime = http.DetectContentType(req.Image)
		}
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
	}
	return req.ImageURL
}

func buildSystemPrompt(language string) string {
	respondIn := "Vietnamese"
	if strings.HasPrefix(strings.ToLower(language), "en") {
		respondIn = "English"
	}
	return `You are a plant pathologist. Diagnose the plant from the photo and/or the farmer's description.

Respond with ONLY a JSON object of this shape:
{
  "plantInfo": {"commonName": string, "scientificName": string},
  "diseaseInfo": {
    "name": string,
    "scientificName": string,
    "description": string,
    "symptoms": [string],
    "causes": string,
    "severity": "low" | "medium" | "high",
    "isHealthy": boolean
  },
  "treatmentInfo": {"immediate": [string], "organic": [string], "chemical": [string], "prevention": [string]},
  "confidenceScore": integer 0-100,
  "productKeywords": [string]
}

Rules:
- If the plant looks healthy set isHealthy to true and name to "Healthy".
- productKeywords are short product search terms (fungicide, insecticide, fertilizer names).
- Write every text field in ` + respondIn + `.`
}

func buildUserPrompt(description string, hasImage bool) string {
	description = strings.TrimSpace(description)
	switch {
	case description == "" && hasImage:
		return "Diagnose the plant in this photo."
	case hasImage:
		return "Diagnose the plant in this photo. The farmer says: " + description
	default:
		return "Diagnose the plant from this description: " + description
	}
}

// classifyModelError maps transport and API errors onto application errors
func classifyModelError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: %s", apperrors.ErrModelUnavailable, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d: %s", apperrors.ErrDiagnosisFailed, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrDiagnosisFailed, err)
}
