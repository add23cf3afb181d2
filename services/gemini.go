package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	appconfig "portfolio-tracker/config"
	"portfolio-tracker/observability"
)

// ErrEmptyAnalysis is returned when a model answers without any text.
var ErrEmptyAnalysis = errors.New("model returned no text")

// geminiModels is the part of genai.Models used here (for testing).
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiService asks Gemini for analysis with Google Search grounding so
// the model can look up current news on the holdings.
type GeminiService struct {
	models    geminiModels
	model     string
	grounding bool
}

func NewGeminiService(ctx context.Context, cfg *appconfig.Config) (*GeminiService, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GeminiService{
		models:    client.Models,
		model:     cfg.Gemini.Model,
		grounding: true,
	}, nil
}

func newGeminiServiceWithModels(models geminiModels, model string) *GeminiService {
	return &GeminiService{models: models, model: model, grounding: true}
}

func (s *GeminiService) Name() string { return BreakerGemini }

// Analyze sends one user turn with the system instruction and returns the
// text of the first candidate that has any.
func (s *GeminiService) Analyze(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerGemini, "generate_content")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerGemini, func() (string, error) {
		genCfg := &genai.GenerateContentConfig{}
		if systemPrompt != "" {
			genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
		}
		if s.grounding {
			genCfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
		}

		contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
		resp, err := s.models.GenerateContent(ctx, s.model, contents, genCfg)
		if err != nil {
			return "", fmt.Errorf("gemini generate content: %w", err)
		}
		return geminiText(resp)
	})

	timer.ObserveExternalAPI(BreakerGemini, "generate_content")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerGemini, "generate_content", CategorizeError(err))
	}
	return result, err
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyAnalysis
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	return "", ErrEmptyAnalysis
}
