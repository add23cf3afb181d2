package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	appconfig "portfolio-tracker/config"
	"portfolio-tracker/observability"
)

// openaiClient defines the interface for OpenAI API calls (for testing)
type openaiClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// openaiClientWrapper wraps the openai.Client to implement our interface
type openaiClientWrapper struct {
	client openai.Client
}

func (w *openaiClientWrapper) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return w.client.Chat.Completions.New(ctx, params)
}

// OpenAIService produces analysis through chat completions.
type OpenAIService struct {
	client    openaiClient
	model     string
	maxTokens int
}

func NewOpenAIService(cfg *appconfig.Config) (*OpenAIService, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey)}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIService{
		client:    &openaiClientWrapper{client: client},
		model:     cfg.OpenAI.Model,
		maxTokens: cfg.OpenAI.MaxTokens,
	}, nil
}

func newOpenAIServiceWithClient(client openaiClient, model string, maxTokens int) *OpenAIService {
	return &OpenAIService{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (s *OpenAIService) Name() string { return BreakerOpenAI }

// Analyze sends a system and a user message and returns the first choice.
func (s *OpenAIService) Analyze(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerOpenAI, "chat_completion")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerOpenAI, func() (string, error) {
		messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
		if systemPrompt != "" {
			messages = append(messages, openai.SystemMessage(systemPrompt))
		}
		messages = append(messages, openai.UserMessage(userPrompt))

		params := openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(s.model),
			Messages: messages,
		}
		if s.maxTokens > 0 {
			params.MaxTokens = openai.Int(int64(s.maxTokens))
		}

		completion, err := s.client.CreateChatCompletion(ctx, params)
		if err != nil {
			return "", fmt.Errorf("failed to invoke OpenAI: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("openai: %w", ErrEmptyAnalysis)
		}

		text := completion.Choices[0].Message.Content
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("openai: %w", ErrEmptyAnalysis)
		}
		return text, nil
	})

	timer.ObserveExternalAPI(BreakerOpenAI, "chat_completion")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerOpenAI, "chat_completion", CategorizeError(err))
	}
	return result, err
}
