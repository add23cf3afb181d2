package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "portfolio-tracker/config"
	"portfolio-tracker/observability"
)

// bedrockInvoker is the part of the runtime client used here (for testing).
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockService runs analysis on Claude models hosted in AWS Bedrock.
type BedrockService struct {
	client           bedrockInvoker
	model            string
	maxTokens        int
	anthropicVersion string
}

// ClaudeRequest represents the request format for Claude models via Bedrock
type ClaudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []ClaudeMessage `json:"messages"`
}

// ClaudeMessage represents a message in the Claude conversation
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeResponse represents the response from Claude models
type ClaudeResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockService loads AWS credentials from the default chain.
func NewBedrockService(ctx context.Context, cfg *appconfig.Config) (*BedrockService, error) {
	if cfg.Bedrock.ModelID == "" {
		return nil, fmt.Errorf("BEDROCK_MODEL_ID is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Bedrock.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return newBedrockServiceWithClient(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newBedrockServiceWithClient(client bedrockInvoker, cfg *appconfig.Config) *BedrockService {
	return &BedrockService{
		client:           client,
		model:            cfg.Bedrock.ModelID,
		maxTokens:        cfg.Bedrock.MaxTokens,
		anthropicVersion: cfg.Bedrock.AnthropicVersion,
	}
}

func (s *BedrockService) Name() string { return BreakerBedrock }

// Analyze sends a single user turn and joins the returned text blocks.
func (s *BedrockService) Analyze(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerBedrock, "invoke_model")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerBedrock, func() (string, error) {
		return s.invoke(ctx, systemPrompt, userPrompt)
	})

	timer.ObserveExternalAPI(BreakerBedrock, "invoke_model")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerBedrock, "invoke_model", CategorizeError(err))
	}
	return result, err
}

func (s *BedrockService) invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody, err := json.Marshal(ClaudeRequest{
		AnthropicVersion: s.anthropicVersion,
		MaxTokens:        s.maxTokens,
		System:           systemPrompt,
		Messages: []ClaudeMessage{
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.model),
		Body:        reqBody,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke model: %w", err)
	}

	var response ClaudeResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var b strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("bedrock: %w", ErrEmptyAnalysis)
	}
	return b.String(), nil
}
