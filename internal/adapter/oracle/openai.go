package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIOracle implements domain.Oracle against any OpenAI-compatible
// chat completions endpoint.
type OpenAIOracle struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIOracle creates a client. An empty BaseURL targets the OpenAI API.
func NewOpenAIOracle(cfg config.LLMConfig) *OpenAIOracle {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIOracle{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// Generate implements domain.Oracle.
func (o *OpenAIOracle) Generate(ctx context.Context, req domain.OracleRequest) (string, error) {
	return o.complete(ctx, req, false)
}

// GenerateJSON implements domain.Oracle.
func (o *OpenAIOracle) GenerateJSON(ctx context.Context, req domain.OracleRequest) (json.RawMessage, error) {
	raw, err := o.complete(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return ExtractJSONObject(raw)
}

func (o *OpenAIOracle) complete(ctx context.Context, req domain.OracleRequest, jsonMode bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	creq := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	if jsonMode {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		logger.Get().Error("Chat completion failed", zap.String("model", o.model), zap.Error(err))
		return "", fmt.Errorf("%w: %w", domain.ErrNoUsableOutput, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrNoUsableOutput)
	}
	return resp.Choices[0].Message.Content, nil
}
