// Package oracle adapts language model clients to domain.Oracle.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

const defaultTimeout = 60 * time.Second

// LangchainOracle implements domain.Oracle on any langchaingo model.
type LangchainOracle struct {
	model   llms.Model
	timeout time.Duration
}

// NewLangchainOracle wraps model. A zero timeout selects the default.
func NewLangchainOracle(model llms.Model, timeout time.Duration) *LangchainOracle {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LangchainOracle{model: model, timeout: timeout}
}

// NewOllamaOracle connects to a local Ollama server.
func NewOllamaOracle(cfg config.LLMConfig) (*LangchainOracle, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewLangchainOracle(llm, cfg.Timeout), nil
}

// Generate implements domain.Oracle.
func (o *LangchainOracle) Generate(ctx context.Context, req domain.OracleRequest) (string, error) {
	return o.call(ctx, req)
}

// GenerateJSON implements domain.Oracle.
func (o *LangchainOracle) GenerateJSON(ctx context.Context, req domain.OracleRequest) (json.RawMessage, error) {
	raw, err := o.call(ctx, req, llms.WithJSONMode())
	if err != nil {
		return nil, err
	}
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		logger.Get().Warn("Oracle returned no JSON object", zap.String("raw_response", raw))
		return nil, err
	}
	return obj, nil
}

func (o *LangchainOracle) call(ctx context.Context, req domain.OracleRequest, extra ...llms.CallOption) (string, error) {
	l := logger.Get()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	opts = append(opts, extra...)

	start := time.Now()
	resp, err := o.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			l.Error("LLM request timed out", zap.Duration("timeout", o.timeout))
		} else {
			l.Error("Failed to get response from LLM", zap.Error(err))
		}
		return "", fmt.Errorf("%w: %w", domain.ErrNoUsableOutput, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrNoUsableOutput)
	}

	l.Debug("LLM response received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("length", len(resp.Choices[0].Content)))
	return resp.Choices[0].Content, nil
}
