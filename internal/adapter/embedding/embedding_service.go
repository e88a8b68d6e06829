package embedding

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"notes-quiz/internal/cache"
	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"

	"github.com/tmc/langchaingo/embeddings"
	ollamaLLM "github.com/tmc/langchaingo/llms/ollama"
	openaiLLM "github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheTTL = 7 * 24 * time.Hour

// Service implements domain.EmbeddingService on a langchaingo embedder.
// Vectors are gob-encoded in the shared cache when one is configured.
type Service struct {
	embedder embeddings.Embedder
	cache    domain.Cache
	source   string
	model    string
	sfGroup  singleflight.Group
}

// NewService wraps an embedder. cache may be nil.
func NewService(embedder embeddings.Embedder, c domain.Cache, source, model string) *Service {
	return &Service{embedder: embedder, cache: c, source: source, model: model}
}

// New builds the embedding service selected by cfg.Source.
func New(cfg config.EmbeddingConfig, c domain.Cache) (*Service, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model name cannot be empty")
	}

	var (
		embedder embeddings.Embedder
		err      error
	)
	switch cfg.Source {
	case "", "ollama":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("ollama server URL cannot be empty")
		}
		var llm *ollamaLLM.LLM
		llm, err = ollamaLLM.New(ollamaLLM.WithModel(cfg.Model), ollamaLLM.WithServerURL(cfg.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client for embedder: %w", err)
		}
		embedder, err = embeddings.NewEmbedder(llm)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key cannot be empty")
		}
		var llm *openaiLLM.LLM
		llm, err = openaiLLM.New(openaiLLM.WithToken(cfg.APIKey), openaiLLM.WithEmbeddingModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client for embedder: %w", err)
		}
		embedder, err = embeddings.NewEmbedder(llm)
	default:
		return nil, fmt.Errorf("unsupported embedding source: %q", cfg.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return NewService(embedder, c, cfg.Source, cfg.Model), nil
}

// Generate returns the embedding of text, consulting the cache first.
// Concurrent requests for the same text share one embedder call.
func (s *Service) Generate(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("input text cannot be empty for embedding")
	}
	l := logger.Get()
	key := cache.EmbeddingCacheKey(s.source, s.model, text)

	if s.cache != nil {
		if vec, ok := s.cached(ctx, key); ok {
			return vec, nil
		}
	}

	res, err, _ := s.sfGroup.Do(key, func() (interface{}, error) {
		vec, err := s.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("embedder returned an empty vector")
		}

		if s.cache != nil {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(vec); err != nil {
				l.Warn("Failed to encode embedding for cache", zap.Error(err))
			} else if err := s.cache.Set(ctx, key, buf.String(), cacheTTL); err != nil {
				l.Warn("Failed to cache embedding", zap.Error(err), zap.String("key", key))
			}
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]float32), nil
}

func (s *Service) cached(ctx context.Context, key string) ([]float32, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("Failed to read embedding cache", zap.Error(err), zap.String("key", key))
		}
		return nil, false
	}
	var vec []float32
	if err := gob.NewDecoder(bytes.NewReader([]byte(data))).Decode(&vec); err != nil || len(vec) == 0 {
		logger.Get().Warn("Discarding undecodable cached embedding", zap.String("key", key))
		return nil, false
	}
	return vec, true
}
