package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"notes-quiz/internal/cache"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/util"

	"go.uber.org/zap"
)

// GradingCacheExpiration bounds how long oracle gradings are reused.
const GradingCacheExpiration = 24 * time.Hour

// cachedGrading is one stored oracle grading with the answer it judged.
type cachedGrading struct {
	Grading   *domain.Grading `json:"grading"`
	Embedding []float32       `json:"embedding,omitempty"`
	Answer    string          `json:"answer"`
}

// GradingCache reuses oracle gradings for answers already seen on the same
// question.
type GradingCache interface {
	Get(ctx context.Context, q *domain.Question, answer string) (*domain.Grading, bool)
	Put(ctx context.Context, q *domain.Question, answer string, g *domain.Grading)
}

type gradingCache struct {
	cache     domain.Cache
	embedder  domain.EmbeddingService
	threshold float64
	ttl       time.Duration
}

// NewGradingCache stores gradings in c. When embedder is non-nil, an answer
// whose embedding is at least threshold similar to a cached one is a hit.
func NewGradingCache(c domain.Cache, embedder domain.EmbeddingService, threshold float64) GradingCache {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &gradingCache{cache: c, embedder: embedder, threshold: threshold, ttl: GradingCacheExpiration}
}

func answerField(answer string) string {
	return strings.ToLower(strings.Join(strings.Fields(answer), " "))
}

func (s *gradingCache) Get(ctx context.Context, q *domain.Question, answer string) (*domain.Grading, bool) {
	key := cache.GradingCacheKey(q.Prompt, q.AnswerKey.CanonicalAnswer)
	entries, err := s.cache.HGetAll(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("GradingCache: HGetAll failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	field := answerField(answer)
	if raw, ok := entries[field]; ok {
		var entry cachedGrading
		if err := json.Unmarshal([]byte(raw), &entry); err == nil && entry.Grading != nil {
			logger.Get().Debug("GradingCache: exact hit", zap.String("question_id", q.ID))
			return rebind(entry.Grading, q), true
		}
	}

	if s.embedder == nil {
		return nil, false
	}
	vec, err := s.embedder.Generate(ctx, answer)
	if err != nil || len(vec) == 0 {
		return nil, false
	}
	for _, raw := range entries {
		var entry cachedGrading
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			logger.Get().Warn("GradingCache: skipping malformed entry", zap.String("key", key), zap.Error(err))
			continue
		}
		if entry.Grading == nil || len(entry.Embedding) == 0 {
			continue
		}
		similarity, err := util.CosineSimilarity(vec, entry.Embedding)
		if err != nil || similarity < s.threshold {
			continue
		}
		logger.Get().Info("GradingCache: similar answer hit",
			zap.String("question_id", q.ID),
			zap.Float64("similarity", similarity),
		)
		return rebind(entry.Grading, q), true
	}
	return nil, false
}

func (s *gradingCache) Put(ctx context.Context, q *domain.Question, answer string, g *domain.Grading) {
	if g == nil {
		return
	}
	entry := cachedGrading{Grading: g, Answer: answer}
	if s.embedder != nil {
		if vec, err := s.embedder.Generate(ctx, answer); err == nil {
			entry.Embedding = vec
		}
	}
	data, err := json.Marshal(entry)
	if err != nil {
		logger.Get().Error("GradingCache: failed to marshal grading", zap.Error(err))
		return
	}
	key := cache.GradingCacheKey(q.Prompt, q.AnswerKey.CanonicalAnswer)
	if err := s.cache.HSet(ctx, key, map[string]string{answerField(answer): string(data)}, s.ttl); err != nil {
		logger.Get().Warn("GradingCache: HSet failed", zap.String("key", key), zap.Error(err))
	}
}

// rebind points a cached grading at the question being graded now.
func rebind(g *domain.Grading, q *domain.Question) *domain.Grading {
	out := *g
	out.QuestionID = q.ID
	out.Citations = q.Citations
	return &out
}
