package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notes-quiz/internal/cache"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"

	"go.uber.org/zap"
)

// DefaultResultTTL is how long finished quiz summaries are kept.
const DefaultResultTTL = 7 * 24 * time.Hour

// ResultStore keeps the summaries of finished quiz sessions so they outlive
// the in-memory session.
type ResultStore interface {
	Put(ctx context.Context, summary *domain.QuizSummary) error
	Get(ctx context.Context, sessionID string) (*domain.QuizSummary, error)
}

type resultStore struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewResultStore stores summaries in c. A nil cache yields a no-op store.
func NewResultStore(c domain.Cache, ttl time.Duration) ResultStore {
	if c == nil {
		logger.Get().Warn("ResultStore initialized with nil cache. Results will not be kept.")
		return noopResultStore{}
	}
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &resultStore{cache: c, ttl: ttl}
}

func (s *resultStore) Put(ctx context.Context, summary *domain.QuizSummary) error {
	if summary == nil || summary.SessionID == "" {
		return domain.NewInvalidInputError("cannot store a summary without a session id")
	}
	key := cache.ResultCacheKey(summary.SessionID)
	data, err := json.Marshal(summary)
	if err != nil {
		return domain.NewInternalError("failed to marshal quiz summary", err)
	}
	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
		logger.Get().Error("Failed to store quiz summary", zap.Error(err), zap.String("key", key))
		return domain.NewInternalError(fmt.Sprintf("failed to store quiz summary for key %s", key), err)
	}
	logger.Get().Debug("Stored quiz summary", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return nil
}

func (s *resultStore) Get(ctx context.Context, sessionID string) (*domain.QuizSummary, error) {
	key := cache.ResultCacheKey(sessionID)
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, domain.NewResultNotFoundError(sessionID)
		}
		logger.Get().Error("Failed to read quiz summary", zap.Error(err), zap.String("key", key))
		return nil, domain.NewInternalError(fmt.Sprintf("failed to read quiz summary for key %s", key), err)
	}

	var summary domain.QuizSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, domain.NewInternalError(fmt.Sprintf("failed to unmarshal quiz summary for key %s", key), err)
	}
	return &summary, nil
}

type noopResultStore struct{}

func (noopResultStore) Put(context.Context, *domain.QuizSummary) error { return nil }

func (noopResultStore) Get(_ context.Context, sessionID string) (*domain.QuizSummary, error) {
	return nil, domain.NewResultNotFoundError(sessionID)
}
