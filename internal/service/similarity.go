package service

import (
	"context"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/util"

	"go.uber.org/zap"
)

// DefaultSimilarityThreshold rejects near paraphrases of accepted prompts.
const DefaultSimilarityThreshold = 0.92

// SimilarityGuard rejects generated prompts whose embedding is too close to a
// prompt already accepted in the same run.
type SimilarityGuard struct {
	embedder  domain.EmbeddingService
	threshold float64
}

// NewSimilarityGuard creates a guard. A threshold outside (0, 1] falls back to
// DefaultSimilarityThreshold.
func NewSimilarityGuard(embedder domain.EmbeddingService, threshold float64) *SimilarityGuard {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &SimilarityGuard{embedder: embedder, threshold: threshold}
}

// Check embeds prompt and compares it against accepted. It returns the new
// vector for the caller to keep, and whether the prompt is too similar.
// Embedding failures never reject a prompt.
func (g *SimilarityGuard) Check(ctx context.Context, prompt string, accepted [][]float32) ([]float32, bool) {
	vec, err := g.embedder.Generate(ctx, prompt)
	if err != nil || len(vec) == 0 {
		logger.Get().Warn("Failed to embed generated prompt, skipping similarity check",
			zap.String("prompt", prompt),
			zap.Error(err),
		)
		return nil, false
	}

	if i, similarity := util.MostSimilar(vec, accepted); i >= 0 && similarity >= g.threshold {
		logger.Get().Info("Generated prompt is too similar to an accepted one",
			zap.String("prompt", prompt),
			zap.Int("accepted_index", i),
			zap.Float64("similarity", similarity),
			zap.Float64("threshold", g.threshold),
		)
		return vec, true
	}
	return vec, false
}
