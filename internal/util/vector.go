package util

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyVector is returned when an embedding has no components.
var ErrEmptyVector = errors.New("vector is empty")

// CosineSimilarity returns the cosine of the angle between a and b. A zero
// vector has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions do not match: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// MostSimilar returns the index and similarity of the candidate closest to
// vec. Candidates that cannot be compared are skipped; index is -1 when none
// can.
func MostSimilar(vec []float32, candidates [][]float32) (int, float64) {
	best, bestScore := -1, math.Inf(-1)
	for i, c := range candidates {
		score, err := CosineSimilarity(vec, c)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}
