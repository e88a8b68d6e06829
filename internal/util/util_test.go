package util

import (
	"math"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	a := NewULID()
	b := NewULID()

	_, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	_, err = CosineSimilarity([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
	_, err = CosineSimilarity(nil, []float32{1})
	assert.ErrorIs(t, err, ErrEmptyVector)
	assert.False(t, math.IsNaN(sim))
}

func TestMostSimilar(t *testing.T) {
	idx, score := MostSimilar([]float32{1, 0}, [][]float32{{0, 1}, nil, {1, 0.1}, {1, 2, 3}})
	assert.Equal(t, 2, idx)
	assert.Greater(t, score, 0.99)

	idx, score = MostSimilar([]float32{1, 0}, [][]float32{nil, {1}})
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0.0, score)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 10))
	assert.Equal(t, "", TruncateRunes("héllo", 0))
}

func TestRuneWindow(t *testing.T) {
	assert.Equal(t, "llo", RuneWindow("héllo", 2, 5))
	assert.Equal(t, "hé", RuneWindow("héllo", -3, 2))
	assert.Equal(t, "", RuneWindow("héllo", 9, 2))
}
