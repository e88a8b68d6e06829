package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCacheKey(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		objectType  string
		identifier  string
		paramsKey   []string
		expectedKey string
	}{
		{
			name:        "without paramsKey",
			serviceName: "grounding",
			objectType:  "pages",
			identifier:  "abc",
			expectedKey: "notesquiz:grounding:pages:abc",
		},
		{
			name:        "with empty paramsKey",
			serviceName: "grounding",
			objectType:  "pages",
			identifier:  "abc",
			paramsKey:   []string{},
			expectedKey: "notesquiz:grounding:pages:abc",
		},
		{
			name:        "with multiple paramsKey",
			serviceName: "embedding",
			objectType:  "ollama",
			identifier:  "xyz",
			paramsKey:   []string{"nomic", "v1"},
			expectedKey: "notesquiz:embedding:ollama:xyz:nomic_v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedKey, GenerateCacheKey(tt.serviceName, tt.objectType, tt.identifier, tt.paramsKey...))
		})
	}
}

func TestPageCacheKey(t *testing.T) {
	mod := time.Unix(1700000000, 0)
	key := PageCacheKey("/notes/nlp.pdf", mod, 2048)

	assert.True(t, strings.HasPrefix(key, "notesquiz:grounding:pages:"))
	assert.True(t, strings.HasSuffix(key, ":1700000000000000000_2048"))
	assert.Equal(t, key, PageCacheKey("/notes/nlp.pdf", mod, 2048))
	assert.NotEqual(t, key, PageCacheKey("/notes/nlp.pdf", mod.Add(time.Second), 2048))
	assert.NotEqual(t, key, PageCacheKey("/notes/hci.pdf", mod, 2048))
}

func TestEmbeddingCacheKey(t *testing.T) {
	a := EmbeddingCacheKey("ollama", "nomic-embed-text", "What is attention?")
	b := EmbeddingCacheKey("ollama", "nomic-embed-text", "What is attention?")
	c := EmbeddingCacheKey("openai", "nomic-embed-text", "What is attention?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, HashString("x"), 16)
}

func TestGradingAndResultKeys(t *testing.T) {
	a := GradingCacheKey("What is attention?", "weighting tokens")
	assert.True(t, strings.HasPrefix(a, "notesquiz:grading:answers:"))
	assert.Equal(t, a, GradingCacheKey("What is attention?", "weighting tokens"))
	assert.NotEqual(t, a, GradingCacheKey("What is attention?", "something else"))

	assert.Equal(t, "notesquiz:quiz:result:01HX", ResultCacheKey("01HX"))
}
