package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/grounding"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- MockOracle ---
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Generate(ctx context.Context, req domain.OracleRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockOracle) GenerateJSON(ctx context.Context, req domain.OracleRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

var _ domain.Oracle = (*MockOracle)(nil)

// --- MockEmbeddingService ---
type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) Generate(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

var _ domain.EmbeddingService = (*MockEmbeddingService)(nil)

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockCache) HSet(ctx context.Context, key string, fields map[string]string, expiration time.Duration) error {
	args := m.Called(ctx, key, fields, expiration)
	return args.Error(0)
}

var _ domain.Cache = (*MockCache)(nil)

// --- fixtures ---

// isGeneration matches oracle calls made by the question generator.
func isGeneration(req domain.OracleRequest) bool {
	return req.System == generationSystemPrompt
}

func isGrading(req domain.OracleRequest) bool {
	return req.System == gradingSystemPrompt
}

func rawJSON(s string) json.RawMessage {
	return json.RawMessage(s)
}

// writeNotes writes a form-feed separated text document under dir.
func writeNotes(t *testing.T, dir, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(pages, "\f")), 0o644))
	return name
}

// newTestCatalog builds a catalog with an "nlp" course over notes in a temp dir.
func newTestCatalog(t *testing.T, pages ...string) (*CourseCatalog, string) {
	t.Helper()
	dir := t.TempDir()
	if len(pages) == 0 {
		pages = []string{
			"Tokenization splits raw text into tokens before any further processing happens.",
			"Word embeddings map each token to a dense vector. Similar words get similar vectors.",
			"Attention lets a model weigh every token of the input when producing an output.",
		}
	}
	notes := writeNotes(t, dir, "nlp/nlp-notes.txt", pages...)
	idx := grounding.NewIndex(dir)
	catalog := NewCourseCatalog(idx, map[string]config.CourseConfig{
		"nlp":   {Name: "Natural Language Processing", Files: []string{notes}},
		"empty": {Name: "Empty Course"},
		"gone":  {Name: "Missing Notes", Files: []string{"gone/notes.pdf"}},
	})
	return catalog, notes
}
