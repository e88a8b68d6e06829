package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"notes-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func isAssistant(req domain.OracleRequest) bool {
	return req.System == assistantSystemPrompt
}

func TestStudyAssistant_Ask(t *testing.T) {
	catalog, notes := newTestCatalog(t)

	t.Run("answers from matching pages", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("Generate", mock.Anything, mock.MatchedBy(func(req domain.OracleRequest) bool {
			return isAssistant(req) &&
				strings.Contains(req.Prompt, "[Source 1]") &&
				strings.Contains(req.Prompt, "Word embeddings map each token")
		})).Return("  Embeddings are dense vectors.  ", nil).Once()

		answer, err := NewStudyAssistant(catalog, oracle).Ask(context.Background(), "nlp", "embeddings vectors")
		require.NoError(t, err)
		assert.True(t, answer.FoundInfo)
		assert.Equal(t, "Embeddings are dense vectors.", answer.Answer)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, notes, answer.Sources[0].Path)
		assert.Equal(t, 2, answer.Sources[0].Page)
		oracle.AssertExpectations(t)
	})

	t.Run("no matching pages skips the oracle", func(t *testing.T) {
		oracle := new(MockOracle)
		answer, err := NewStudyAssistant(catalog, oracle).Ask(context.Background(), "nlp", "quantum chromodynamics")
		require.NoError(t, err)
		assert.False(t, answer.FoundInfo)
		assert.Equal(t, assistantNotFoundMsg, answer.Answer)
		assert.NotNil(t, answer.Sources)
		assert.Empty(t, answer.Sources)
		oracle.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("oracle failure keeps sources", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("Generate", mock.Anything, mock.Anything).Return("", errors.Join(domain.ErrNoUsableOutput, errors.New("timeout"))).Once()

		answer, err := NewStudyAssistant(catalog, oracle).Ask(context.Background(), "nlp", "attention")
		require.NoError(t, err)
		assert.False(t, answer.FoundInfo)
		assert.Equal(t, assistantFailedMsg, answer.Answer)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, 3, answer.Sources[0].Page)
	})

	t.Run("rejects empty question and unknown course", func(t *testing.T) {
		assistant := NewStudyAssistant(catalog, new(MockOracle))
		_, err := assistant.Ask(context.Background(), "nlp", "   ")
		assert.True(t, domain.HasCode(err, domain.CodeInvalidInput))

		_, err = assistant.Ask(context.Background(), "physics", "attention")
		assert.True(t, domain.HasCode(err, domain.CodeInvalidCourse))
	})
}
