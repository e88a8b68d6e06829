package handler

import (
	"errors"
	"net/http"
	"testing"

	"notes-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQuizHandler_StartQuiz(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		quiz := new(MockQuizService)
		app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)

		lazy := true
		want := domain.GenerationRequest{
			Course:        "nlp",
			Topics:        []string{"attention"},
			QuestionTypes: []domain.QuestionType{domain.TypeSingleChoice},
			NumQuestions:  3,
			Lazy:          &lazy,
		}
		quiz.On("StartQuiz", mock.Anything, want).Return(&domain.GenerationResult{
			Meta: domain.GenerationMeta{
				SessionID:      "01J",
				Course:         "nlp",
				NotesUsed:      []string{"nlp/nlp-notes.pdf"},
				QuestionCount:  1,
				Requested:      3,
				LazyGeneration: true,
			},
			Questions: []*domain.Question{{ID: "q1", Type: domain.TypeSingleChoice, Prompt: "What is attention?"}},
		}, nil).Once()

		resp, body := doJSON(t, app, http.MethodPost, "/api/quiz", map[string]interface{}{
			"course":          "nlp",
			"topics":          []string{"attention"},
			"question_types":  []string{"mcq_single"},
			"num_questions":   3,
			"lazy_generation": true,
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		meta := body["meta"].(map[string]interface{})
		assert.Equal(t, "01J", meta["session_id"])
		assert.Equal(t, float64(1), meta["question_count"])
		require.Len(t, body["questions"], 1)
		quiz.AssertExpectations(t)
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		quiz := new(MockQuizService)
		app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)

		resp, body := doJSON(t, app, http.MethodPost, "/api/quiz", map[string]interface{}{
			"question_types": []string{"essay"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", errorType(body))
		quiz.AssertNotCalled(t, "StartQuiz", mock.Anything, mock.Anything)
	})

	t.Run("AboveConfiguredLimit", func(t *testing.T) {
		quiz := new(MockQuizService)
		app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)

		resp, body := doJSON(t, app, http.MethodPost, "/api/quiz", map[string]interface{}{
			"course":        "nlp",
			"num_questions": 30,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", errorType(body))
	})

	t.Run("MalformedBody", func(t *testing.T) {
		app := newTestApp(new(MockQuizService), new(MockCatalogService), new(MockAssistantService), nil)

		resp, body := doJSON(t, app, http.MethodPost, "/api/quiz", `{"course":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_input", errorType(body))
	})

	t.Run("DomainErrors", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
			typ    string
		}{
			{"invalid course", domain.NewInvalidCourseError("physics", []string{"nlp"}), http.StatusBadRequest, "invalid_course"},
			{"missing notes", domain.NewMissingNotesError([]string{"x.pdf"}, []string{"x.pdf"}), http.StatusBadRequest, "missing_notes"},
			{"generation failed", domain.NewGenerationFailedError(3), http.StatusBadGateway, "generation_failed"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				quiz := new(MockQuizService)
				app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)
				quiz.On("StartQuiz", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

				resp, body := doJSON(t, app, http.MethodPost, "/api/quiz", map[string]interface{}{"course": "nlp"})
				assert.Equal(t, tt.status, resp.StatusCode)
				assert.Equal(t, tt.typ, errorType(body))
			})
		}
	})
}

func TestQuizHandler_Navigation(t *testing.T) {
	quiz := new(MockQuizService)
	app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)

	progress := domain.QuizProgress{Active: true, State: domain.StateInProgress, Current: 1, Total: 2, GeneratedSoFar: 1}
	quiz.On("Progress").Return(progress)
	quiz.On("CurrentQuestion").Return(&domain.Question{ID: "q1", Prompt: "What is a token?"}, nil).Once()
	quiz.On("NextQuestion", mock.Anything).Return(nil, nil).Once()

	resp, body := doJSON(t, app, http.MethodGet, "/api/quiz/current", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "q1", body["question"].(map[string]interface{})["id"])
	assert.Equal(t, float64(2), body["progress"].(map[string]interface{})["total"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/quiz/next", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["question"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/quiz/progress", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in_progress", body["state"])
	quiz.AssertExpectations(t)
}

func TestQuizHandler_NoActiveQuiz(t *testing.T) {
	quiz := new(MockQuizService)
	app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)

	quiz.On("CurrentQuestion").Return(nil, domain.NewNoActiveQuizError()).Once()
	quiz.On("Summary").Return(nil, domain.NewNoActiveQuizError()).Once()

	resp, body := doJSON(t, app, http.MethodGet, "/api/quiz/current", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "no_active_quiz", errorType(body))

	resp, _ = doJSON(t, app, http.MethodGet, "/api/quiz/summary", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestQuizHandler_SubmitAnswer(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		quiz := new(MockQuizService)
		app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)
		quiz.On("SubmitAnswer", mock.Anything, "q1", "B").Return(&domain.Grading{
			QuestionID:     "q1",
			PointsAwarded:  10,
			PointsPossible: 10,
			Decision:       domain.DecisionCorrect,
			Score:          1,
		}, nil).Once()

		resp, body := doJSON(t, app, http.MethodPost, "/api/quiz/answer", map[string]string{"question_id": "q1", "answer": "B"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		grading := body["grading"].(map[string]interface{})
		assert.Equal(t, float64(10), grading["points_awarded"])
		assert.Equal(t, "correct", grading["decision"])
	})

	t.Run("UnknownQuestion", func(t *testing.T) {
		quiz := new(MockQuizService)
		app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)
		quiz.On("SubmitAnswer", mock.Anything, "q9", "x").Return(nil, domain.NewQuestionNotFoundError("q9")).Once()

		resp, body := doJSON(t, app, http.MethodPost, "/api/quiz/answer", map[string]string{"question_id": "q9", "answer": "x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "question_not_found", errorType(body))
	})

	t.Run("MissingQuestionID", func(t *testing.T) {
		quiz := new(MockQuizService)
		app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)

		resp, body := doJSON(t, app, http.MethodPost, "/api/quiz/answer", map[string]string{"answer": "x"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", errorType(body))
	})
}

func TestQuizHandler_SummaryResultReset(t *testing.T) {
	quiz := new(MockQuizService)
	app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)

	quiz.On("Summary").Return(&domain.QuizSummary{SessionID: "01J", Percentage: 85, Stars: 4}, nil).Once()
	quiz.On("Result", mock.Anything, "01J").Return(&domain.QuizSummary{SessionID: "01J", Stars: 4}, nil).Once()
	quiz.On("Result", mock.Anything, "missing").Return(nil, domain.NewResultNotFoundError("missing")).Once()
	quiz.On("Reset").Return().Once()

	resp, body := doJSON(t, app, http.MethodGet, "/api/quiz/summary", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), body["stars"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/quiz/results/01J", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "01J", body["session_id"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/quiz/results/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "result_not_found", errorType(body))

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/quiz", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	quiz.AssertExpectations(t)
}

func TestQuizHandler_UnexpectedError(t *testing.T) {
	quiz := new(MockQuizService)
	app := newTestApp(quiz, new(MockCatalogService), new(MockAssistantService), nil)
	quiz.On("NextQuestion", mock.Anything).Return(nil, errors.New("boom")).Once()

	resp, body := doJSON(t, app, http.MethodPost, "/api/quiz/next", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_error", errorType(body))
}
