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

func TestCourseHandler_ListCourses(t *testing.T) {
	catalog := new(MockCatalogService)
	app := newTestApp(new(MockQuizService), catalog, new(MockAssistantService), nil)
	catalog.On("AvailableCourses").Return([]domain.CourseInfo{
		{Code: "hci", Name: "Human-Computer Interaction", NotesAvailable: 0, NoteFiles: []string{}},
		{Code: "nlp", Name: "Natural Language Processing", NotesAvailable: 1, NoteFiles: []string{"nlp/nlp-notes.pdf"}},
	}).Once()

	resp, body := doJSON(t, app, http.MethodGet, "/api/courses", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	courses := body["courses"].([]interface{})
	require.Len(t, courses, 2)
	nlp := courses[1].(map[string]interface{})
	assert.Equal(t, "nlp", nlp["code"])
	assert.Equal(t, float64(1), nlp["notes_available"])
}

func TestCourseHandler_ValidateTopics(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		catalog := new(MockCatalogService)
		app := newTestApp(new(MockQuizService), catalog, new(MockAssistantService), nil)
		catalog.On("ValidateTopics", mock.Anything, "nlp", []string{"attention", "quantum"}).Return(&domain.TopicValidation{
			Found:       []domain.TopicMatch{{Topic: "attention", File: "nlp/nlp-notes.pdf", Page: 4}},
			NotFound:    []string{"quantum"},
			Suggestions: map[string][]string{"quantum": {"Try more general topic keywords"}},
		}, nil).Once()

		resp, body := doJSON(t, app, http.MethodPost, "/api/courses/nlp/topics", map[string]interface{}{
			"topics": []string{"attention", "quantum"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []interface{}{"quantum"}, body["not_found"])
		catalog.AssertExpectations(t)
	})

	t.Run("EmptyTopics", func(t *testing.T) {
		catalog := new(MockCatalogService)
		app := newTestApp(new(MockQuizService), catalog, new(MockAssistantService), nil)

		resp, body := doJSON(t, app, http.MethodPost, "/api/courses/nlp/topics", map[string]interface{}{"topics": []string{}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", errorType(body))
	})

	t.Run("UnknownCourse", func(t *testing.T) {
		catalog := new(MockCatalogService)
		app := newTestApp(new(MockQuizService), catalog, new(MockAssistantService), nil)
		catalog.On("ValidateTopics", mock.Anything, "physics", mock.Anything).
			Return(nil, domain.NewInvalidCourseError("physics", []string{"nlp"})).Once()

		resp, body := doJSON(t, app, http.MethodPost, "/api/courses/physics/topics", map[string]interface{}{"topics": []string{"x"}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_course", errorType(body))
	})
}

func TestAssistantHandler_Ask(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		assistant := new(MockAssistantService)
		app := newTestApp(new(MockQuizService), new(MockCatalogService), assistant, nil)
		assistant.On("Ask", mock.Anything, "nlp", "What is attention?").Return(&domain.StudyAnswer{
			Answer:    "Attention weighs tokens [Source 1].",
			Sources:   []domain.StudySource{{Path: "nlp/nlp-notes.pdf", Page: 4, Excerpt: "Attention lets"}},
			FoundInfo: true,
		}, nil).Once()

		resp, body := doJSON(t, app, http.MethodPost, "/api/ask", map[string]string{"course": "nlp", "question": "What is attention?"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["found_info"])
		assert.Len(t, body["sources"], 1)
	})

	t.Run("MissingQuestion", func(t *testing.T) {
		app := newTestApp(new(MockQuizService), new(MockCatalogService), new(MockAssistantService), nil)

		resp, body := doJSON(t, app, http.MethodPost, "/api/ask", map[string]string{"course": "nlp"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", errorType(body))
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("WithoutRedis", func(t *testing.T) {
		app := newTestApp(new(MockQuizService), new(MockCatalogService), new(MockAssistantService), nil)
		resp, body := doJSON(t, app, http.MethodGet, "/api/health", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "disabled", body["redis"])
	})

	t.Run("RedisUp", func(t *testing.T) {
		c := new(MockCache)
		c.On("Ping", mock.Anything).Return(nil).Once()
		app := newTestApp(new(MockQuizService), new(MockCatalogService), new(MockAssistantService), c)

		resp, body := doJSON(t, app, http.MethodGet, "/api/health", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["redis"])
	})

	t.Run("RedisDown", func(t *testing.T) {
		c := new(MockCache)
		c.On("Ping", mock.Anything).Return(errors.New("dial tcp: refused")).Once()
		app := newTestApp(new(MockQuizService), new(MockCatalogService), new(MockAssistantService), c)

		resp, body := doJSON(t, app, http.MethodGet, "/api/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "degraded", body["status"])
	})
}
