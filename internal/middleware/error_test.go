package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"notes-quiz/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Error struct {
		Type    string          `json:"type"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func serve(t *testing.T, err error) (int, envelope) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(RequestLogger())
	app.Get("/", func(c *fiber.Ctx) error { return err })

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return resp.StatusCode, env
}

func TestErrorHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"invalid course", domain.NewInvalidCourseError("physics", []string{"nlp"}), http.StatusBadRequest, "invalid_course"},
		{"missing notes", domain.NewMissingNotesError([]string{"a.pdf"}, []string{"a.pdf"}), http.StatusBadRequest, "missing_notes"},
		{"invalid input", domain.NewInvalidInputError("bad"), http.StatusBadRequest, "invalid_input"},
		{"question not found", domain.NewQuestionNotFoundError("q9"), http.StatusNotFound, "question_not_found"},
		{"result not found", domain.NewResultNotFoundError("01J"), http.StatusNotFound, "result_not_found"},
		{"no active quiz", domain.NewNoActiveQuizError(), http.StatusConflict, "no_active_quiz"},
		{"generation failed", domain.NewGenerationFailedError(5), http.StatusBadGateway, "generation_failed"},
		{"oracle error", domain.NewOracleError(errors.New("down")), http.StatusServiceUnavailable, "oracle_error"},
		{"internal", domain.NewInternalError("boom", errors.New("x")), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := serve(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.typ, env.Error.Type)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestErrorHandler_Details(t *testing.T) {
	_, env := serve(t, domain.NewInvalidCourseError("physics", []string{"nlp", "hci"}))
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Equal(t, []interface{}{"nlp", "hci"}, details["available_courses"])
}

func TestErrorHandler_ValidationErrors(t *testing.T) {
	status, env := serve(t, domain.ValidationErrors{domain.NewMissingFieldError("course")})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Type)

	var details []domain.ValidationError
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	require.Len(t, details, 1)
	assert.Equal(t, "course", details[0].Field)
}

func TestErrorHandler_FiberAndUnknownErrors(t *testing.T) {
	status, env := serve(t, fiber.NewError(http.StatusMethodNotAllowed, "nope"))
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "http_error", env.Error.Type)

	status, env = serve(t, errors.New("kaboom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", env.Error.Type)
	assert.Equal(t, "Internal server error", env.Error.Message)
}
