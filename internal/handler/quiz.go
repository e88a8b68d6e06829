package handler

import (
	"notes-quiz/internal/domain"
	"notes-quiz/internal/dto"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/service"
	"notes-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuizHandler handles quiz session HTTP requests
type QuizHandler struct {
	service      service.QuizService
	validator    *validation.Validator
	maxQuestions int
}

// NewQuizHandler creates a new QuizHandler instance. Requests for more than
// maxQuestions questions are rejected; zero disables the limit.
func NewQuizHandler(service service.QuizService, maxQuestions int) *QuizHandler {
	return &QuizHandler{
		service:      service,
		validator:    validation.NewValidator(),
		maxQuestions: maxQuestions,
	}
}

// StartQuiz handles POST /api/quiz
func (h *QuizHandler) StartQuiz(c *fiber.Ctx) error {
	var req dto.StartQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	if h.maxQuestions > 0 && req.NumQuestions > h.maxQuestions {
		return domain.ValidationErrors{
			domain.NewOutOfRangeError("num_questions", req.NumQuestions, 1, h.maxQuestions),
		}
	}

	result, err := h.service.StartQuiz(c.UserContext(), req.ToDomain())
	if err != nil {
		logger.Get().Warn("Failed to start quiz",
			zap.String("course", req.Course),
			zap.Error(err),
		)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// CurrentQuestion handles GET /api/quiz/current
func (h *QuizHandler) CurrentQuestion(c *fiber.Ctx) error {
	q, err := h.service.CurrentQuestion()
	if err != nil {
		return err
	}
	return c.JSON(dto.QuestionResponse{Question: q, Progress: h.service.Progress()})
}

// NextQuestion handles POST /api/quiz/next
func (h *QuizHandler) NextQuestion(c *fiber.Ctx) error {
	q, err := h.service.NextQuestion(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.QuestionResponse{Question: q, Progress: h.service.Progress()})
}

// SubmitAnswer handles POST /api/quiz/answer
func (h *QuizHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req dto.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	g, err := h.service.SubmitAnswer(c.UserContext(), req.QuestionID, req.Answer)
	if err != nil {
		return err
	}
	return c.JSON(dto.GradingResponse{Grading: g})
}

// Progress handles GET /api/quiz/progress
func (h *QuizHandler) Progress(c *fiber.Ctx) error {
	return c.JSON(h.service.Progress())
}

// Summary handles GET /api/quiz/summary
func (h *QuizHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary()
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// Reset handles DELETE /api/quiz
func (h *QuizHandler) Reset(c *fiber.Ctx) error {
	h.service.Reset()
	return c.SendStatus(fiber.StatusNoContent)
}

// Result handles GET /api/quiz/results/:session_id
func (h *QuizHandler) Result(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("session_id")}
	}
	summary, err := h.service.Result(c.UserContext(), sessionID)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
