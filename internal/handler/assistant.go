package handler

import (
	"notes-quiz/internal/domain"
	"notes-quiz/internal/dto"
	"notes-quiz/internal/service"
	"notes-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AssistantHandler answers study questions from course notes
type AssistantHandler struct {
	assistant service.AssistantService
	validator *validation.Validator
}

func NewAssistantHandler(assistant service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, validator: validation.NewValidator()}
}

// Ask handles POST /api/ask
func (h *AssistantHandler) Ask(c *fiber.Ctx) error {
	var req dto.AskRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	answer, err := h.assistant.Ask(c.UserContext(), req.Course, req.Question)
	if err != nil {
		return err
	}
	return c.JSON(answer)
}
