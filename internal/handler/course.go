package handler

import (
	"notes-quiz/internal/domain"
	"notes-quiz/internal/dto"
	"notes-quiz/internal/service"
	"notes-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CourseHandler serves the course catalog
type CourseHandler struct {
	catalog   service.CatalogService
	validator *validation.Validator
}

func NewCourseHandler(catalog service.CatalogService) *CourseHandler {
	return &CourseHandler{catalog: catalog, validator: validation.NewValidator()}
}

// ListCourses handles GET /api/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	return c.JSON(dto.CoursesResponse{Courses: h.catalog.AvailableCourses()})
}

// ValidateTopics handles POST /api/courses/:course/topics
func (h *CourseHandler) ValidateTopics(c *fiber.Ctx) error {
	var req dto.TopicsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	result, err := h.catalog.ValidateTopics(c.UserContext(), c.Params("course"), req.Topics)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
