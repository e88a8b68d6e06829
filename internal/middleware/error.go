package middleware

import (
	"errors"
	"net/http"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/dto"
	"notes-quiz/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler is a centralized error handling middleware. Every error is
// rendered as {"error": {"type", "message", "details"}}.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		logger := logger.Get()

		// Handle validation errors
		var validationErrs domain.ValidationErrors
		if errors.As(err, &validationErrs) {
			logger.Warn("Validation errors occurred",
				zap.String("path", c.Path()),
				zap.Int("error_count", len(validationErrs)),
			)
			return c.Status(http.StatusBadRequest).JSON(dto.ErrorResponse{Error: dto.ErrorBody{
				Type:    string(domain.CodeValidation),
				Message: "Request validation failed",
				Details: validationErrs,
			}})
		}

		// Handle domain errors
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			statusCode := mapDomainErrorToHTTPStatus(domainErr)

			fields := []zap.Field{
				zap.String("code", string(domainErr.Code)),
				zap.String("message", domainErr.Message),
				zap.Int("status", statusCode),
				zap.String("path", c.Path()),
			}
			if domainErr.Cause != nil {
				fields = append(fields, zap.Error(domainErr.Cause))
			}
			if statusCode >= http.StatusInternalServerError {
				logger.Error("Domain error occurred", fields...)
			} else {
				logger.Warn("Domain error occurred", fields...)
			}

			body := dto.ErrorBody{
				Type:    string(domainErr.Code),
				Message: domainErr.Message,
			}
			if len(domainErr.Context) > 0 {
				body.Details = domainErr.Context
			}
			return c.Status(statusCode).JSON(dto.ErrorResponse{Error: body})
		}

		// Handle fiber errors
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			logger.Warn("Fiber error occurred",
				zap.Int("code", fiberErr.Code),
				zap.String("message", fiberErr.Message),
			)
			return c.Status(fiberErr.Code).JSON(dto.ErrorResponse{Error: dto.ErrorBody{
				Type:    "http_error",
				Message: fiberErr.Message,
			}})
		}

		// Handle unknown errors
		logger.Error("Unknown error occurred",
			zap.String("path", c.Path()),
			zap.Error(err),
		)

		return c.Status(http.StatusInternalServerError).JSON(dto.ErrorResponse{Error: dto.ErrorBody{
			Type:    string(domain.CodeInternal),
			Message: "Internal server error",
		}})
	}
}

// mapDomainErrorToHTTPStatus maps domain errors to HTTP status codes
func mapDomainErrorToHTTPStatus(err *domain.DomainError) int {
	switch err.Code {
	case domain.CodeQuestionNotFound, domain.CodeResultNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidCourse, domain.CodeMissingNotes, domain.CodeInvalidInput,
		domain.CodeValidation, domain.CodeMissingField, domain.CodeInvalidFormat, domain.CodeOutOfRange:
		return http.StatusBadRequest
	case domain.CodeNoActiveQuiz:
		return http.StatusConflict
	case domain.CodeGenerationFailed:
		return http.StatusBadGateway
	case domain.CodeOracleError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
