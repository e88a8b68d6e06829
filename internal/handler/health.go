package handler

import (
	"context"
	"time"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/dto"
	"notes-quiz/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports liveness and the state of the optional cache.
type HealthHandler struct {
	cache domain.Cache
}

// NewHealthHandler creates a HealthHandler. c may be nil when Redis is not
// configured.
func NewHealthHandler(c domain.Cache) *HealthHandler {
	return &HealthHandler{cache: c}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.JSON(dto.HealthResponse{Status: "ok", Redis: "disabled"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		logger.Get().Warn("Health check: redis ping failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "degraded", Redis: "unavailable"})
	}
	return c.JSON(dto.HealthResponse{Status: "ok", Redis: "ok"})
}
