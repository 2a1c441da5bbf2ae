package handlers

import (
	"context"
	"time"

	"github.com/AlexPunches/1x-fit/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping      func(ctx context.Context) error
	pipelines func() []string
}

func NewHealthHandler(ping func(ctx context.Context) error, pipelines func() []string) *HealthHandler {
	return &HealthHandler{ping: ping, pipelines: pipelines}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "ok"
	if err := h.ping(ctx); err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Pipelines: len(h.pipelines()),
	})
}
