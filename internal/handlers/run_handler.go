package handlers

import (
	"context"
	"log/slog"

	"github.com/AlexPunches/1x-fit/internal/dto"
	"github.com/AlexPunches/1x-fit/internal/models"
	"github.com/gofiber/fiber/v2"
)

type RunLister interface {
	Recent(ctx context.Context, pipeline string, limit int) ([]models.EtlRun, error)
}

type RunHandler struct {
	runs RunLister
}

func NewRunHandler(runs RunLister) *RunHandler {
	return &RunHandler{runs: runs}
}

// List handles GET /api/admin/runs?pipeline=users&limit=20
func (h *RunHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "limit must be positive"})
	}

	runs, err := h.runs.Recent(c.UserContext(), c.Query("pipeline"), limit)
	if err != nil {
		slog.Error("list runs failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: "Failed to list runs"})
	}
	return c.JSON(dto.RunsResponse{Runs: runs})
}
