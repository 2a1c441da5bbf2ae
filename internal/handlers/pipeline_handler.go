package handlers

import (
	"errors"

	"github.com/AlexPunches/1x-fit/internal/dto"
	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/scheduler"
	"github.com/gofiber/fiber/v2"
)

// PipelineRunner is the part of the scheduler the ops API drives.
type PipelineRunner interface {
	Pipelines() []scheduler.PipelineStatus
	TriggerNow(name string) error
}

type PipelineHandler struct {
	runner PipelineRunner
}

func NewPipelineHandler(runner PipelineRunner) *PipelineHandler {
	return &PipelineHandler{runner: runner}
}

// List handles GET /api/admin/pipelines
func (h *PipelineHandler) List(c *fiber.Ctx) error {
	statuses := h.runner.Pipelines()
	resp := dto.PipelinesResponse{Pipelines: make([]dto.PipelineResponse, 0, len(statuses))}
	for _, s := range statuses {
		resp.Pipelines = append(resp.Pipelines, dto.PipelineResponse{
			Name:      s.Name,
			Running:   s.Running,
			StartedAt: s.StartedAt,
		})
	}
	return c.JSON(resp)
}

// Run handles POST /api/admin/pipelines/:name/run
func (h *PipelineHandler) Run(c *fiber.Ctx) error {
	name := c.Params("name")

	err := h.runner.TriggerNow(name)
	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(dto.TriggerResponse{Pipeline: name, Status: "accepted"})
	case errors.Is(err, etl.ErrUnknownPipeline):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Unknown pipeline"})
	case errors.Is(err, scheduler.ErrRunInProgress):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: true, Message: "Pipeline run already in progress"})
	case errors.Is(err, scheduler.ErrStopped):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: true, Message: "Scheduler is shutting down"})
	default:
		return err
	}
}
