package dto

import (
	"time"

	"github.com/AlexPunches/1x-fit/internal/models"
)

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Pipelines int    `json:"pipelines"`
}

type PipelineResponse struct {
	Name      string     `json:"name"`
	Running   bool       `json:"running"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

type PipelinesResponse struct {
	Pipelines []PipelineResponse `json:"pipelines"`
}

type TriggerResponse struct {
	Pipeline string `json:"pipeline"`
	Status   string `json:"status"`
}

type RunsResponse struct {
	Runs []models.EtlRun `json:"runs"`
}
