package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
	TriggerManual   = "manual"
)

// EtlRun is the history entry of one pipeline execution.
type EtlRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Pipeline   string         `gorm:"size:50;not null;index" json:"pipeline"`
	Trigger    string         `gorm:"size:20;not null" json:"trigger"`
	Status     string         `gorm:"size:20;not null;index" json:"status"`
	StartedAt  time.Time      `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	DurationMs int64          `json:"duration_ms"`
	Stats      datatypes.JSON `gorm:"type:jsonb" json:"stats"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
}

func (r *EtlRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (EtlRun) TableName() string {
	return "etl_runs"
}
