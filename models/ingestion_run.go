package models

import "time"

// Status eines Ingestion-Laufs.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// IngestionRun protokolliert einen Lauf über den Änderungs-Feed eines Providers.
type IngestionRun struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Provider     string     `json:"provider" gorm:"size:100;not null;index"`
	Status       string     `json:"status" gorm:"size:50;not null;index"`
	StartedAt    time.Time  `json:"started_at" gorm:"not null;index"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	RecordsSeen  int        `json:"records_seen" gorm:"not null"`
	ErrorMessage *string    `json:"error_message,omitempty" gorm:"type:text"`
}

func (IngestionRun) TableName() string { return "ingestion_runs" }
