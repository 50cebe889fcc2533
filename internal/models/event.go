package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventType classifies project events.
type EventType string

const (
	EventTypePipeline     EventType = "pipeline"
	EventTypeProvisioning EventType = "provisioning"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypePipeline, EventTypeProvisioning:
		return true
	}
	return false
}

// Event is an append-only record of a project step transition.
type Event struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"project_id"`
	Type       EventType      `gorm:"type:varchar(32);index;not null" json:"type"`
	PipelineID string         `gorm:"not null;default:''" json:"pipeline_id"`
	Step       string         `gorm:"not null;default:''" json:"step"`
	Status     string         `gorm:"not null;default:''" json:"status"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
