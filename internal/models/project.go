package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VM request sub-status values.
const (
	VMRequestPending   = "pending"
	VMRequestRequested = "requested"
	VMRequestRejected  = "rejected"
	VMRequestFailed    = "failed"
)

// Identity setup sub-status values.
const (
	IdentityPending = "pending"
	IdentityReady   = "ready"
	IdentityFailed  = "failed"
)

// PipelineStartedStatus marks the beginning of a new pipeline run.
const PipelineStartedStatus = "STARTED"

// Project is a user's provisioned environment: a VM, a source repository and an identity realm.
type Project struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string           `gorm:"not null" json:"name"`
	SSHKey            string           `gorm:"type:text;not null" json:"ssh_key"`
	ProfileID         uuid.UUID        `gorm:"type:uuid;index;not null" json:"profile_id"`
	Profile           *Profile         `json:"profile,omitempty"`
	FlavorID          uuid.UUID        `gorm:"type:uuid;index;not null" json:"flavor_id"`
	Flavor            *Flavor          `json:"flavor,omitempty"`
	OperatingSystemID uuid.UUID        `gorm:"type:uuid;index;not null" json:"operatingsystem_id"`
	OperatingSystem   *OperatingSystem `json:"operatingsystem,omitempty"`
	RepositoryID      *uuid.UUID       `gorm:"type:uuid;index" json:"repository_id"`
	Repository        *Repository      `json:"repository,omitempty"`
	Server            *Server          `gorm:"foreignKey:ProjectID" json:"server"`
	Applications      []Application    `gorm:"many2many:project_applications" json:"applications"`

	Logs        string `gorm:"type:text;not null;default:''" json:"logs"`
	DockerImage string `gorm:"type:text;not null;default:''" json:"docker_image"`
	Status      string `gorm:"type:varchar(64);not null;default:''" json:"status"`

	VMRequestStatus string `gorm:"type:varchar(16);not null;default:'pending'" json:"vm_request_status"`
	IdentityStatus  string `gorm:"type:varchar(16);not null;default:'pending'" json:"identity_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// BuildStatus is the read projection of a project's pipeline state.
type BuildStatus struct {
	Status      string    `json:"status"`
	Logs        string    `json:"logs"`
	DockerImage string    `json:"docker_image"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BuildStatus projects the pipeline fields of the project.
func (p *Project) BuildStatus() BuildStatus {
	return BuildStatus{Status: p.Status, Logs: p.Logs, DockerImage: p.DockerImage, UpdatedAt: p.UpdatedAt}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
