package models

import (
	"time"

	"github.com/google/uuid"
)

// ServerStateDeleted is the terminal state reported by the VM provisioner.
const ServerStateDeleted = "DELETED"

// Server mirrors the VM provisioner's view of a project's virtual machine.
type Server struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"project_id"`
	PublicIP  *string   `json:"public_ip"`
	State     string    `gorm:"type:varchar(32);not null;default:''" json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deleted reports whether the server reached its terminal state.
func (s *Server) Deleted() bool {
	return s.State == ServerStateDeleted
}
