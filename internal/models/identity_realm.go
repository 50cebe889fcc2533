package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityRealm records the Keycloak realm provisioned for a project.
type IdentityRealm struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"project_id"`
	RealmName string    `gorm:"not null" json:"realm_name"`
	ClientID  string    `gorm:"not null" json:"client_id"`
	Username  string    `gorm:"not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *IdentityRealm) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
