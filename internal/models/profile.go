package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile holds the per-user credentials injected into every VM of that user.
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string    `gorm:"not null" json:"username" validate:"required"`
	Password    string    `gorm:"not null" json:"password" validate:"required"`
	DespOwnerID string    `gorm:"uniqueIndex;not null" json:"desp_owner_id" validate:"required"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
