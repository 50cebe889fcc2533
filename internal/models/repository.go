package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the connection info of a remote source repository.
type Repository struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	URL       string    `gorm:"not null" json:"url" validate:"required"`
	Username  string    `gorm:"not null" json:"username" validate:"required"`
	Token     string    `gorm:"not null" json:"token" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Repository) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
