package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Flavor is a VM size offered to projects.
type Flavor struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string    `gorm:"not null" json:"name" validate:"required"`
	Processor         string    `gorm:"not null" json:"processor" validate:"required"`
	Memory            string    `gorm:"not null" json:"memory" validate:"required"`
	Bandwidth         string    `gorm:"not null" json:"bandwidth" validate:"required"`
	Storage           string    `gorm:"not null" json:"storage" validate:"required"`
	GPU               string    `gorm:"column:gpu;not null;default:'None'" json:"gpu"`
	Price             string    `gorm:"not null;default:'Free'" json:"price"`
	OpenstackFlavorID uuid.UUID `gorm:"type:uuid;not null" json:"openstack_flavor_id" validate:"required"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (f *Flavor) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	if f.GPU == "" {
		f.GPU = "None"
	}
	if f.Price == "" {
		f.Price = "Free"
	}
	return nil
}

// OperatingSystem is a VM image offered to projects.
type OperatingSystem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name" validate:"required"`
	IsGUI     bool      `gorm:"column:is_gui;not null;default:false" json:"is_gui"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *OperatingSystem) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// Application is installable software; Installs holds one script per supported OS.
type Application struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string               `gorm:"not null" json:"name" validate:"required"`
	Description string               `gorm:"type:text;not null;default:''" json:"description"`
	Icon        []byte               `json:"icon"`
	Installs    []ApplicationInstall `gorm:"foreignKey:ApplicationID" json:"installations,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// ApplicationInstall is the install script of an application on one operating system.
type ApplicationInstall struct {
	ApplicationID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"application_id"`
	OperatingSystemID uuid.UUID `gorm:"type:uuid;primaryKey" json:"operatingsystem_id"`
	Script            string    `gorm:"type:text;not null" json:"script"`
}
