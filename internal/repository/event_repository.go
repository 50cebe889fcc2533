package repository

import (
	"context"

	"github.com/desp-aas/project-management/internal/models"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventQuery narrows and orders a project's events.
type EventQuery struct {
	Type        models.EventType
	NewestFirst bool
}

type EventRepository interface {
	Create(ctx context.Context, ev *models.Event) error
	ListByProject(ctx context.Context, projectID uuid.UUID, q EventQuery) ([]models.Event, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, ev *models.Event) error {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "store event failed")
	}
	return nil
}

func (r *eventRepository) ListByProject(ctx context.Context, projectID uuid.UUID, q EventQuery) ([]models.Event, error) {
	tx := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if q.NewestFirst {
		tx = tx.Order("created_at DESC").Order("id DESC")
	} else {
		tx = tx.Order("id ASC")
	}
	var out []models.Event
	if err := tx.Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list events failed")
	}
	return out, nil
}
