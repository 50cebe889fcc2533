package repository

import (
	"context"
	"errors"

	"github.com/desp-aas/project-management/internal/models"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServerRepository maintains the local projection of provisioner-owned servers.
type ServerRepository interface {
	GetByProject(ctx context.Context, projectID uuid.UUID) (*models.Server, error)
	Upsert(ctx context.Context, s *models.Server) error
	SetState(ctx context.Context, serverID uuid.UUID, state string) error
}

type serverRepository struct {
	db *gorm.DB
}

func NewServerRepository(db *gorm.DB) ServerRepository {
	return &serverRepository{db: db}
}

func (r *serverRepository) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.Server, error) {
	var s models.Server
	if err := r.db.WithContext(ctx).First(&s, "project_id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "server not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get server failed")
	}
	return &s, nil
}

func (r *serverRepository) Upsert(ctx context.Context, s *models.Server) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"public_ip", "state", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "store server failed")
	}
	return nil
}

func (r *serverRepository) SetState(ctx context.Context, serverID uuid.UUID, state string) error {
	if err := r.db.WithContext(ctx).Model(&models.Server{}).Where("id = ?", serverID).Update("state", state).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "update server state failed")
	}
	return nil
}
