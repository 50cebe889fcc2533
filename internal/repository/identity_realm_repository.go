package repository

import (
	"context"
	"errors"

	"github.com/desp-aas/project-management/internal/models"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IdentityRealmRepository interface {
	Create(ctx context.Context, r *models.IdentityRealm) error
	// GetByProject returns not_found when no realm was ever recorded for the project.
	GetByProject(ctx context.Context, projectID uuid.UUID) (*models.IdentityRealm, error)
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

type identityRealmRepository struct {
	db *gorm.DB
}

func NewIdentityRealmRepository(db *gorm.DB) IdentityRealmRepository {
	return &identityRealmRepository{db: db}
}

func (r *identityRealmRepository) Create(ctx context.Context, realm *models.IdentityRealm) error {
	if err := r.db.WithContext(ctx).Create(realm).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "store identity realm failed")
	}
	return nil
}

func (r *identityRealmRepository) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.IdentityRealm, error) {
	var realm models.IdentityRealm
	if err := r.db.WithContext(ctx).First(&realm, "project_id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "identity realm not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get identity realm failed")
	}
	return &realm, nil
}

func (r *identityRealmRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.IdentityRealm{}).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete identity realm failed")
	}
	return nil
}
