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

type FlavorRepository interface {
	BaseRepository[models.Flavor]
}

func NewFlavorRepository(db *gorm.DB) FlavorRepository {
	return NewBaseRepository[models.Flavor](db, "flavor")
}

type OperatingSystemRepository interface {
	BaseRepository[models.OperatingSystem]
}

func NewOperatingSystemRepository(db *gorm.DB) OperatingSystemRepository {
	return NewBaseRepository[models.OperatingSystem](db, "operating system")
}

type RepositoryRepository interface {
	BaseRepository[models.Repository]
}

func NewRepositoryRepository(db *gorm.DB) RepositoryRepository {
	return NewBaseRepository[models.Repository](db, "repository")
}

type ApplicationRepository interface {
	BaseRepository[models.Application]
	GetWithInstalls(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListWithInstalls(ctx context.Context) ([]models.Application, error)
	// FindByIDs returns the applications matching ids, or not_found naming the first missing one.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Application, error)
	UpsertInstall(ctx context.Context, install *models.ApplicationInstall) error
	// DeleteWithInstalls removes the application and its install scripts.
	DeleteWithInstalls(ctx context.Context, id uuid.UUID) error
}

type applicationRepository struct {
	BaseRepository[models.Application]
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{BaseRepository: NewBaseRepository[models.Application](db, "application"), db: db}
}

func (r *applicationRepository) GetWithInstalls(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var a models.Application
	if err := r.db.WithContext(ctx).Preload("Installs").First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "application not found").WithMeta("id", id.String())
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get application failed")
	}
	return &a, nil
}

func (r *applicationRepository) ListWithInstalls(ctx context.Context) ([]models.Application, error) {
	var out []models.Application
	if err := r.db.WithContext(ctx).Preload("Installs").Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list applications failed")
	}
	return out, nil
}

func (r *applicationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Application, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.Application
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "find applications failed")
	}
	byID := make(map[uuid.UUID]models.Application, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	out := make([]models.Application, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, appErr.New(appErr.CodeNotFound, "application not found").WithMeta("id", id.String())
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *applicationRepository) UpsertInstall(ctx context.Context, install *models.ApplicationInstall) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "application_id"}, {Name: "operating_system_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"script"}),
	}).Create(install).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "store application installation failed")
	}
	return nil
}

func (r *applicationRepository) DeleteWithInstalls(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", id).Delete(&models.ApplicationInstall{}).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "delete application installations failed")
		}
		return NewBaseRepository[models.Application](tx, "application").Delete(ctx, id)
	})
}
