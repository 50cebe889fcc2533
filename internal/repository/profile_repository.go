package repository

import (
	"context"
	"errors"

	"github.com/desp-aas/project-management/internal/models"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	BaseRepository[models.Profile]
	GetByOwner(ctx context.Context, ownerID string) (*models.Profile, error)
	// CreateIfAbsent inserts p unless a profile for the same owner exists, then returns the stored one.
	CreateIfAbsent(ctx context.Context, p *models.Profile) (*models.Profile, error)
}

type profileRepository struct {
	BaseRepository[models.Profile]
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{BaseRepository: NewBaseRepository[models.Profile](db, "profile"), db: db}
}

func (r *profileRepository) GetByOwner(ctx context.Context, ownerID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, "desp_owner_id = ?", ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "profile not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get profile failed")
	}
	return &p, nil
}

func (r *profileRepository) CreateIfAbsent(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "desp_owner_id"}}, DoNothing: true}).
		Create(p).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create profile failed")
	}
	return r.GetByOwner(ctx, p.DespOwnerID)
}
