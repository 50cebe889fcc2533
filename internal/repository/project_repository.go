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

// BuildStateMutation edits the locked project in place and returns the event to append.
type BuildStateMutation func(p *models.Project) (*models.Event, error)

type ProjectRepository interface {
	BaseRepository[models.Project]
	// CreateWithApplications inserts the project and its application links in one write.
	CreateWithApplications(ctx context.Context, p *models.Project) error
	GetDetailed(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Project, error)
	UpdateColumns(ctx context.Context, projectID uuid.UUID, cols map[string]any) error
	MutateBuildState(ctx context.Context, projectID uuid.UUID, mutate BuildStateMutation) error
	// DeleteCascade removes the project with its events, server mirror and application links.
	DeleteCascade(ctx context.Context, projectID uuid.UUID) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db, "project"), db: db}
}

func (r *projectRepository) CreateWithApplications(ctx context.Context, p *models.Project) error {
	err := r.db.WithContext(ctx).
		Omit("Profile", "Flavor", "OperatingSystem", "Repository", "Server", "Applications.*").
		Create(p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return appErr.Wrap(err, appErr.CodeAlreadyExists, "project already exists")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "create project failed")
	}
	return nil
}

func (r *projectRepository) detailed(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Flavor").
		Preload("OperatingSystem").
		Preload("Repository").
		Preload("Server").
		Preload("Applications.Installs")
}

func (r *projectRepository) GetDetailed(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := r.detailed(ctx).First(&p, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "project not found").WithMeta("id", projectID.String())
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get project failed")
	}
	return &p, nil
}

func (r *projectRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	if err := r.detailed(ctx).Where("profile_id = ?", profileID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects by profile failed")
	}
	return out, nil
}

func (r *projectRepository) UpdateColumns(ctx context.Context, projectID uuid.UUID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).UpdateColumns(cols)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update project failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}

func (r *projectRepository) MutateBuildState(ctx context.Context, projectID uuid.UUID, mutate BuildStateMutation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.New(appErr.CodeNotFound, "project not found")
			}
			return appErr.Wrap(err, appErr.CodeInternal, "lock project failed")
		}

		ev, err := mutate(&p)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Project{}).Where("id = ?", projectID).UpdateColumns(map[string]any{
			"status":       p.Status,
			"logs":         p.Logs,
			"docker_image": p.DockerImage,
			"updated_at":   p.UpdatedAt,
		}).Error
		if err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "store build status failed")
		}

		if ev != nil {
			ev.ProjectID = projectID
			if err := tx.Create(ev).Error; err != nil {
				return appErr.Wrap(err, appErr.CodeInternal, "store event failed")
			}
		}
		return nil
	})
}

func (r *projectRepository) DeleteCascade(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Event{}).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "delete project events failed")
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Server{}).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "delete project server failed")
		}
		if err := tx.Exec("DELETE FROM project_applications WHERE project_id = ?", projectID).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "delete project applications failed")
		}
		res := tx.Delete(&models.Project{}, "id = ?", projectID)
		if res.Error != nil {
			return appErr.Wrap(res.Error, appErr.CodeInternal, "delete project failed")
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		return nil
	})
}
