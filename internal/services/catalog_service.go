package services

import (
	"context"

	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/repository"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService is CRUD over a reference entity shared by projects.
// P is the entity's patch type (see repository.Columns).
type CatalogService[T any, P any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, obj *T) error
	Update(ctx context.Context, id uuid.UUID, patch *P) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogService[T any, P any] struct {
	repo repository.BaseRepository[T]
	name string
}

func NewCatalogService[T any, P any](repo repository.BaseRepository[T], name string) CatalogService[T, P] {
	return &catalogService[T, P]{repo: repo, name: name}
}

func (s *catalogService[T, P]) List(ctx context.Context) ([]T, error) {
	return s.repo.List(ctx)
}

func (s *catalogService[T, P]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var out T
	if err := s.repo.GetByID(ctx, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *catalogService[T, P]) Create(ctx context.Context, obj *T) error {
	if err := s.repo.Create(ctx, obj); err != nil {
		return err
	}
	logger.L().Info(s.name + " created")
	return nil
}

func (s *catalogService[T, P]) Update(ctx context.Context, id uuid.UUID, patch *P) (*T, error) {
	var out T
	if err := s.repo.Patch(ctx, id, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *catalogService[T, P]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.L().Info(s.name+" deleted", zap.String("id", id.String()))
	return nil
}

type (
	FlavorService          = CatalogService[models.Flavor, repository.FlavorPatch]
	OperatingSystemService = CatalogService[models.OperatingSystem, repository.OperatingSystemPatch]
	RepositoryService      = CatalogService[models.Repository, repository.RepositoryPatch]
	ProfileCatalogService  = CatalogService[models.Profile, repository.ProfilePatch]
)

// ApplicationService adds per-OS install scripts to application CRUD.
type ApplicationService interface {
	CatalogService[models.Application, repository.ApplicationPatch]
	SetInstallation(ctx context.Context, applicationID, operatingSystemID uuid.UUID, script string) (*models.Application, error)
}

type applicationService struct {
	CatalogService[models.Application, repository.ApplicationPatch]
	apps repository.ApplicationRepository
	oses repository.OperatingSystemRepository
}

func NewApplicationService(apps repository.ApplicationRepository, oses repository.OperatingSystemRepository) ApplicationService {
	return &applicationService{
		CatalogService: NewCatalogService[models.Application, repository.ApplicationPatch](apps, "application"),
		apps:           apps,
		oses:           oses,
	}
}

func (s *applicationService) List(ctx context.Context) ([]models.Application, error) {
	return s.apps.ListWithInstalls(ctx)
}

func (s *applicationService) Get(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return s.apps.GetWithInstalls(ctx, id)
}

func (s *applicationService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.apps.DeleteWithInstalls(ctx, id); err != nil {
		return err
	}
	logger.L().Info("application deleted", zap.String("id", id.String()))
	return nil
}

func (s *applicationService) SetInstallation(ctx context.Context, applicationID, operatingSystemID uuid.UUID, script string) (*models.Application, error) {
	if script == "" {
		return nil, appErr.New(appErr.CodeInvalid, "installation script is required")
	}
	if _, err := s.apps.GetWithInstalls(ctx, applicationID); err != nil {
		return nil, err
	}
	if err := s.oses.GetByID(ctx, operatingSystemID, &models.OperatingSystem{}); err != nil {
		return nil, err
	}

	err := s.apps.UpsertInstall(ctx, &models.ApplicationInstall{
		ApplicationID:     applicationID,
		OperatingSystemID: operatingSystemID,
		Script:            script,
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("application installation stored",
		zap.String("application_id", applicationID.String()),
		zap.String("operatingsystem_id", operatingSystemID.String()),
	)
	return s.apps.GetWithInstalls(ctx, applicationID)
}
