package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desp-aas/project-management/internal/identity"
	"github.com/desp-aas/project-management/internal/metrics"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/notify"
	"github.com/desp-aas/project-management/internal/provisioner"
	"github.com/desp-aas/project-management/internal/repoprovider"
	"github.com/desp-aas/project-management/internal/repository"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"k8s.io/utils/clock"
)

// Provisioning steps recorded as events.
const (
	StepVM       = "vm"
	StepIdentity = "identity"
)

type ProjectService interface {
	CreateProject(ctx context.Context, actor Actor, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	ListProjectsByOwner(ctx context.Context, actor Actor) ([]models.Project, error)
	UpdateProject(ctx context.Context, projectID uuid.UUID, patch *repository.ProjectPatch) (*models.Project, error)
	// MirrorServer records the provisioner's latest view of the project's server.
	MirrorServer(ctx context.Context, projectID uuid.UUID, update *ServerUpdate) (*models.Server, error)
}

type CreateProjectInput struct {
	Name              string
	SSHKey            string
	FlavorID          uuid.UUID
	OperatingSystemID uuid.UUID
	// RepositoryID reuses an existing repository; nil creates a new one.
	RepositoryID   *uuid.UUID
	ApplicationIDs []uuid.UUID
}

type ServerUpdate struct {
	ID       uuid.UUID
	PublicIP *string
	State    string
}

// ProjectDeps are the collaborators of the creation flow.
type ProjectDeps struct {
	Projects         repository.ProjectRepository
	Profiles         ProfileService
	ProfileRepo      repository.ProfileRepository
	Flavors          repository.FlavorRepository
	OperatingSystems repository.OperatingSystemRepository
	Repositories     repository.RepositoryRepository
	Applications     repository.ApplicationRepository
	Servers          repository.ServerRepository
	Events           repository.EventRepository

	RepoProvider repoprovider.RepositoryProvider
	Provisioner  provisioner.Provisioner
	Realms       identity.RealmService
	Notifier     notify.Notifier

	RepositoryGroup string
	Clock           clock.PassiveClock
}

type projectService struct {
	ProjectDeps
}

func NewProjectService(deps ProjectDeps) ProjectService {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogNotifier()
	}
	return &projectService{ProjectDeps: deps}
}

var _ ProjectService = (*projectService)(nil)

// references is what a new project points to, resolved before any remote side effect.
type references struct {
	flavor       models.Flavor
	os           models.OperatingSystem
	repositoryID *uuid.UUID
	applications []models.Application
}

func (s *projectService) CreateProject(ctx context.Context, actor Actor, input *CreateProjectInput) (*models.Project, error) {
	profile, err := s.Profiles.GetOrCreate(ctx, actor)
	if err != nil {
		return nil, err
	}

	refs, err := s.resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		ID:                uuid.New(),
		Name:              input.Name,
		SSHKey:            input.SSHKey,
		ProfileID:         profile.ID,
		FlavorID:          refs.flavor.ID,
		OperatingSystemID: refs.os.ID,
		RepositoryID:      refs.repositoryID,
		Applications:      refs.applications,
		VMRequestStatus:   models.VMRequestPending,
		IdentityStatus:    models.IdentityPending,
	}
	log := logger.L().With(zap.String("project_id", p.ID.String()))

	if p.RepositoryID == nil {
		repo, err := s.createRepository(ctx, actor, p)
		if err != nil {
			log.Error("repository creation failed, project not stored", zap.Error(err))
			return nil, err
		}
		p.RepositoryID = &repo.ID
	}

	if err := s.Projects.CreateWithApplications(ctx, p); err != nil {
		return nil, err
	}
	metrics.ProjectsCreated.Inc()
	log.Info("project stored", zap.String("name", p.Name), zap.String("profile_id", profile.ID.String()))

	err = s.Notifier.Notify(ctx, notify.Notification{
		Template: notify.TemplateGeneric,
		UserID:   actor.OwnerID,
		Email:    actor.Email,
		Subject:  "Vm creation started",
		Message:  fmt.Sprintf("Vm creation started for project %s", p.Name),
	})
	if err != nil {
		log.Warn("notification not sent", zap.Error(err))
	}

	if err := s.requestServer(ctx, p, profile, refs); err != nil {
		return nil, err
	}
	s.setupIdentity(ctx, p, actor)

	return s.Projects.GetDetailed(ctx, p.ID)
}

func (s *projectService) resolve(ctx context.Context, input *CreateProjectInput) (*references, error) {
	refs := &references{}
	if err := s.Flavors.GetByID(ctx, input.FlavorID, &refs.flavor); err != nil {
		return nil, err
	}
	if err := s.OperatingSystems.GetByID(ctx, input.OperatingSystemID, &refs.os); err != nil {
		return nil, err
	}
	if input.RepositoryID != nil {
		var repo models.Repository
		if err := s.Repositories.GetByID(ctx, *input.RepositoryID, &repo); err != nil {
			return nil, err
		}
		refs.repositoryID = &repo.ID
	}

	apps, err := s.Applications.FindByIDs(ctx, uniqueIDs(input.ApplicationIDs))
	if err != nil {
		return nil, err
	}
	refs.applications = apps
	return refs, nil
}

func (s *projectService) createRepository(ctx context.Context, actor Actor, p *models.Project) (*models.Repository, error) {
	name := fmt.Sprintf("%s_%s", p.Name, p.ID)
	remote, err := s.RepoProvider.CreateRepository(ctx, name, s.RepositoryGroup)
	if err != nil {
		return nil, err
	}

	repo := &models.Repository{URL: remote.URL, Username: actor.Username, Token: remote.Token}
	if err := s.Repositories.Create(ctx, repo); err != nil {
		return nil, err
	}
	logger.L().Info("repository created",
		zap.String("project_id", p.ID.String()),
		zap.String("repository_id", repo.ID.String()),
		zap.String("url", repo.URL),
	)
	return repo, nil
}

// requestServer returns an error only when the provisioner could not be reached.
func (s *projectService) requestServer(ctx context.Context, p *models.Project, profile *models.Profile, refs *references) error {
	log := logger.L().With(zap.String("project_id", p.ID.String()), zap.String("step", StepVM))

	ack, err := s.Provisioner.CreateServer(ctx, &provisioner.CreateServerRequest{
		Username:     profile.Username,
		Password:     profile.Password,
		ImageName:    refs.os.Name,
		FlavorName:   refs.flavor.Name,
		SSHPublicKey: p.SSHKey,
		ProjectID:    p.ID.String(),
	})
	if err != nil {
		log.Error("vm management unreachable", zap.Error(err))
		metrics.ProvisioningFailures.WithLabelValues(StepVM).Inc()
		s.markStep(ctx, p, StepVM, models.VMRequestFailed, "VM creation could not be requested.", map[string]any{"error": err.Error()})
		return err
	}

	if !ack.Accepted {
		log.Error("vm creation rejected", zap.Int("status", ack.StatusCode), zap.String("body", ack.Detail))
		metrics.ProvisioningFailures.WithLabelValues(StepVM).Inc()
		s.markStep(ctx, p, StepVM, models.VMRequestRejected, "VM creation was rejected.", map[string]any{
			"status_code": ack.StatusCode,
			"detail":      ack.Detail,
		})
		return nil
	}

	log.Info("vm creation launched")
	s.markStep(ctx, p, StepVM, models.VMRequestRequested, "VM creation requested.", nil)
	if ack.Server != nil {
		srv := &models.Server{ID: ack.Server.ID, ProjectID: p.ID, PublicIP: ack.Server.PublicIP, State: ack.Server.State}
		if err := s.Servers.Upsert(ctx, srv); err != nil {
			log.Warn("server mirror not stored", zap.String("server_id", srv.ID.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *projectService) setupIdentity(ctx context.Context, p *models.Project, actor Actor) {
	log := logger.L().With(zap.String("project_id", p.ID.String()), zap.String("step", StepIdentity))

	realm, err := s.Realms.SetupRealm(ctx, p.ID, actor.Username, actor.Email)
	if err != nil {
		log.Error("identity realm setup failed, continuing", zap.Error(err))
		metrics.ProvisioningFailures.WithLabelValues(StepIdentity).Inc()
		s.markStep(ctx, p, StepIdentity, models.IdentityFailed, "Identity realm setup failed.", map[string]any{"error": err.Error()})
		return
	}
	log.Info("identity realm ready", zap.String("client_id", realm.ClientID))
	s.markStep(ctx, p, StepIdentity, models.IdentityReady, "Identity realm is ready.", nil)
}

// markStep stores a provisioning sub-status and the matching event. Failures are logged.
func (s *projectService) markStep(ctx context.Context, p *models.Project, step, status, content string, details map[string]any) {
	column := "vm_request_status"
	if step == StepIdentity {
		column = "identity_status"
	}
	if err := s.Projects.UpdateColumns(ctx, p.ID, map[string]any{column: status}); err != nil {
		logger.L().Error("store provisioning status failed", zap.String("project_id", p.ID.String()), zap.String("step", step), zap.Error(err))
	}

	ev := &models.Event{
		ProjectID: p.ID,
		Type:      models.EventTypeProvisioning,
		Step:      step,
		Status:    status,
		Content:   content,
		CreatedAt: s.Clock.Now(),
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			ev.Details = datatypes.JSON(b)
		}
	}
	if err := s.Events.Create(ctx, ev); err != nil {
		logger.L().Error("store provisioning event failed", zap.String("project_id", p.ID.String()), zap.String("step", step), zap.Error(err))
	}
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	return s.Projects.GetDetailed(ctx, projectID)
}

func (s *projectService) ListProjectsByOwner(ctx context.Context, actor Actor) ([]models.Project, error) {
	profile, err := s.Profiles.GetOrCreate(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.Projects.ListByProfile(ctx, profile.ID)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID uuid.UUID, patch *repository.ProjectPatch) (*models.Project, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, appErr.New(appErr.CodeInvalid, "name must not be empty")
	}
	if patch.FlavorID != nil {
		if err := s.Flavors.GetByID(ctx, *patch.FlavorID, &models.Flavor{}); err != nil {
			return nil, err
		}
	}
	if patch.OperatingSystemID != nil {
		if err := s.OperatingSystems.GetByID(ctx, *patch.OperatingSystemID, &models.OperatingSystem{}); err != nil {
			return nil, err
		}
	}
	if patch.RepositoryID != nil {
		if err := s.Repositories.GetByID(ctx, *patch.RepositoryID, &models.Repository{}); err != nil {
			return nil, err
		}
	}
	if patch.ProfileID != nil {
		if err := s.ProfileRepo.GetByID(ctx, *patch.ProfileID, &models.Profile{}); err != nil {
			return nil, err
		}
	}

	var p models.Project
	if err := s.Projects.Patch(ctx, projectID, patch, &p); err != nil {
		return nil, err
	}
	logger.L().Info("project updated", zap.String("project_id", projectID.String()))
	return s.Projects.GetDetailed(ctx, projectID)
}

func (s *projectService) MirrorServer(ctx context.Context, projectID uuid.UUID, update *ServerUpdate) (*models.Server, error) {
	if update.ID == uuid.Nil {
		return nil, appErr.New(appErr.CodeInvalid, "server id is required")
	}
	var p models.Project
	if err := s.Projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}

	srv := &models.Server{ID: update.ID, ProjectID: projectID, PublicIP: update.PublicIP, State: update.State}
	if err := s.Servers.Upsert(ctx, srv); err != nil {
		return nil, err
	}
	logger.L().Info("server mirrored",
		zap.String("project_id", projectID.String()),
		zap.String("server_id", srv.ID.String()),
		zap.String("state", srv.State),
	)
	return s.Servers.GetByProject(ctx, projectID)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
