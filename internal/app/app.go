// Package app assembles repositories, remote clients and services from configuration.
package app

import (
	"fmt"

	"github.com/desp-aas/project-management/internal/identity"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/notify"
	"github.com/desp-aas/project-management/internal/provisioner"
	"github.com/desp-aas/project-management/internal/repoprovider"
	"github.com/desp-aas/project-management/internal/repository"
	"github.com/desp-aas/project-management/internal/services"
	"github.com/desp-aas/project-management/internal/supervisor"
	"github.com/desp-aas/project-management/pkg/config"
	"github.com/desp-aas/project-management/pkg/httpclient"
	"gorm.io/gorm"
)

type Options struct {
	// Notifier defaults to logging notifications.
	Notifier notify.Notifier
	// DeletionScheduler defaults to running deletions on the in-process supervisor.
	DeletionScheduler services.DeletionScheduler
	// Admin overrides the Keycloak admin client.
	Admin identity.AdminClient
}

type Components struct {
	Supervisor *supervisor.Supervisor

	Projects  services.ProjectService
	Deletions services.DeletionService
	Builds    services.BuildStatusService

	Flavors          services.FlavorService
	OperatingSystems services.OperatingSystemService
	Repositories     services.RepositoryService
	Profiles         services.ProfileCatalogService
	Applications     services.ApplicationService
}

// New wires every service against db. The returned supervisor must be shut down by the caller.
func New(cfg *config.Config, db *gorm.DB, opts Options) (*Components, error) {
	client := httpclient.New(cfg.HTTPClientTimeout)

	repoProvider, err := newRepositoryProvider(cfg)
	if err != nil {
		return nil, err
	}

	admin := opts.Admin
	if admin == nil {
		admin = identity.NewGoCloak(cfg.Keycloak.ServerURL, cfg.Keycloak.VerifySSL)
	}

	var (
		projectRepo = repository.NewProjectRepository(db)
		profileRepo = repository.NewProfileRepository(db)
		flavorRepo  = repository.NewFlavorRepository(db)
		osRepo      = repository.NewOperatingSystemRepository(db)
		gitRepo     = repository.NewRepositoryRepository(db)
		appRepo     = repository.NewApplicationRepository(db)
		serverRepo  = repository.NewServerRepository(db)
		eventRepo   = repository.NewEventRepository(db)
	)

	realms := identity.NewRealmService(admin, repository.NewIdentityRealmRepository(db), identity.Settings{
		AdminUsername:       cfg.Keycloak.AdminUsername,
		AdminPassword:       cfg.Keycloak.AdminPassword,
		MasterRealm:         cfg.Keycloak.MasterRealm,
		ClientID:            cfg.Keycloak.ClientID,
		RedirectURIs:        cfg.Keycloak.RedirectURIs,
		DefaultUserPassword: cfg.Keycloak.DefaultUserPassword,
	})
	prov := provisioner.NewHTTPProvisioner(cfg.VMManagementURL, client)
	sup := supervisor.New()

	c := &Components{
		Supervisor: sup,
		Projects: services.NewProjectService(services.ProjectDeps{
			Projects:         projectRepo,
			Profiles:         services.NewProfileService(profileRepo),
			ProfileRepo:      profileRepo,
			Flavors:          flavorRepo,
			OperatingSystems: osRepo,
			Repositories:     gitRepo,
			Applications:     appRepo,
			Servers:          serverRepo,
			Events:           eventRepo,
			RepoProvider:     repoProvider,
			Provisioner:      prov,
			Realms:           realms,
			Notifier:         opts.Notifier,
			RepositoryGroup:  cfg.RepositoryGroup,
		}),
		Deletions: services.NewDeletionService(services.DeletionDeps{
			Projects:     projectRepo,
			Servers:      serverRepo,
			Provisioner:  prov,
			Realms:       realms,
			Scheduler:    opts.DeletionScheduler,
			Supervisor:   sup,
			PollInterval: cfg.Deletion.PollInterval,
			Timeout:      cfg.Deletion.Timeout,
		}),
		Builds:           services.NewBuildStatusService(projectRepo, eventRepo, nil),
		Flavors:          services.NewCatalogService[models.Flavor, repository.FlavorPatch](flavorRepo, "flavor"),
		OperatingSystems: services.NewCatalogService[models.OperatingSystem, repository.OperatingSystemPatch](osRepo, "operating system"),
		Repositories:     services.NewCatalogService[models.Repository, repository.RepositoryPatch](gitRepo, "repository"),
		Profiles:         services.NewCatalogService[models.Profile, repository.ProfilePatch](profileRepo, "profile"),
		Applications:     services.NewApplicationService(appRepo, osRepo),
	}
	return c, nil
}

func newRepositoryProvider(cfg *config.Config) (repoprovider.RepositoryProvider, error) {
	switch cfg.RepositoryProvider {
	case "gitlab":
		p, err := repoprovider.NewGitLabProvider(cfg.GitLabURL, cfg.GitLabToken)
		if err != nil {
			return nil, fmt.Errorf("gitlab repository provider: %w", err)
		}
		return p, nil
	case "storage":
		return repoprovider.NewStorageProvider(cfg.StorageURL, httpclient.New(cfg.HTTPClientTimeout)), nil
	}
	return nil, fmt.Errorf("unknown repository provider %q", cfg.RepositoryProvider)
}
