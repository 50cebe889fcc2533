package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desp-aas/project-management/internal/api/handlers"
	mw "github.com/desp-aas/project-management/internal/api/middleware"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/repository"
)

type Dependencies struct {
	HMACSecret     []byte
	RateLimitRPS   float64
	RateLimitBurst int

	Health      *handlers.HealthHandler
	Projects    *handlers.ProjectsHandler
	BuildStatus *handlers.BuildStatusHandler

	Flavors          *handlers.CatalogHandler[models.Flavor, repository.FlavorPatch]
	OperatingSystems *handlers.CatalogHandler[models.OperatingSystem, repository.OperatingSystemPatch]
	Repositories     *handlers.CatalogHandler[models.Repository, repository.RepositoryPatch]
	Profiles         *handlers.CatalogHandler[models.Profile, repository.ProfilePatch]
	Applications     *handlers.ApplicationsHandler
}

// NewRouter builds the HTTP API. ctx bounds background work of the middleware.
func NewRouter(ctx context.Context, dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(ctx, dep.RateLimitRPS, dep.RateLimitBurst))
	r.Use(chimid.Compress(5))

	r.Get("/healthz", dep.Health.Liveness)
	r.Get("/readyz", dep.Health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		// Callbacks from the CI pipeline and the VM provisioner, plus their reads.
		api.Patch("/projects/{id}/build-status", dep.BuildStatus.Record)
		api.Get("/projects/{id}/build-status", dep.BuildStatus.Get)
		api.Get("/projects/{id}/events", dep.BuildStatus.Events)
		api.Put("/projects/{id}/server", dep.Projects.UpdateServer)

		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Post("/projects", dep.Projects.Create)
			protected.Get("/projects_by_profile", dep.Projects.ListByProfile)
			protected.Get("/projects/{id}", dep.Projects.Get)
			protected.Patch("/projects/{id}", dep.Projects.Update)
			protected.Delete("/projects/{id}", dep.Projects.Delete)

			protected.Route("/flavors", dep.Flavors.Routes)
			protected.Route("/operatingsystems", dep.OperatingSystems.Routes)
			protected.Route("/repositories", dep.Repositories.Routes)
			protected.Route("/profiles", dep.Profiles.Routes)
			protected.Route("/applications", dep.Applications.Routes)
		})
	})

	return r
}
