package handlers

import (
	"net/http"

	"github.com/desp-aas/project-management/internal/api/types"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/repository"
	"github.com/desp-aas/project-management/internal/services"
	"github.com/go-chi/chi/v5"
)

// CatalogHandler exposes CRUD for one reference entity. T is the model, P its patch type.
type CatalogHandler[T any, P any] struct {
	svc services.CatalogService[T, P]
}

func NewCatalogHandler[T any, P any](svc services.CatalogService[T, P]) *CatalogHandler[T, P] {
	return &CatalogHandler[T, P]{svc: svc}
}

// Routes mounts list, create, get, update and delete.
func (h *CatalogHandler[T, P]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *CatalogHandler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, items)
}

func (h *CatalogHandler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	obj, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, obj)
}

func (h *CatalogHandler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	var obj T
	if !decode(w, r, &obj) {
		return
	}
	if err := h.svc.Create(r.Context(), &obj); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, obj)
}

func (h *CatalogHandler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch P
	if !decode(w, r, &patch) {
		return
	}
	obj, err := h.svc.Update(r.Context(), id, &patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, obj)
}

func (h *CatalogHandler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplicationsHandler adds the per-OS installation script endpoint to application CRUD.
type ApplicationsHandler struct {
	*CatalogHandler[models.Application, repository.ApplicationPatch]
	apps services.ApplicationService
}

func NewApplicationsHandler(apps services.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{
		CatalogHandler: NewCatalogHandler[models.Application, repository.ApplicationPatch](apps),
		apps:           apps,
	}
}

func (h *ApplicationsHandler) Routes(r chi.Router) {
	h.CatalogHandler.Routes(r)
	r.Put("/{id}/installation", h.SetInstallation)
}

func (h *ApplicationsHandler) SetInstallation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.InstallationRequest
	if !decode(w, r, &req) {
		return
	}
	app, err := h.apps.SetInstallation(r.Context(), id, req.OperatingSystemID, req.Script)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, app)
}
