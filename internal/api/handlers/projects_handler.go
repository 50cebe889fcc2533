package handlers

import (
	"net/http"

	"github.com/desp-aas/project-management/internal/api/middleware"
	"github.com/desp-aas/project-management/internal/api/types"
	"github.com/desp-aas/project-management/internal/repository"
	"github.com/desp-aas/project-management/internal/services"
	appErr "github.com/desp-aas/project-management/pkg/errors"
)

type ProjectsHandler struct {
	projects  services.ProjectService
	deletions services.DeletionService
}

func NewProjectsHandler(projects services.ProjectService, deletions services.DeletionService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, deletions: deletions}
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, r, appErr.New(appErr.CodeUnauthorized, "no authenticated user"))
		return
	}
	var req types.ProjectCreateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.CreateProject(r.Context(), actor, req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, p)
}

// ListByProfile lists the projects owned by the authenticated user.
func (h *ProjectsHandler) ListByProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, r, appErr.New(appErr.CodeUnauthorized, "no authenticated user"))
		return
	}
	items, err := h.projects.ListProjectsByOwner(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    items,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context()), Total: int64(len(items))},
	})
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch repository.ProjectPatch
	if !decode(w, r, &patch) {
		return
	}
	p, err := h.projects.UpdateProject(r.Context(), id, &patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// Delete answers 202 while the VM teardown is still awaited, 200 otherwise.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ticket, err := h.deletions.DeleteProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if ticket.AwaitingServer {
		status = http.StatusAccepted
	}
	writeData(w, r, status, ticket)
}

// UpdateServer mirrors a VM state change reported by the provisioner.
func (h *ProjectsHandler) UpdateServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.ServerUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	srv, err := h.projects.MirrorServer(r.Context(), id, req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, srv)
}
