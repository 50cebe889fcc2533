package handlers

import (
	"context"
	"net/http"

	"github.com/desp-aas/project-management/internal/api/types"
	appErr "github.com/desp-aas/project-management/pkg/errors"
)

// Pinger reports whether a backing store answers.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	ping Pinger
}

func NewHealthHandler(ping Pinger) *HealthHandler { return &HealthHandler{ping: ping} }

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

// Readiness fails with 503 while the database does not answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, "database not ready"))
			return
		}
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ready"}})
}
