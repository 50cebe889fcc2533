package handlers

import (
	"net/http"
	"strconv"

	"github.com/desp-aas/project-management/internal/api/types"
	"github.com/desp-aas/project-management/internal/services"
	appErr "github.com/desp-aas/project-management/pkg/errors"
)

// BuildStatusHandler serves the pipeline callback and the build history reads.
type BuildStatusHandler struct {
	svc services.BuildStatusService
}

func NewBuildStatusHandler(svc services.BuildStatusService) *BuildStatusHandler {
	return &BuildStatusHandler{svc: svc}
}

func (h *BuildStatusHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.BuildStatusRequest
	if !decode(w, r, &req) {
		return
	}
	bs, err := h.svc.RecordBuildStatus(r.Context(), id, req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, bs)
}

func (h *BuildStatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	bs, err := h.svc.GetBuildStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, bs)
}

// Events lists project events. Query: event_type filters, sort_by_date (default true) orders newest first.
func (h *BuildStatusHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	filter := services.DefaultEventFilter()
	q := r.URL.Query()
	filter.EventType = q.Get("event_type")
	if s := q.Get("sort_by_date"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "invalid sort_by_date"))
			return
		}
		filter.SortByDate = b
	}
	events, err := h.svc.GetEvents(r.Context(), id, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, events)
}
