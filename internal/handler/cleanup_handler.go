package handler

import (
	"context"
	"net/http"

	"org-lifecycle/internal/model"
)

type cleanupJob interface {
	Trigger(ctx context.Context, actor model.Identity) (model.CleanupReport, error)
	ListTasks(ctx context.Context, actor model.Identity, status string, limit int) ([]model.ScheduledTask, error)
}

type CleanupHandler struct {
	service cleanupJob
}

func NewCleanupHandler(service cleanupJob) *CleanupHandler {
	return &CleanupHandler{service: service}
}

// Run performs a cleanup pass synchronously and returns its report.
func (h *CleanupHandler) Run(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.service.Trigger(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, report, nil)
}

func (h *CleanupHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 100)
	tasks, err := h.service.ListTasks(r.Context(), caller, r.URL.Query().Get("status"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, tasks, &model.Meta{Count: len(tasks), Limit: limit})
}
