package handler

import (
	"context"
	"net/http"
	"strconv"

	"org-lifecycle/internal/model"
	"org-lifecycle/pkg/apierror"
)

type deleteWorkflow interface {
	RequestDelete(ctx context.Context, recordID int64, recordType string, recordNumber string, reason string, requester model.Identity) (model.DeleteRequest, error)
	ApproveDelete(ctx context.Context, id int64, reviewer model.Identity) (model.DeleteRequest, error)
	DenyDelete(ctx context.Context, id int64, reason string, reviewer model.Identity) (model.DeleteRequest, error)
	GetDeleteRequest(ctx context.Context, id int64) (model.DeleteRequest, error)
	ListPending(ctx context.Context) ([]model.DeleteRequest, error)
	LatestForRecord(ctx context.Context, recordID int64, recordType string) (model.DeleteRequest, error)
}

type DeleteRequestHandler struct {
	service deleteWorkflow
}

func NewDeleteRequestHandler(service deleteWorkflow) *DeleteRequestHandler {
	return &DeleteRequestHandler{service: service}
}

func (h *DeleteRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.CreateDeletePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.service.RequestDelete(r.Context(), payload.RecordID, payload.RecordType, payload.RecordNumber, payload.Reason, caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, rec, nil)
}

func (h *DeleteRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.service.GetDeleteRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, rec, nil)
}

func (h *DeleteRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ListPending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, recs, &model.Meta{Count: len(recs)})
}

// Latest serves GET /delete-requests/latest?record_type=job&record_id=30.
func (h *DeleteRequestHandler) Latest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	recordID, err := strconv.ParseInt(query.Get("record_id"), 10, 64)
	if err != nil {
		writeError(w, r, apierror.BadRequest("record_id must be an integer", query.Get("record_id")))
		return
	}

	rec, err := h.service.LatestForRecord(r.Context(), recordID, query.Get("record_type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, rec, nil)
}

func (h *DeleteRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.service.ApproveDelete(r.Context(), id, caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, rec, nil)
}

func (h *DeleteRequestHandler) Deny(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.DenyPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.service.DenyDelete(r.Context(), id, payload.Reason, caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, rec, nil)
}
