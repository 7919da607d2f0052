package handler

import (
	"context"
	"net/http"

	"org-lifecycle/internal/model"
)

type transferWorkflow interface {
	RequestTransfer(ctx context.Context, sourceID int64, targetID int64, requester model.Identity) (model.TransferRequest, error)
	ApproveTransfer(ctx context.Context, id int64, approver model.Identity) (model.TransferRequest, error)
	DenyTransfer(ctx context.Context, id int64, reason string, approver model.Identity) (model.TransferRequest, error)
	GetTransfer(ctx context.Context, id int64) (model.TransferRequest, error)
	ListPending(ctx context.Context) ([]model.TransferRequest, error)
}

type TransferHandler struct {
	service transferWorkflow
}

func NewTransferHandler(service transferWorkflow) *TransferHandler {
	return &TransferHandler{service: service}
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.CreateTransferPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.service.RequestTransfer(r.Context(), payload.SourceOrganizationID, payload.TargetOrganizationID, caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, rec, nil)
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.service.GetTransfer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, rec, nil)
}

func (h *TransferHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ListPending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, recs, &model.Meta{Count: len(recs)})
}

func (h *TransferHandler) Approve(w http.ResponseWriter, r *http.Request) {
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

	rec, err := h.service.ApproveTransfer(r.Context(), id, caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, rec, nil)
}

func (h *TransferHandler) Deny(w http.ResponseWriter, r *http.Request) {
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

	rec, err := h.service.DenyTransfer(r.Context(), id, payload.Reason, caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, rec, nil)
}
