package service

import (
	"context"
	"errors"
	"fmt"

	"org-lifecycle/internal/authz"
	"org-lifecycle/internal/event"
	"org-lifecycle/internal/model"
)

type OrganizationReader interface {
	FindByID(ctx context.Context, id int64) (model.Organization, error)
}

type TransferService struct {
	flow *approvalFlow[model.TransferRequest]
	orgs OrganizationReader
}

func NewTransferService(ledger RequestLedger[model.TransferRequest], orgs OrganizationReader, deps WorkflowDeps) *TransferService {
	return &TransferService{
		flow: &approvalFlow[model.TransferRequest]{
			ledger:    ledger,
			object:    authz.ObjectTransfer,
			requested: event.TypeTransferRequested,
			approved:  event.TypeTransferApproved,
			denied:    event.TypeTransferDenied,
			describe: func(r model.TransferRequest) (int64, any) {
				return r.ID, r
			},
			deps: deps.withDefaults(),
		},
		orgs: orgs,
	}
}

// RequestTransfer files a pending request to merge source into target,
// snapshotting both organizations' record numbers.
func (s *TransferService) RequestTransfer(ctx context.Context, sourceID int64, targetID int64, requester model.Identity) (model.TransferRequest, error) {
	record := model.TransferRequest{
		SourceOrganizationID: sourceID,
		TargetOrganizationID: targetID,
		RequestedBy:          requester,
	}
	if err := record.Validate(); err != nil {
		return model.TransferRequest{}, err
	}

	source, err := s.lookup(ctx, "source_organization_id", sourceID)
	if err != nil {
		return model.TransferRequest{}, err
	}
	target, err := s.lookup(ctx, "target_organization_id", targetID)
	if err != nil {
		return model.TransferRequest{}, err
	}
	record.SourceRecordNumber = source.RecordNumber()
	record.TargetRecordNumber = target.RecordNumber()

	return s.flow.create(ctx, record, requester)
}

func (s *TransferService) lookup(ctx context.Context, field string, id int64) (model.Organization, error) {
	org, err := s.orgs.FindByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Organization{}, model.NewValidationError(field, fmt.Sprintf("organization %d does not exist", id))
	}
	return org, err
}

func (s *TransferService) ApproveTransfer(ctx context.Context, id int64, approver model.Identity) (model.TransferRequest, error) {
	return s.flow.approve(ctx, id, approver)
}

func (s *TransferService) DenyTransfer(ctx context.Context, id int64, reason string, approver model.Identity) (model.TransferRequest, error) {
	return s.flow.deny(ctx, id, reason, approver)
}

func (s *TransferService) GetTransfer(ctx context.Context, id int64) (model.TransferRequest, error) {
	return s.flow.get(ctx, id)
}

func (s *TransferService) ListPending(ctx context.Context) ([]model.TransferRequest, error) {
	return s.flow.ledger.ListPending(ctx)
}
