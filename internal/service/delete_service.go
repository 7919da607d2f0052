package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"org-lifecycle/internal/authz"
	"org-lifecycle/internal/event"
	"org-lifecycle/internal/model"
)

type DeleteRequestLedger interface {
	RequestLedger[model.DeleteRequest]
	LatestForRecord(ctx context.Context, recordID int64, recordType model.RecordType) (model.DeleteRequest, error)
}

type DeleteService struct {
	flow   *approvalFlow[model.DeleteRequest]
	ledger DeleteRequestLedger
	orgs   OrganizationReader
}

// NewDeleteService builds the delete workflow. orgs may be nil; when set it
// fills in the record number of organization deletes filed without one.
func NewDeleteService(ledger DeleteRequestLedger, orgs OrganizationReader, deps WorkflowDeps) *DeleteService {
	return &DeleteService{
		flow: &approvalFlow[model.DeleteRequest]{
			ledger:    ledger,
			object:    authz.ObjectDeleteRequest,
			requested: event.TypeDeleteRequested,
			approved:  event.TypeDeleteRequestApproved,
			denied:    event.TypeDeleteRequestDenied,
			describe: func(r model.DeleteRequest) (int64, any) {
				return r.ID, r
			},
			deps: deps.withDefaults(),
		},
		ledger: ledger,
		orgs:   orgs,
	}
}

func (s *DeleteService) RequestDelete(ctx context.Context, recordID int64, recordType string, recordNumber string, reason string, requester model.Identity) (model.DeleteRequest, error) {
	rt, err := model.ParseRecordType(recordType)
	if err != nil {
		return model.DeleteRequest{}, err
	}

	record := model.DeleteRequest{
		RecordID:     recordID,
		RecordType:   rt,
		RecordNumber: strings.TrimSpace(recordNumber),
		RequestedBy:  requester,
		Reason:       strings.TrimSpace(reason),
	}
	if err := record.Validate(); err != nil {
		return model.DeleteRequest{}, err
	}

	if rt == model.RecordOrganization && record.RecordNumber == "" && s.orgs != nil {
		org, err := s.orgs.FindByID(ctx, recordID)
		if errors.Is(err, model.ErrNotFound) {
			return model.DeleteRequest{}, model.NewValidationError("record_id", fmt.Sprintf("organization %d does not exist", recordID))
		}
		if err != nil {
			return model.DeleteRequest{}, err
		}
		record.RecordNumber = org.RecordNumber()
	}

	return s.flow.create(ctx, record, requester)
}

func (s *DeleteService) ApproveDelete(ctx context.Context, id int64, reviewer model.Identity) (model.DeleteRequest, error) {
	return s.flow.approve(ctx, id, reviewer)
}

func (s *DeleteService) DenyDelete(ctx context.Context, id int64, reason string, reviewer model.Identity) (model.DeleteRequest, error) {
	return s.flow.deny(ctx, id, reason, reviewer)
}

func (s *DeleteService) GetDeleteRequest(ctx context.Context, id int64) (model.DeleteRequest, error) {
	return s.flow.get(ctx, id)
}

func (s *DeleteService) ListPending(ctx context.Context) ([]model.DeleteRequest, error) {
	return s.ledger.ListPending(ctx)
}

// LatestForRecord returns the newest request filed against a record, in any
// status.
func (s *DeleteService) LatestForRecord(ctx context.Context, recordID int64, recordType string) (model.DeleteRequest, error) {
	rt, err := model.ParseRecordType(recordType)
	if err != nil {
		return model.DeleteRequest{}, err
	}
	if recordID <= 0 {
		return model.DeleteRequest{}, model.NewValidationError("record_id", "must be a positive integer")
	}
	return s.ledger.LatestForRecord(ctx, recordID, rt)
}
