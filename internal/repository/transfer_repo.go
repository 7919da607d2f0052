package repository

import (
	"github.com/jackc/pgx/v5"

	"org-lifecycle/internal/database"
	"org-lifecycle/internal/model"
)

const transferSelectSQL = `
	SELECT r.id, r.source_organization_id, r.target_organization_id,
	       r.requested_by, r.requested_by_name, r.requested_by_email,
	       r.source_record_number, r.target_record_number,
	       r.status, r.denial_reason,
	       r.approved_by, COALESCE(u.name, r.approved_by_name), r.approved_at,
	       r.created_at, r.updated_at,
	       so.name, tgt.name
	FROM organization_transfers r
	LEFT JOIN organizations so ON so.id = r.source_organization_id
	LEFT JOIN organizations tgt ON tgt.id = r.target_organization_id
	LEFT JOIN users u ON u.id = r.approved_by`

type TransferRepository struct {
	*Ledger[model.TransferRequest]
}

func NewTransferRepository(db database.Store) *TransferRepository {
	return &TransferRepository{Ledger: NewLedger(db, transferKind())}
}

func transferKind() Kind[model.TransferRequest] {
	return Kind[model.TransferRequest]{
		Name:      model.KindTransfer,
		Table:     "organization_transfers",
		SelectSQL: transferSelectSQL,
		Validate:  model.TransferRequest.Validate,
		Scan:      scanTransfer,
		Insert: func(r model.TransferRequest) (string, []any) {
			return `INSERT INTO organization_transfers (
				source_organization_id, target_organization_id,
				requested_by, requested_by_name, requested_by_email,
				source_record_number, target_record_number, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
			RETURNING id`,
				[]any{
					r.SourceOrganizationID, r.TargetOrganizationID,
					nullableID(r.RequestedBy.ID), nullableString(r.RequestedBy.Name), nullableString(r.RequestedBy.Email),
					nullableString(r.SourceRecordNumber), nullableString(r.TargetRecordNumber),
				}
		},
		Decide: func(t model.Transition) []Assignment {
			sets := []Assignment{
				{Column: "approved_by", Value: nullableID(t.Actor.ID)},
				{Column: "approved_by_name", Value: nullableString(t.Actor.Name)},
			}
			if t.To == model.StatusApproved {
				return append(sets, Assignment{Column: "approved_at", Value: t.At})
			}
			return append(sets, Assignment{Column: "denial_reason", Value: t.Reason})
		},
	}
}

func scanTransfer(row pgx.Row) (model.TransferRequest, error) {
	var (
		rec                                    model.TransferRequest
		status                                 string
		requestedBy, approvedBy                *int64
		requestedByName, requestedByEmail      *string
		sourceNumber, targetNumber             *string
		denialReason, approverName             *string
		sourceOrganization, targetOrganization *string
	)

	err := row.Scan(
		&rec.ID, &rec.SourceOrganizationID, &rec.TargetOrganizationID,
		&requestedBy, &requestedByName, &requestedByEmail,
		&sourceNumber, &targetNumber,
		&status, &denialReason,
		&approvedBy, &approverName, &rec.ApprovedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
		&sourceOrganization, &targetOrganization,
	)
	if err != nil {
		return model.TransferRequest{}, err
	}

	rec.RequestedBy = identityFrom(requestedBy, requestedByName, requestedByEmail)
	rec.SourceRecordNumber = deref(sourceNumber)
	rec.TargetRecordNumber = deref(targetNumber)
	rec.Status = model.RequestStatus(status)
	rec.DenialReason = deref(denialReason)
	rec.ApprovedBy = actorFrom(approvedBy, approverName)
	rec.SourceOrganizationName = deref(sourceOrganization)
	rec.TargetOrganizationName = deref(targetOrganization)
	return rec, nil
}
