package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"org-lifecycle/internal/database"
	"org-lifecycle/internal/model"
)

const deleteRequestSelectSQL = `
	SELECT r.id, r.record_id, r.record_type, r.record_number,
	       r.requested_by, r.requested_by_name, r.requested_by_email,
	       r.reason, r.status, r.denial_reason,
	       r.reviewed_by, COALESCE(u.name, r.reviewed_by_name), r.reviewed_at,
	       r.created_at, r.updated_at
	FROM delete_requests r
	LEFT JOIN users u ON u.id = r.reviewed_by`

type DeleteRequestRepository struct {
	*Ledger[model.DeleteRequest]
}

func NewDeleteRequestRepository(db database.Store) *DeleteRequestRepository {
	return &DeleteRequestRepository{Ledger: NewLedger(db, deleteRequestKind())}
}

// LatestForRecord returns the most recent request filed against a record.
func (r *DeleteRequestRepository) LatestForRecord(ctx context.Context, recordID int64, recordType model.RecordType) (model.DeleteRequest, error) {
	row := r.db.QueryRow(ctx,
		deleteRequestSelectSQL+` WHERE r.record_id = $1 AND r.record_type = $2 ORDER BY r.created_at DESC, r.id DESC LIMIT 1`,
		recordID, string(recordType))

	rec, err := scanDeleteRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DeleteRequest{}, fmt.Errorf("delete request for %s %d: %w", recordType, recordID, model.ErrNotFound)
	}
	if err != nil {
		return model.DeleteRequest{}, model.StoreError("latest delete request", err)
	}
	return rec, nil
}

func deleteRequestKind() Kind[model.DeleteRequest] {
	return Kind[model.DeleteRequest]{
		Name:      model.KindDeleteRequest,
		Table:     "delete_requests",
		SelectSQL: deleteRequestSelectSQL,
		Validate:  model.DeleteRequest.Validate,
		Scan:      scanDeleteRequest,
		Insert: func(r model.DeleteRequest) (string, []any) {
			return `INSERT INTO delete_requests (
				record_id, record_type, record_number,
				requested_by, requested_by_name, requested_by_email,
				reason, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
			RETURNING id`,
				[]any{
					r.RecordID, string(r.RecordType), nullableString(r.RecordNumber),
					nullableID(r.RequestedBy.ID), nullableString(r.RequestedBy.Name), nullableString(r.RequestedBy.Email),
					r.Reason,
				}
		},
		Decide: func(t model.Transition) []Assignment {
			sets := []Assignment{
				{Column: "reviewed_by", Value: nullableID(t.Actor.ID)},
				{Column: "reviewed_by_name", Value: nullableString(t.Actor.Name)},
				{Column: "reviewed_at", Value: t.At},
			}
			if t.To == model.StatusDenied {
				sets = append(sets, Assignment{Column: "denial_reason", Value: t.Reason})
			}
			return sets
		},
	}
}

func scanDeleteRequest(row pgx.Row) (model.DeleteRequest, error) {
	var (
		rec                               model.DeleteRequest
		recordType, status                string
		recordNumber, denialReason        *string
		requestedBy, reviewedBy           *int64
		requestedByName, requestedByEmail *string
		reviewerName                      *string
	)

	err := row.Scan(
		&rec.ID, &rec.RecordID, &recordType, &recordNumber,
		&requestedBy, &requestedByName, &requestedByEmail,
		&rec.Reason, &status, &denialReason,
		&reviewedBy, &reviewerName, &rec.ReviewedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return model.DeleteRequest{}, err
	}

	rec.RecordType = model.RecordType(recordType)
	rec.RecordNumber = deref(recordNumber)
	rec.RequestedBy = identityFrom(requestedBy, requestedByName, requestedByEmail)
	rec.Status = model.RequestStatus(status)
	rec.DenialReason = deref(denialReason)
	rec.ReviewedBy = actorFrom(reviewedBy, reviewerName)
	return rec, nil
}
