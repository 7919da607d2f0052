package model

import "time"

type TransferRequest struct {
	ID                     int64         `json:"id"`
	SourceOrganizationID   int64         `json:"source_organization_id"`
	TargetOrganizationID   int64         `json:"target_organization_id"`
	SourceOrganizationName string        `json:"source_organization_name,omitempty"`
	TargetOrganizationName string        `json:"target_organization_name,omitempty"`
	RequestedBy            Identity      `json:"requested_by"`
	SourceRecordNumber     string        `json:"source_record_number,omitempty"`
	TargetRecordNumber     string        `json:"target_record_number,omitempty"`
	Status                 RequestStatus `json:"status"`
	DenialReason           string        `json:"denial_reason,omitempty"`
	ApprovedBy             *Identity     `json:"approved_by,omitempty"`
	ApprovedAt             *time.Time    `json:"approved_at,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

func (r TransferRequest) Validate() error {
	if r.SourceOrganizationID <= 0 {
		return NewValidationError("source_organization_id", "source organization is required")
	}
	if r.TargetOrganizationID <= 0 {
		return NewValidationError("target_organization_id", "target organization is required")
	}
	if r.SourceOrganizationID == r.TargetOrganizationID {
		return NewValidationError("target_organization_id", "source and target organization must differ")
	}
	return nil
}
