package model

import (
	"slices"
	"strings"
	"time"
)

// RecordType is the closed set of record kinds a delete request may target.
type RecordType string

const (
	RecordOrganization  RecordType = "organization"
	RecordJob           RecordType = "job"
	RecordLead          RecordType = "lead"
	RecordHiringManager RecordType = "hiring_manager"
)

var recordTypes = []RecordType{RecordOrganization, RecordJob, RecordLead, RecordHiringManager}

func RecordTypes() []RecordType {
	return append([]RecordType(nil), recordTypes...)
}

func ParseRecordType(raw string) (RecordType, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, rt := range recordTypes {
		if string(rt) == normalized {
			return rt, nil
		}
	}
	return "", NewValidationError("record_type", "unknown record type "+raw)
}

// Valid reports whether t is one of the canonical values. Use
// ParseRecordType to normalize user input first.
func (t RecordType) Valid() bool {
	return slices.Contains(recordTypes, t)
}

type DeleteRequest struct {
	ID           int64         `json:"id"`
	RecordID     int64         `json:"record_id"`
	RecordType   RecordType    `json:"record_type"`
	RecordNumber string        `json:"record_number,omitempty"`
	RequestedBy  Identity      `json:"requested_by"`
	Reason       string        `json:"reason"`
	Status       RequestStatus `json:"status"`
	DenialReason string        `json:"denial_reason,omitempty"`
	ReviewedBy   *Identity     `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (r DeleteRequest) Validate() error {
	if r.RecordID <= 0 {
		return NewValidationError("record_id", "record id is required")
	}
	if !r.RecordType.Valid() {
		return NewValidationError("record_type", "unknown record type "+string(r.RecordType))
	}
	if strings.TrimSpace(r.Reason) == "" {
		return NewValidationError("reason", "reason is required")
	}
	return nil
}
