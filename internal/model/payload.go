package model

type CreateTransferPayload struct {
	SourceOrganizationID int64 `json:"source_organization_id"`
	TargetOrganizationID int64 `json:"target_organization_id"`
}

type CreateDeletePayload struct {
	RecordID     int64  `json:"record_id"`
	RecordType   string `json:"record_type"`
	RecordNumber string `json:"record_number"`
	Reason       string `json:"reason"`
}

type DenyPayload struct {
	Reason string `json:"reason"`
}
