package model

import (
	"strconv"
	"time"
)

type OrganizationStatus string

const (
	OrganizationActive   OrganizationStatus = "Active"
	OrganizationArchived OrganizationStatus = "Archived"
)

// Organization is owned by the organizations aggregate; this service only
// reads it and, once the cooling-off period has passed, purges it.
type Organization struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Status     OrganizationStatus `json:"status"`
	ArchivedAt *time.Time         `json:"archived_at,omitempty"`
}

// RecordNumber is the human-facing label snapshotted onto requests.
func (o Organization) RecordNumber() string {
	return strconv.FormatInt(o.ID, 10)
}

// PurgeEligible reports whether the organization has been archived at or
// before cutoff. Completed-cleanup filtering is applied by the store.
func (o Organization) PurgeEligible(cutoff time.Time) bool {
	if o.Status != OrganizationArchived || o.ArchivedAt == nil {
		return false
	}
	return !o.ArchivedAt.After(cutoff)
}
