package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeTransferRequested      Type = "transfer.requested"
	TypeTransferApproved       Type = "transfer.approved"
	TypeTransferDenied         Type = "transfer.denied"
	TypeDeleteRequested        Type = "delete_request.requested"
	TypeDeleteRequestApproved  Type = "delete_request.approved"
	TypeDeleteRequestDenied    Type = "delete_request.denied"
	TypeOrganizationPurged     Type = "organization.purged"
	TypeArchiveCleanupFinished Type = "archive_cleanup.finished"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Subject   int64  `json:"subject_id"` // Request or organization id
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   int64  `json:"actor_id,omitempty"`
}

func New(t Type, subject int64, actorID int64, payload any, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Subject:   subject,
		Payload:   payload,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

// Publisher hands committed workflow outcomes to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Bus interface {
	Publisher
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
