package model

import (
	"strings"
	"time"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusDenied   RequestStatus = "denied"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// CanTransition reports whether a request may move from one status to
// another. Only pending requests move, and only once.
func CanTransition(from RequestStatus, to RequestStatus) bool {
	return from == StatusPending && to.Terminal()
}

// RequestKind names a request ledger. It doubles as the authorization object
// and the event/metric label.
type RequestKind string

const (
	KindTransfer      RequestKind = "transfer"
	KindDeleteRequest RequestKind = "delete_request"
)

// Identity is a denormalized snapshot of a caller. Role is used for
// authorization only and is never persisted.
type Identity struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"-"`
}

func (i Identity) IsZero() bool {
	return i.ID == 0 && i.Name == "" && i.Email == ""
}

// Transition describes a single pending -> approved|denied move.
type Transition struct {
	To     RequestStatus
	Actor  Identity
	Reason string
	At     time.Time
}

func Approve(actor Identity, at time.Time) Transition {
	return Transition{To: StatusApproved, Actor: actor, At: at}
}

func Deny(actor Identity, reason string, at time.Time) Transition {
	return Transition{To: StatusDenied, Actor: actor, Reason: strings.TrimSpace(reason), At: at}
}

func (t Transition) Validate() error {
	if !CanTransition(StatusPending, t.To) {
		return NewValidationError("status", "target status must be approved or denied")
	}
	if t.To == StatusDenied && strings.TrimSpace(t.Reason) == "" {
		return NewValidationError("reason", "denial reason is required")
	}
	if t.At.IsZero() {
		return NewValidationError("at", "transition time is required")
	}
	return nil
}
