package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"org-lifecycle/internal/authz"
	"org-lifecycle/internal/event"
	"org-lifecycle/internal/metrics"
	"org-lifecycle/internal/model"
)

// RequestLedger is the store contract every request kind satisfies.
type RequestLedger[T any] interface {
	Kind() model.RequestKind
	Create(ctx context.Context, record T) (T, error)
	GetByID(ctx context.Context, id int64) (T, error)
	ListPending(ctx context.Context) ([]T, error)
	Transition(ctx context.Context, id int64, t model.Transition) (T, error)
}

// WorkflowDeps carries the collaborators shared by the workflows and the
// cleanup job. Zero fields fall back to permissive or no-op defaults.
type WorkflowDeps struct {
	Authorizer authz.Checker
	Publisher  event.Publisher
	Metrics    metrics.Recorder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (d WorkflowDeps) withDefaults() WorkflowDeps {
	if d.Authorizer == nil {
		d.Authorizer = authz.AllowAll{}
	}
	if d.Publisher == nil {
		d.Publisher = event.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// approvalFlow is the create/approve/deny plumbing shared by transfer and
// delete requests.
type approvalFlow[T any] struct {
	ledger    RequestLedger[T]
	object    string
	requested event.Type
	approved  event.Type
	denied    event.Type
	describe  func(record T) (subject int64, payload any)
	deps      WorkflowDeps
}

func (f *approvalFlow[T]) create(ctx context.Context, record T, requester model.Identity) (T, error) {
	created, err := f.ledger.Create(ctx, record)
	if err != nil {
		var zero T
		return zero, err
	}

	f.deps.Metrics.RequestCreated(f.ledger.Kind())
	f.publish(ctx, f.requested, created, requester)
	return created, nil
}

func (f *approvalFlow[T]) approve(ctx context.Context, id int64, actor model.Identity) (T, error) {
	return f.decide(ctx, id, model.Approve(actor, f.deps.Now()), authz.ActionApprove)
}

func (f *approvalFlow[T]) deny(ctx context.Context, id int64, reason string, actor model.Identity) (T, error) {
	return f.decide(ctx, id, model.Deny(actor, reason, f.deps.Now()), authz.ActionDeny)
}

func (f *approvalFlow[T]) decide(ctx context.Context, id int64, t model.Transition, action string) (T, error) {
	var zero T
	if id <= 0 {
		return zero, model.NewValidationError("id", "must be a positive integer")
	}
	if t.Actor.IsZero() {
		return zero, model.NewValidationError("actor", "reviewer identity is required")
	}
	if err := t.Validate(); err != nil {
		return zero, err
	}
	if err := f.deps.Authorizer.Authorize(ctx, t.Actor, f.object, action); err != nil {
		return zero, err
	}

	record, err := f.ledger.Transition(ctx, id, t)
	if err != nil {
		if errors.Is(err, model.ErrConflictOrNotFound) {
			f.deps.Metrics.TransitionConflict(f.ledger.Kind())
		}
		return zero, err
	}

	f.deps.Metrics.RequestTransitioned(f.ledger.Kind(), t.To)
	f.deps.Logger.InfoContext(ctx, "request decided",
		"kind", f.ledger.Kind(), "id", id, "status", t.To, "actor_id", t.Actor.ID)

	typ := f.approved
	if t.To == model.StatusDenied {
		typ = f.denied
	}
	f.publish(ctx, typ, record, t.Actor)
	return record, nil
}

// publish runs after the store has committed. A delivery failure cannot undo
// the decision, so it is logged and swallowed.
func (f *approvalFlow[T]) publish(ctx context.Context, typ event.Type, record T, actor model.Identity) {
	subject, payload := f.describe(record)
	e := event.New(typ, subject, actor.ID, payload, f.deps.Now())
	if err := f.deps.Publisher.Publish(ctx, e); err != nil {
		f.deps.Logger.ErrorContext(ctx, "publish event failed", "type", typ, "subject_id", subject, "error", err)
	}
}

func (f *approvalFlow[T]) get(ctx context.Context, id int64) (T, error) {
	if id <= 0 {
		var zero T
		return zero, model.NewValidationError("id", "must be a positive integer")
	}
	return f.ledger.GetByID(ctx, id)
}
