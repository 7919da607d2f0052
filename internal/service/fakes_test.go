package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"org-lifecycle/internal/authz"
	"org-lifecycle/internal/event"
	"org-lifecycle/internal/model"
)

var testNow = time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// memLedger mimics the conditional UPDATE of the real ledger: a transition
// only lands while the stored record is still pending.
type memLedger[T any] struct {
	kind     model.RequestKind
	validate func(T) error
	status   func(T) model.RequestStatus
	withID   func(T, int64, time.Time) T
	apply    func(T, model.Transition) T
	latest   func(T) (int64, model.RecordType)

	mu      sync.Mutex
	nextID  int64
	records map[int64]T
}

func (l *memLedger[T]) Kind() model.RequestKind { return l.kind }

func (l *memLedger[T]) Create(_ context.Context, record T) (T, error) {
	if err := l.validate(record); err != nil {
		var zero T
		return zero, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.records == nil {
		l.records = map[int64]T{}
	}
	l.nextID++
	stored := l.withID(record, l.nextID, testNow)
	l.records[l.nextID] = stored
	return stored, nil
}

func (l *memLedger[T]) GetByID(_ context.Context, id int64) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.records[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %d: %w", l.kind, id, model.ErrNotFound)
	}
	return record, nil
}

func (l *memLedger[T]) ListPending(_ context.Context) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, 0)
	for id := l.nextID; id > 0; id-- {
		if r, ok := l.records[id]; ok && l.status(r) == model.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLedger[T]) Transition(_ context.Context, id int64, t model.Transition) (T, error) {
	var zero T
	if err := t.Validate(); err != nil {
		return zero, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.records[id]
	if !ok || l.status(record) != model.StatusPending {
		return zero, fmt.Errorf("%s %d: %w", l.kind, id, model.ErrConflictOrNotFound)
	}
	record = l.apply(record, t)
	l.records[id] = record
	return record, nil
}

func newTransferLedger() *memLedger[model.TransferRequest] {
	return &memLedger[model.TransferRequest]{
		kind:     model.KindTransfer,
		validate: model.TransferRequest.Validate,
		status:   func(r model.TransferRequest) model.RequestStatus { return r.Status },
		withID: func(r model.TransferRequest, id int64, at time.Time) model.TransferRequest {
			r.ID, r.Status, r.CreatedAt, r.UpdatedAt = id, model.StatusPending, at, at
			return r
		},
		apply: func(r model.TransferRequest, t model.Transition) model.TransferRequest {
			actor := t.Actor
			r.Status, r.ApprovedBy, r.UpdatedAt = t.To, &actor, t.At
			if t.To == model.StatusApproved {
				at := t.At
				r.ApprovedAt = &at
			} else {
				r.DenialReason = t.Reason
			}
			return r
		},
	}
}

type memDeleteLedger struct {
	*memLedger[model.DeleteRequest]
}

func (l memDeleteLedger) LatestForRecord(_ context.Context, recordID int64, recordType model.RecordType) (model.DeleteRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id := l.nextID; id > 0; id-- {
		if r, ok := l.records[id]; ok && r.RecordID == recordID && r.RecordType == recordType {
			return r, nil
		}
	}
	return model.DeleteRequest{}, model.ErrNotFound
}

func newDeleteLedger() memDeleteLedger {
	return memDeleteLedger{&memLedger[model.DeleteRequest]{
		kind:     model.KindDeleteRequest,
		validate: model.DeleteRequest.Validate,
		status:   func(r model.DeleteRequest) model.RequestStatus { return r.Status },
		withID: func(r model.DeleteRequest, id int64, at time.Time) model.DeleteRequest {
			r.ID, r.Status, r.CreatedAt, r.UpdatedAt = id, model.StatusPending, at, at
			return r
		},
		apply: func(r model.DeleteRequest, t model.Transition) model.DeleteRequest {
			actor := t.Actor
			at := t.At
			r.Status, r.ReviewedBy, r.ReviewedAt, r.UpdatedAt = t.To, &actor, &at, t.At
			if t.To == model.StatusDenied {
				r.DenialReason = t.Reason
			}
			return r
		},
	}}
}

type MockOrganizationReader struct {
	mock.Mock
}

func (m *MockOrganizationReader) FindByID(ctx context.Context, id int64) (model.Organization, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Organization), args.Error(1)
}

type MockCleanupStore struct {
	mock.Mock
}

func (m *MockCleanupStore) SchedulePending(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCleanupStore) ListPurgeEligible(ctx context.Context, cutoff time.Time) ([]model.Organization, error) {
	args := m.Called(ctx, cutoff)
	orgs, _ := args.Get(0).([]model.Organization)
	return orgs, args.Error(1)
}

func (m *MockCleanupStore) Purge(ctx context.Context, org model.Organization, now time.Time) (model.TaskData, error) {
	args := m.Called(ctx, org, now)
	return args.Get(0).(model.TaskData), args.Error(1)
}

func (m *MockCleanupStore) ListTasks(ctx context.Context, status model.TaskStatus, limit int) ([]model.ScheduledTask, error) {
	args := m.Called(ctx, status, limit)
	tasks, _ := args.Get(0).([]model.ScheduledTask)
	return tasks, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type countingRecorder struct {
	mu          sync.Mutex
	created     int
	transitions map[model.RequestStatus]int
	conflicts   int
	runs        []error
}

func (r *countingRecorder) RequestCreated(model.RequestKind) {
	r.mu.Lock()
	r.created++
	r.mu.Unlock()
}

func (r *countingRecorder) RequestTransitioned(_ model.RequestKind, to model.RequestStatus) {
	r.mu.Lock()
	if r.transitions == nil {
		r.transitions = map[model.RequestStatus]int{}
	}
	r.transitions[to]++
	r.mu.Unlock()
}

func (r *countingRecorder) TransitionConflict(model.RequestKind) {
	r.mu.Lock()
	r.conflicts++
	r.mu.Unlock()
}

func (r *countingRecorder) CleanupRun(_ model.CleanupReport, err error) {
	r.mu.Lock()
	r.runs = append(r.runs, err)
	r.mu.Unlock()
}

func enforcingAuthorizer() *authz.Authorizer {
	a, err := authz.New("", authz.ModeEnforce, nil)
	if err != nil {
		panic(err)
	}
	return a
}

var (
	requester = model.Identity{ID: 3, Name: "Riley Recruiter", Email: "riley@example.com", Role: "recruiter"}
	manager   = model.Identity{ID: 7, Name: "Morgan Manager", Role: "manager"}
	operator  = model.Identity{ID: 9, Name: "Ops", Role: "operator"}
)
