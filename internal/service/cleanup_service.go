package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"org-lifecycle/internal/authz"
	"org-lifecycle/internal/event"
	"org-lifecycle/internal/model"
)

// CleanupStore is the persistence side of the archive cleanup job.
type CleanupStore interface {
	SchedulePending(ctx context.Context, retention time.Duration) (int64, error)
	ListPurgeEligible(ctx context.Context, cutoff time.Time) ([]model.Organization, error)
	Purge(ctx context.Context, org model.Organization, now time.Time) (model.TaskData, error)
	ListTasks(ctx context.Context, status model.TaskStatus, limit int) ([]model.ScheduledTask, error)
}

// CleanupService permanently removes organizations that have stayed archived
// past the retention period, one transaction per organization.
type CleanupService struct {
	store     CleanupStore
	retention time.Duration
	deps      WorkflowDeps
	running   sync.Mutex
}

func NewCleanupService(store CleanupStore, retention time.Duration, deps WorkflowDeps) *CleanupService {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &CleanupService{store: store, retention: retention, deps: deps.withDefaults()}
}

func (s *CleanupService) Retention() time.Duration {
	return s.retention
}

// Run executes one cleanup pass. It fails only when eligible organizations
// cannot be selected; per-organization failures are reported in the result.
func (s *CleanupService) Run(ctx context.Context) (model.CleanupReport, error) {
	if !s.running.TryLock() {
		return model.CleanupReport{}, model.ErrCleanupInProgress
	}
	defer s.running.Unlock()

	log := s.deps.Logger.With("job", "archive_cleanup")
	started := s.deps.Now()
	report := model.CleanupReport{
		StartedAt: started,
		Cutoff:    started.Add(-s.retention),
		Failed:    []model.CleanupFailure{},
	}

	if n, err := s.store.SchedulePending(ctx, s.retention); err != nil {
		log.WarnContext(ctx, "could not register pending cleanup tasks", "error", err)
	} else if n > 0 {
		log.InfoContext(ctx, "registered pending cleanup tasks", "count", n)
	}

	orgs, err := s.store.ListPurgeEligible(ctx, report.Cutoff)
	if err != nil {
		log.ErrorContext(ctx, "select purge-eligible organizations failed", "error", err)
		s.deps.Metrics.CleanupRun(report, err)
		return report, err
	}
	report.Eligible = len(orgs)
	log.InfoContext(ctx, "archive cleanup started", "eligible", len(orgs), "cutoff", report.Cutoff)

	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "archive cleanup interrupted", "remaining", report.Eligible-report.Processed-len(report.Failed))
			break
		}
		s.purgeOne(ctx, log, org, &report)
	}

	report.FinishedAt = s.deps.Now()
	log.InfoContext(ctx, "archive cleanup finished",
		"eligible", report.Eligible,
		"processed", report.Processed,
		"failed", len(report.Failed),
		"duration", report.FinishedAt.Sub(report.StartedAt))

	s.deps.Metrics.CleanupRun(report, nil)
	s.publish(ctx, event.New(event.TypeArchiveCleanupFinished, 0, 0, report, report.FinishedAt))
	return report, nil
}

func (s *CleanupService) purgeOne(ctx context.Context, log *slog.Logger, org model.Organization, report *model.CleanupReport) {
	data, err := s.store.Purge(ctx, org, s.deps.Now())
	if err != nil {
		log.ErrorContext(ctx, "organization purge rolled back",
			"organization_id", org.ID, "organization", org.Name, "error", err)
		report.Failed = append(report.Failed, model.CleanupFailure{OrganizationID: org.ID, Reason: err.Error()})
		return
	}

	report.Processed++
	log.InfoContext(ctx, "organization purged",
		"organization_id", org.ID, "organization", org.Name, "rows", data.TotalRows())
	s.publish(ctx, event.New(event.TypeOrganizationPurged, org.ID, 0, data, s.deps.Now()))
}

func (s *CleanupService) publish(ctx context.Context, e event.Event) {
	if err := s.deps.Publisher.Publish(ctx, e); err != nil {
		s.deps.Logger.ErrorContext(ctx, "publish event failed", "type", e.Type, "subject_id", e.Subject, "error", err)
	}
}

// Trigger runs a cleanup pass on behalf of an operator.
func (s *CleanupService) Trigger(ctx context.Context, actor model.Identity) (model.CleanupReport, error) {
	if err := s.deps.Authorizer.Authorize(ctx, actor, authz.ObjectCleanup, authz.ActionRun); err != nil {
		return model.CleanupReport{}, err
	}
	s.deps.Logger.InfoContext(ctx, "archive cleanup triggered manually", "actor_id", actor.ID)
	return s.Run(ctx)
}

// ListTasks returns the cleanup ledger, newest first. status may be empty.
func (s *CleanupService) ListTasks(ctx context.Context, actor model.Identity, status string, limit int) ([]model.ScheduledTask, error) {
	if err := s.deps.Authorizer.Authorize(ctx, actor, authz.ObjectCleanup, authz.ActionRead); err != nil {
		return nil, err
	}

	ts := model.TaskStatus(status)
	switch ts {
	case "", model.TaskPending, model.TaskCompleted:
	default:
		return nil, model.NewValidationError("status", "unknown task status "+status)
	}
	if limit < 0 || limit > 500 {
		return nil, model.NewValidationError("limit", "must be between 0 and 500")
	}
	return s.store.ListTasks(ctx, ts, limit)
}

// StartTicker runs the cleanup on every interval until ctx is cancelled.
func (s *CleanupService) StartTicker(ctx context.Context, interval time.Duration, runOnStart bool) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if runOnStart {
		s.runScheduled(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

func (s *CleanupService) runScheduled(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil {
		s.deps.Logger.ErrorContext(ctx, "scheduled archive cleanup failed", "error", err)
	}
}
