package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"org-lifecycle/internal/database"
	"org-lifecycle/internal/model"
)

// cascadeTable is a dependent table purged before its organization row.
type cascadeTable struct {
	name   string
	column string
}

// Children go first, the organization row itself last.
var cascadeTables = []cascadeTable{
	{name: "hiring_managers", column: "organization_id"},
	{name: "jobs", column: "organization_id"},
	{name: "leads", column: "organization_id"},
	{name: "organization_notes", column: "organization_id"},
	{name: "organization_history", column: "organization_id"},
	{name: "organization_documents", column: "organization_id"},
}

// CascadeTables lists the dependent tables in purge order.
func CascadeTables() []string {
	names := make([]string, 0, len(cascadeTables))
	for _, t := range cascadeTables {
		names = append(names, t.name)
	}
	return names
}

type CleanupRepository struct {
	db database.Store
}

func NewCleanupRepository(db database.Store) *CleanupRepository {
	return &CleanupRepository{db: db}
}

// SchedulePending registers a pending task for every archived organization
// that has none yet. scheduled_for is archived_at plus retention.
func (r *CleanupRepository) SchedulePending(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO scheduled_tasks (task_type, organization_id, task_data, scheduled_for, status)
		 SELECT $1, o.id, jsonb_build_object('organization_id', o.id, 'organization_name', o.name, 'purged', '[]'::jsonb),
		        o.archived_at + make_interval(secs => $2), 'pending'
		 FROM organizations o
		 WHERE o.status = $3 AND o.archived_at IS NOT NULL
		 ON CONFLICT (task_type, organization_id) DO NOTHING`,
		string(model.TaskArchiveCleanup), retention.Seconds(), string(model.OrganizationArchived))
	if err != nil {
		return 0, model.StoreError("schedule cleanup tasks", err)
	}
	return tag.RowsAffected(), nil
}

// ListPurgeEligible returns organizations archived at or before cutoff that
// have no completed cleanup task, oldest first.
func (r *CleanupRepository) ListPurgeEligible(ctx context.Context, cutoff time.Time) ([]model.Organization, error) {
	rows, err := r.db.Query(ctx,
		`SELECT o.id, o.name, o.status, o.archived_at
		 FROM organizations o
		 WHERE o.status = $1
		   AND o.archived_at IS NOT NULL
		   AND o.archived_at <= $2
		   AND NOT EXISTS (
		       SELECT 1 FROM scheduled_tasks t
		       WHERE t.task_type = $3 AND t.organization_id = o.id AND t.status = $4
		   )
		 ORDER BY o.archived_at ASC, o.id ASC`,
		string(model.OrganizationArchived), cutoff, string(model.TaskArchiveCleanup), string(model.TaskCompleted))
	if err != nil {
		return nil, model.StoreError("list purge eligible", err)
	}
	defer rows.Close()

	orgs := make([]model.Organization, 0)
	for rows.Next() {
		var (
			org    model.Organization
			status string
		)
		if err := rows.Scan(&org.ID, &org.Name, &status, &org.ArchivedAt); err != nil {
			return nil, model.StoreError("scan purge eligible", err)
		}
		org.Status = model.OrganizationStatus(status)
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreError("list purge eligible", err)
	}
	return orgs, nil
}

// Purge removes an organization and everything that hangs off it in one
// transaction, then marks its cleanup task completed. Any failure rolls the
// whole organization back.
func (r *CleanupRepository) Purge(ctx context.Context, org model.Organization, now time.Time) (model.TaskData, error) {
	var data model.TaskData

	// Once begun, the cascade runs to commit or rollback. The caller stops
	// between organizations, never inside one.
	ctx = context.WithoutCancel(ctx)

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		data = model.TaskData{
			OrganizationID:   org.ID,
			OrganizationName: org.Name,
			Purged:           make([]model.PurgedTable, 0, len(cascadeTables)+1),
		}

		for _, t := range cascadeTables {
			tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.name, t.column), org.ID)
			if err != nil {
				return model.StoreError("purge "+t.name, err)
			}
			data.Purged = append(data.Purged, model.PurgedTable{Table: t.name, Rows: tag.RowsAffected()})
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM organizations WHERE id = $1 AND status = $2`,
			org.ID, string(model.OrganizationArchived))
		if err != nil {
			return model.StoreError("purge organizations", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("organization %d: %w", org.ID, model.ErrOrganizationChanged)
		}
		data.Purged = append(data.Purged, model.PurgedTable{Table: "organizations", Rows: tag.RowsAffected()})

		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode task data: %w", err)
		}

		scheduledFor := now
		if org.ArchivedAt != nil {
			scheduledFor = *org.ArchivedAt
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO scheduled_tasks (task_type, organization_id, task_data, scheduled_for, status, completed_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (task_type, organization_id)
			 DO UPDATE SET task_data = EXCLUDED.task_data, status = EXCLUDED.status, completed_at = EXCLUDED.completed_at`,
			string(model.TaskArchiveCleanup), org.ID, payload, scheduledFor, string(model.TaskCompleted), now)
		if err != nil {
			return model.StoreError("complete cleanup task", err)
		}
		return nil
	})
	if err != nil {
		return model.TaskData{}, err
	}
	return data, nil
}

// ListTasks returns cleanup tasks, newest first. An empty status lists all.
func (r *CleanupRepository) ListTasks(ctx context.Context, status model.TaskStatus, limit int) ([]model.ScheduledTask, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, task_type, organization_id, task_data, scheduled_for, status, completed_at, created_at
		FROM scheduled_tasks WHERE task_type = $1 AND organization_id IS NOT NULL`
	args := []any{string(model.TaskArchiveCleanup)}
	if status != "" {
		args = append(args, string(status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, model.StoreError("list cleanup tasks", err)
	}
	defer rows.Close()

	tasks := make([]model.ScheduledTask, 0)
	for rows.Next() {
		var (
			task                 model.ScheduledTask
			taskType, taskStatus string
			raw                  []byte
		)
		if err := rows.Scan(&task.ID, &taskType, &task.OrganizationID, &raw,
			&task.ScheduledFor, &taskStatus, &task.CompletedAt, &task.CreatedAt); err != nil {
			return nil, model.StoreError("scan cleanup task", err)
		}
		task.TaskType = model.TaskType(taskType)
		task.Status = model.TaskStatus(taskStatus)
		task.Data = model.DecodeTaskData(raw)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreError("list cleanup tasks", err)
	}
	return tasks, nil
}
